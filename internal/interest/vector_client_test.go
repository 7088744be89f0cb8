package interest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPVectorSearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/similar-users", r.URL.Path)
		require.Equal(t, "c1", r.URL.Query().Get("contract_id"))
		require.Equal(t, "0.15", r.URL.Query().Get("max_distance"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_ids":["alice","bob"]}`))
	}))
	defer srv.Close()

	s := NewHTTPVectorSearcher(srv.URL)
	ids, err := s.UsersNearContract(context.Background(), "c1", 0.15)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, ids)
}

func TestHTTPVectorSearcher_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPVectorSearcher(srv.URL)
	_, err := s.UsersNearNews(context.Background(), "n1", 0.175)
	require.Error(t, err)
}
