package interest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPVectorSearcher 通过 HTTP 调用向量检索服务
//
// GET {base}/similar-users?contract_id=...&max_distance=...
// GET {base}/similar-users?news_id=...&max_distance=...
// 响应: {"user_ids": ["..."]}
type HTTPVectorSearcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVectorSearcher(baseURL string) *HTTPVectorSearcher {
	return &HTTPVectorSearcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPVectorSearcher) UsersNearContract(ctx context.Context, contractID string, maxDistance float64) ([]string, error) {
	return s.query(ctx, url.Values{
		"contract_id":  {contractID},
		"max_distance": {strconv.FormatFloat(maxDistance, 'f', -1, 64)},
	})
}

func (s *HTTPVectorSearcher) UsersNearNews(ctx context.Context, newsID string, maxDistance float64) ([]string, error) {
	return s.query(ctx, url.Values{
		"news_id":      {newsID},
		"max_distance": {strconv.FormatFloat(maxDistance, 'f', -1, 64)},
	})
}

func (s *HTTPVectorSearcher) query(ctx context.Context, params url.Values) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/similar-users?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector service returned %d", resp.StatusCode)
	}
	var body struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.UserIDs, nil
}
