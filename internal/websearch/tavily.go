package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider uses the Tavily search API. Selected when an API key is
// configured.
type TavilyProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewTavilyProvider constructs the provider.
func NewTavilyProvider(apiKey string, timeout time.Duration) *TavilyProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TavilyProvider{
		endpoint:   tavilyEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Search queries Tavily and returns ranked results.
func (p *TavilyProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      p.apiKey,
		Query:       query,
		MaxResults:  limit,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{Title: r.Title, Snippet: r.Content, URL: r.URL})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
