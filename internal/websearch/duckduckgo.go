package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const duckduckgoEndpoint = "https://api.duckduckgo.com/"

// DuckDuckGoProvider uses the DuckDuckGo instant-answer API. No key needed,
// which makes it the default provider.
type DuckDuckGoProvider struct {
	endpoint   string
	httpClient *http.Client
}

// NewDuckDuckGoProvider constructs the provider.
func NewDuckDuckGoProvider(timeout time.Duration) *DuckDuckGoProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGoProvider{
		endpoint:   duckduckgoEndpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// Search queries the instant-answer API and flattens abstract plus related
// topics into ranked results.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make([]Result, 0, limit)
	if parsed.AbstractText != "" {
		results = append(results, Result{
			Title:   parsed.Heading,
			Snippet: parsed.AbstractText,
			URL:     parsed.AbstractURL,
		})
	}
	for _, topic := range flattenTopics(parsed.RelatedTopics) {
		if len(results) >= limit {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, Result{
			Title:   topic.Text,
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func flattenTopics(topics []ddgTopic) []ddgTopic {
	flat := make([]ddgTopic, 0, len(topics))
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}
