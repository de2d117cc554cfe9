package websearch

import "context"

// Result is one ranked web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Provider searches the web for current information.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
