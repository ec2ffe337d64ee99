package researcher

import "context"

// SearchRequest is one web-search query issued to a Provider.
type SearchRequest struct {
	Query           string
	MaxResults      int
	TimeRange       string
	IncludeDomains  []string
	ExcludeDomains  []string
}

// SearchResult is a single citation-shaped hit from a Provider.
type SearchResult struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt string
	Score       float64
}

// Provider is one web-search backend (Tavily, Brave, Exa, ...). Grounded on
// the llm/provider package's one-adapter-per-backend registration pattern,
// generalized from chat-model backends to search backends.
type Provider interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
	FetchURL(ctx context.Context, url string, maxChars int) (string, error)
}
