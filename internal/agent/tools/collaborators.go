package tools

import "context"

// SearchResult is one hit from the context search collaborator.
type SearchResult struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ContextSearcher is the black-box retrieval function over a tenant's
// knowledge base. How embeddings are computed is outside this core.
type ContextSearcher interface {
	Search(ctx context.Context, query, tenantID string, topK int) ([]SearchResult, error)
}

// PaymentLinker creates a hosted payment link. Backed by the Stripe wrapper
// outside this core; treated as opaque, fallible and rate-limited.
type PaymentLinker interface {
	CreateLink(ctx context.Context, amountMinorUnits int64, description, currency string) (string, error)
}

// WebSearcher runs a public web search. Results are cached per tenant+query
// by the handler; the implementation behind this interface is external.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// DocumentParser extracts text from an uploaded document. Page count is
// known from the upload record before parsing, which is what the tiered
// pricing is computed from.
type DocumentParser interface {
	Parse(ctx context.Context, documentID, mode string) ([]byte, error)
}
