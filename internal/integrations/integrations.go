// Package integrations bridges the agent core to the platform services that
// own retrieval, payments, web search and document parsing. Each collaborator
// is one JSON POST against the platform's internal API; the core never talks
// to Stripe or the vector store directly.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blissito/formmy-agent-core/internal/agent/tools"
)

// Config locates the internal platform API.
type Config struct {
	BaseURL string        `envconfig:"INTEGRATIONS_BASE_URL" default:"http://localhost:3000/internal"`
	APIKey  string        `envconfig:"INTEGRATIONS_API_KEY"`
	Timeout time.Duration `envconfig:"INTEGRATIONS_TIMEOUT" default:"20s"`
}

// Client is the shared JSON-over-HTTP transport for all bridge calls.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewClient(cfg Config) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("integrations: encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("integrations: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("integrations: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("integrations: %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("integrations: decode %s response: %w", path, err)
	}
	return nil
}

// ContextSearch implements tools.ContextSearcher against the platform's
// vector retrieval endpoint.
type ContextSearch struct{ c *Client }

func NewContextSearch(c *Client) *ContextSearch { return &ContextSearch{c: c} }

func (s *ContextSearch) Search(ctx context.Context, query, tenantID string, topK int) ([]tools.SearchResult, error) {
	var out struct {
		Results []tools.SearchResult `json:"results"`
	}
	err := s.c.post(ctx, "/search/context", map[string]any{
		"query":     query,
		"tenant_id": tenantID,
		"top_k":     topK,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// WebSearch implements tools.WebSearcher.
type WebSearch struct{ c *Client }

func NewWebSearch(c *Client) *WebSearch { return &WebSearch{c: c} }

func (s *WebSearch) Search(ctx context.Context, query string, maxResults int) ([]tools.SearchResult, error) {
	var out struct {
		Results []tools.SearchResult `json:"results"`
	}
	err := s.c.post(ctx, "/search/web", map[string]any{
		"query":       query,
		"max_results": maxResults,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Payments implements tools.PaymentLinker over the platform's Stripe wrapper.
type Payments struct{ c *Client }

func NewPayments(c *Client) *Payments { return &Payments{c: c} }

func (p *Payments) CreateLink(ctx context.Context, amountMinorUnits int64, description, currency string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := p.c.post(ctx, "/payments/links", map[string]any{
		"amount":      amountMinorUnits,
		"description": description,
		"currency":    currency,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("integrations: payment link response had no url")
	}
	return out.URL, nil
}

// Parser implements tools.DocumentParser.
type Parser struct{ c *Client }

func NewParser(c *Client) *Parser { return &Parser{c: c} }

func (p *Parser) Parse(ctx context.Context, documentID, mode string) ([]byte, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := p.c.post(ctx, "/documents/parse", map[string]any{
		"document_id": documentID,
		"mode":        mode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return []byte(out.Text), nil
}

// Email implements scheduler.EmailSender through the platform mailer.
type Email struct{ c *Client }

func NewEmail(c *Client) *Email { return &Email{c: c} }

func (e *Email) Send(ctx context.Context, to, subject, html string) error {
	return e.c.post(ctx, "/email/send", map[string]any{
		"to":      to,
		"subject": subject,
		"html":    html,
	}, nil)
}
