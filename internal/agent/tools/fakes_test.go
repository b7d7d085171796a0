package tools

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blissito/formmy-agent-core/internal/blobstore"
	"github.com/blissito/formmy-agent-core/internal/cache"
	"github.com/blissito/formmy-agent-core/internal/leads"
)

type fakeLeads struct {
	mu    sync.Mutex
	saved []*leads.Lead
	err   error
}

func (f *fakeLeads) Save(_ context.Context, lead *leads.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, lead)
	return nil
}

func (f *fakeLeads) List(_ context.Context, _ string) ([]*leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

type fakeSearcher struct {
	results    []SearchResult
	err        error
	lastTenant string
}

func (f *fakeSearcher) Search(_ context.Context, _, tenantID string, _ int) ([]SearchResult, error) {
	f.lastTenant = tenantID
	return f.results, f.err
}

type fakeWeb struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeWeb) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	f.calls++
	return f.results, f.err
}

type fakePayments struct {
	url  string
	err  error
	last struct {
		amount      int64
		description string
		currency    string
	}
}

func (f *fakePayments) CreateLink(_ context.Context, amount int64, description, currency string) (string, error) {
	f.last.amount = amount
	f.last.description = description
	f.last.currency = currency
	return f.url, f.err
}

type fakeParser struct {
	text []byte
	err  error
}

func (f *fakeParser) Parse(_ context.Context, _, _ string) ([]byte, error) {
	return f.text, f.err
}

type fakeScheduler struct {
	id      string
	err     error
	lastRun time.Time
}

func (f *fakeScheduler) Schedule(_ context.Context, _ string, _ map[string]any, runAt time.Time) (string, error) {
	f.lastRun = runAt
	return f.id, f.err
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

var errUpstream = errors.New("upstream unavailable")

func strPtr(s string) *string { return &s }
