package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blissito/formmy-agent-core/internal/credits"
	"github.com/blissito/formmy-agent-core/internal/plan"
)

func tenantContext() *Context {
	return &Context{
		UserID:         "u1",
		Plan:           plan.Pro,
		ChatbotID:      strPtr("bot-1"),
		Message:        "hello",
		ConversationID: strPtr("conv-1"),
	}
}

func platformContext() *Context {
	return &Context{UserID: "u1", Plan: plan.Free, Message: "hello"}
}

func ledgerWith(purchased int) (*credits.Ledger, *credits.MemoryStore) {
	store := credits.NewMemoryStore()
	store.Seed(credits.Account{UserID: "u1", PurchasedCredits: purchased, CreditsResetAt: time.Now()})
	return credits.NewLedger(store), store
}

func TestSaveLead(t *testing.T) {
	store := &fakeLeads{}
	tool := newSaveLeadTool(&Deps{Leads: store})

	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"name":"Ana","email":"ana@example.com","phone":"555"}`),
		tenantContext())

	require.True(t, resp.Success)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "bot-1", store.saved[0].ChatbotID)
	assert.Equal(t, "conv-1", store.saved[0].ConversationID)
	assert.Equal(t, "Ana", store.saved[0].Name)
}

func TestSaveLeadRejectsPlatformAssistant(t *testing.T) {
	store := &fakeLeads{}
	tool := newSaveLeadTool(&Deps{Leads: store})

	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"name":"Ana","email":"ana@example.com"}`),
		platformContext())

	assert.False(t, resp.Success)
	assert.Empty(t, store.saved)
}

func TestSaveLeadValidation(t *testing.T) {
	tool := newSaveLeadTool(&Deps{Leads: &fakeLeads{}})
	ctx := context.Background()

	resp := tool.Handler(ctx, json.RawMessage(`{"name":"Ana"}`), tenantContext())
	assert.False(t, resp.Success)

	resp = tool.Handler(ctx, json.RawMessage(`{"name":"Ana","email":"not-an-email"}`), tenantContext())
	assert.False(t, resp.Success)
}

func TestSearchContextSpendsAndSearches(t *testing.T) {
	ledger, store := ledgerWith(10)
	searcher := &fakeSearcher{results: []SearchResult{{Content: "open 9 to 5"}}}
	deps := &Deps{Ledger: ledger, Searcher: searcher, Costs: Costs{ContextQuery: 2}}

	tool := newSearchContextTool(deps)
	resp := tool.Handler(context.Background(), json.RawMessage(`{"query":"hours"}`), tenantContext())

	require.True(t, resp.Success)
	assert.Contains(t, resp.Message, "open 9 to 5")
	assert.Equal(t, "bot-1", searcher.lastTenant)

	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 8, acc.PurchasedCredits)
}

func TestSearchContextUsesPlatformTenantForGhosty(t *testing.T) {
	ledger, _ := ledgerWith(10)
	searcher := &fakeSearcher{}
	tool := newSearchContextTool(&Deps{Ledger: ledger, Searcher: searcher, Costs: Costs{ContextQuery: 1}})

	tool.Handler(context.Background(), json.RawMessage(`{"query":"pricing"}`), platformContext())

	assert.Equal(t, "platform", searcher.lastTenant)
}

func TestSearchContextRefundsOnFailure(t *testing.T) {
	ledger, store := ledgerWith(10)
	deps := &Deps{Ledger: ledger, Searcher: &fakeSearcher{err: errUpstream}, Costs: Costs{ContextQuery: 2}}

	tool := newSearchContextTool(deps)
	resp := tool.Handler(context.Background(), json.RawMessage(`{"query":"hours"}`), tenantContext())

	assert.False(t, resp.Success)
	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, acc.PurchasedCredits)
}

func TestSearchContextDeniedWithoutCredits(t *testing.T) {
	store := credits.NewMemoryStore()
	store.Seed(credits.Account{
		UserID:             "u1",
		MonthlyCreditsUsed: plan.Quota(plan.Pro),
		CreditsResetAt:     time.Now(),
	})
	searcher := &fakeSearcher{}
	deps := &Deps{Ledger: credits.NewLedger(store), Searcher: searcher, Costs: Costs{ContextQuery: 2}}

	tool := newSearchContextTool(deps)
	resp := tool.Handler(context.Background(), json.RawMessage(`{"query":"hours"}`), tenantContext())

	assert.False(t, resp.Success)
	assert.Equal(t, "not enough credits for this action", resp.Message)
	assert.Empty(t, searcher.lastTenant, "search must not run when the spend is denied")
}

func TestWebSearchCacheHitIsFree(t *testing.T) {
	ledger, store := ledgerWith(10)
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), "bot-1:weather in cdmx", "1. sunny\n", 0))
	web := &fakeWeb{}
	deps := &Deps{Ledger: ledger, Cache: c, Web: web, Costs: Costs{WebSearch: 1}}

	tool := newWebSearchTool(deps)
	resp := tool.Handler(context.Background(), json.RawMessage(`{"query":"Weather in CDMX"}`), tenantContext())

	require.True(t, resp.Success)
	assert.Equal(t, 0, web.calls)
	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, acc.PurchasedCredits)
}

func TestWebSearchMissSpendsAndCaches(t *testing.T) {
	ledger, store := ledgerWith(10)
	c := newMemCache()
	web := &fakeWeb{results: []SearchResult{{Content: "sunny"}}}
	deps := &Deps{Ledger: ledger, Cache: c, Web: web, Costs: Costs{WebSearch: 1}}

	tool := newWebSearchTool(deps)
	resp := tool.Handler(context.Background(), json.RawMessage(`{"query":"weather"}`), tenantContext())

	require.True(t, resp.Success)
	assert.Equal(t, 1, web.calls)

	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, acc.PurchasedCredits)

	cached, err := c.Get(context.Background(), "bot-1:weather")
	require.NoError(t, err)
	assert.Contains(t, cached, "sunny")
}

func TestCreatePaymentLink(t *testing.T) {
	ledger, _ := ledgerWith(10)
	payments := &fakePayments{url: "https://pay.example/abc"}
	deps := &Deps{Ledger: ledger, Payments: payments, Costs: Costs{PaymentLink: 1}}

	tool := newCreatePaymentLinkTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"amount":150.5,"description":"2 tacos"}`),
		tenantContext())

	require.True(t, resp.Success)
	assert.Contains(t, resp.Message, "https://pay.example/abc")
	assert.Equal(t, int64(15050), payments.last.amount)
	assert.Equal(t, "mxn", payments.last.currency)
}

func TestCreatePaymentLinkRoundsMinorUnits(t *testing.T) {
	// 19.99 sits just below 19.99 in float64; truncation would charge 1998.
	ledger, _ := ledgerWith(10)
	payments := &fakePayments{url: "https://pay.example/abc"}
	deps := &Deps{Ledger: ledger, Payments: payments, Costs: Costs{PaymentLink: 1}}

	tool := newCreatePaymentLinkTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"amount":19.99,"description":"combo"}`),
		tenantContext())

	require.True(t, resp.Success)
	assert.Equal(t, int64(1999), payments.last.amount)
}

func TestCreatePaymentLinkRefundsOnFailure(t *testing.T) {
	ledger, store := ledgerWith(10)
	deps := &Deps{Ledger: ledger, Payments: &fakePayments{err: errUpstream}, Costs: Costs{PaymentLink: 1}}

	tool := newCreatePaymentLinkTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"amount":100,"description":"x"}`),
		tenantContext())

	assert.False(t, resp.Success)
	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, acc.PurchasedCredits)
}

func TestGeneratePlanPaymentLink(t *testing.T) {
	payments := &fakePayments{url: "https://pay.example/upgrade"}
	tool := newGeneratePlanPaymentLinkTool(&Deps{Payments: payments})

	resp := tool.Handler(context.Background(), json.RawMessage(`{"plan":"pro"}`), platformContext())

	require.True(t, resp.Success)
	assert.Equal(t, int64(49900), payments.last.amount)
	assert.Contains(t, payments.last.description, "PRO")
}

func TestGeneratePlanPaymentLinkUnknownPlan(t *testing.T) {
	tool := newGeneratePlanPaymentLinkTool(&Deps{Payments: &fakePayments{}})
	resp := tool.Handler(context.Background(), json.RawMessage(`{"plan":"FREE"}`), platformContext())
	assert.False(t, resp.Success)
}

func TestScheduleReminder(t *testing.T) {
	ledger, _ := ledgerWith(10)
	sched := &fakeScheduler{id: "rem-1"}
	deps := &Deps{Ledger: ledger, Scheduler: sched, Costs: Costs{Reminder: 1}}
	runAt := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	tool := newScheduleReminderTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"email":"ana@example.com","subject":"dentist","run_at":"`+runAt+`"}`),
		tenantContext())

	require.True(t, resp.Success)
	assert.Equal(t, "rem-1", resp.Data["reminder_id"])
}

func TestScheduleReminderRejectsPastDate(t *testing.T) {
	sched := &fakeScheduler{}
	tool := newScheduleReminderTool(&Deps{Scheduler: sched, Costs: Costs{Reminder: 1}})
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)

	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"email":"ana@example.com","subject":"x","run_at":"`+past+`"}`),
		tenantContext())

	assert.False(t, resp.Success)
	assert.True(t, sched.lastRun.IsZero())
}

func TestParseDocumentChargesTieredCostAndStoresReport(t *testing.T) {
	ledger, store := ledgerWith(100)
	blobs := newMemBlobs()
	deps := &Deps{
		Ledger: ledger,
		Parser: &fakeParser{text: []byte("extracted text")},
		Blobs:  blobs,
		Costs:  Costs{ParseBasicPerPage: 1, ParseBasicBase: 5, ParseOCRPerPage: 3, ParseOCRBase: 15},
	}

	tool := newParseDocumentTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"document_id":"doc-1","page_count":10,"mode":"basic"}`),
		tenantContext())

	require.True(t, resp.Success)
	// 10 pages basic: base 5 + 5 extra pages * 1 = 10 credits.
	assert.Equal(t, 10, resp.Data["cost"])

	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 90, acc.PurchasedCredits)

	report, err := blobs.Get(context.Background(), "parse:bot-1:doc-1")
	require.NoError(t, err)
	assert.Equal(t, "extracted text", string(report))
}

func TestParseDocumentRefundsOnFailure(t *testing.T) {
	ledger, store := ledgerWith(100)
	deps := &Deps{
		Ledger: ledger,
		Parser: &fakeParser{err: errUpstream},
		Blobs:  newMemBlobs(),
		Costs:  Costs{ParseBasicPerPage: 1, ParseBasicBase: 5},
	}

	tool := newParseDocumentTool(deps)
	resp := tool.Handler(context.Background(),
		json.RawMessage(`{"document_id":"doc-1","page_count":3}`),
		tenantContext())

	assert.False(t, resp.Success)
	acc, _, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, acc.PurchasedCredits)
}

func TestGetCurrentTime(t *testing.T) {
	tool := newGetCurrentTimeTool(&Deps{})

	resp := tool.Handler(context.Background(), json.RawMessage(`{"timezone":"America/Mexico_City"}`), tenantContext())
	require.True(t, resp.Success)
	assert.Equal(t, "America/Mexico_City", resp.Data["timezone"])

	resp = tool.Handler(context.Background(), json.RawMessage(`{"timezone":"Not/AZone"}`), tenantContext())
	assert.False(t, resp.Success)
}

func TestParseCostTiers(t *testing.T) {
	costs := Costs{ParseBasicPerPage: 1, ParseBasicBase: 5, ParseOCRPerPage: 3, ParseOCRBase: 15}

	assert.Equal(t, 3, costs.ParseCost("basic", 3))
	assert.Equal(t, 5, costs.ParseCost("basic", 5))
	assert.Equal(t, 6, costs.ParseCost("basic", 6))
	assert.Equal(t, 9, costs.ParseCost("ocr", 3))
	assert.Equal(t, 15+3*5, costs.ParseCost("ocr", 10))
}
