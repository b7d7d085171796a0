package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/blobstore"
	"github.com/blissito/formmy-agent-core/internal/cache"
	"github.com/blissito/formmy-agent-core/internal/core/errx"
	"github.com/blissito/formmy-agent-core/internal/credits"
	"github.com/blissito/formmy-agent-core/internal/leads"
	"github.com/blissito/formmy-agent-core/internal/plan"
	"github.com/blissito/formmy-agent-core/internal/scheduler"
	"github.com/blissito/formmy-agent-core/internal/usage"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// Tool names. These are the identifiers the model calls and the ones logged
// in usage records; renaming one is a breaking change for stored analytics.
const (
	ToolSaveLead                = "save_lead"
	ToolGetCurrentTime          = "get_current_time"
	ToolSearchContext           = "search_context"
	ToolWebSearch               = "web_search"
	ToolCreatePaymentLink       = "create_payment_link"
	ToolGeneratePlanPaymentLink = "generate_plan_payment_link"
	ToolScheduleReminder        = "schedule_reminder"
	ToolParseDocument           = "parse_document"
)

// Integration keys as stored on the tenant's integration map.
const (
	IntegrationStripe   = "stripe"
	IntegrationCalendar = "calendar"
	IntegrationEmail    = "email"
)

// Context is the ephemeral per-turn call context handed to every handler.
// A nil ChatbotID marks the platform-wide assistant ("Ghosty") acting
// without a tenant. Never persisted; handlers persist derived rows instead.
type Context struct {
	UserID         string
	Plan           plan.Plan
	ChatbotID      *string
	Message        string
	ConversationID *string
	Integrations   map[string]bool
}

// IsPlatformAssistant reports whether this turn runs as Ghosty.
func (c *Context) IsPlatformAssistant() bool {
	return c.ChatbotID == nil
}

// ChatbotIDOrEmpty is the audit-row form of the nullable chatbot id.
func (c *Context) ChatbotIDOrEmpty() string {
	if c.ChatbotID == nil {
		return ""
	}
	return *c.ChatbotID
}

// Response is what every handler returns. Failures are data, not errors:
// the runner relays them to the model as the tool result so the model can
// tell the user what happened.
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func ok(message string, data map[string]any) *Response {
	return &Response{Success: true, Message: message, Data: data}
}

func fail(message string) *Response {
	return &Response{Success: false, Message: message}
}

// Handler is the invocation contract: a pure function of typed input and
// turn context. Side effects (credit spend, usage logging, record
// creation) are the handler's responsibility, not the runner's.
type Handler func(ctx context.Context, args json.RawMessage, tc *Context) *Response

// Tool is one plan-gated capability the agent can call.
type Tool struct {
	Name string
	Info *schema.ToolInfo
	// Cost in credits, spent synchronously before the handler reports
	// success. Zero-cost tools skip the ledger entirely.
	Cost int
	// RequiredIntegration names the tenant integration that must be
	// connected for the tool to be offered. Empty means always available
	// at the owning plan tier.
	RequiredIntegration string
	// TenantOnly tools are meaningless without a tenant and are withheld
	// from the platform assistant.
	TenantOnly bool
	// PlatformOnly tools are exclusively available to the platform
	// assistant.
	PlatformOnly bool
	Handler      Handler
}

// Costs is the externally configured credit cost table. The core never
// hardcodes prices; deployments tune them through the environment.
type Costs struct {
	ContextQuery   int `envconfig:"TOOL_COST_CONTEXT_QUERY" default:"2"`
	WebSearch      int `envconfig:"TOOL_COST_WEB_SEARCH" default:"1"`
	PaymentLink    int `envconfig:"TOOL_COST_PAYMENT_LINK" default:"1"`
	Reminder       int `envconfig:"TOOL_COST_REMINDER" default:"1"`
	DocumentIngest int `envconfig:"TOOL_COST_DOCUMENT_INGEST" default:"3"`

	// Document parsing scales with page count under a tiered per-mode
	// formula; see ParseCost.
	ParseBasicPerPage int `envconfig:"TOOL_COST_PARSE_BASIC_PER_PAGE" default:"1"`
	ParseBasicBase    int `envconfig:"TOOL_COST_PARSE_BASIC_BASE" default:"5"`
	ParseOCRPerPage   int `envconfig:"TOOL_COST_PARSE_OCR_PER_PAGE" default:"3"`
	ParseOCRBase      int `envconfig:"TOOL_COST_PARSE_OCR_BASE" default:"15"`

	WebSearchDailyLimit     int `envconfig:"TOOL_WEB_SEARCH_DAILY_LIMIT" default:"10"`
	ContextQueryDailyLimit  int `envconfig:"TOOL_CONTEXT_QUERY_DAILY_LIMIT" default:"200"`
}

// ParseCost computes the tiered parsing price for one document:
// small documents pay per page, larger ones pay a base rate plus the
// per-page rate beyond the fifth page.
func (c Costs) ParseCost(mode string, pages int) int {
	perPage, base := c.ParseBasicPerPage, c.ParseBasicBase
	if mode == "ocr" {
		perPage, base = c.ParseOCRPerPage, c.ParseOCRBase
	}
	if pages <= 5 {
		return pages * perPage
	}
	return base + (pages-5)*perPage
}

// Deps bundles the collaborators handlers draw on.
type Deps struct {
	Ledger     *credits.Ledger
	Recorder   *usage.Recorder
	UsageStore usage.Store
	Cache      cache.Cache
	Blobs      blobstore.Store
	Scheduler  scheduler.Scheduler
	Email      scheduler.EmailSender
	Searcher   ContextSearcher
	Web        WebSearcher
	Payments   PaymentLinker
	Parser     DocumentParser
	Leads      leads.Store
	Costs      Costs
}

// track records one audit row asynchronously. Never blocks, never throws.
func (d *Deps) track(tc *Context, toolName string, success bool, errMsg, response string, metadata map[string]any) {
	if d.Recorder == nil {
		return
	}
	d.Recorder.Track(&usage.Record{
		ChatbotID:   tc.ChatbotIDOrEmpty(),
		ToolName:    toolName,
		Success:     success,
		Error:       errMsg,
		UserMessage: tc.Message,
		Response:    response,
		Metadata:    metadata,
	})
}

// spend charges the turn's user before the paid operation runs. A nil
// Response means the charge went through; otherwise the returned Response
// carries the user-facing denial and nothing was mutated.
func (d *Deps) spend(ctx context.Context, tc *Context, amount int) (*credits.SpendResult, *Response) {
	if amount <= 0 {
		return nil, nil
	}
	res, err := d.Ledger.Spend(ctx, tc.UserID, tc.Plan, amount)
	if err != nil {
		logx.Warn().
			Err(err).
			Str("user_id", tc.UserID).
			Int("amount", amount).
			Msg("Credit spend rejected")
		return nil, fail(errx.UserMessage(err))
	}
	return res, nil
}

// refund reverses a spend when the paid operation failed after the charge.
func (d *Deps) refund(ctx context.Context, tc *Context, res *credits.SpendResult) {
	if res == nil {
		return
	}
	if err := d.Ledger.Rollback(ctx, tc.UserID, tc.Plan, res); err != nil {
		logx.Error().
			Err(err).
			Str("user_id", tc.UserID).
			Msg("Credit refund failed after tool error")
	}
}
