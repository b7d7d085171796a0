package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/plan"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

const paymentTimeout = 15 * time.Second

type createPaymentLinkInput struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Description string  `json:"description"`
}

func newCreatePaymentLinkTool(deps *Deps) Tool {
	return Tool{
		Name:                ToolCreatePaymentLink,
		Cost:                deps.Costs.PaymentLink,
		TenantOnly:          true,
		RequiredIntegration: IntegrationStripe,
		Info: &schema.ToolInfo{
			Name: ToolCreatePaymentLink,
			Desc: "Create a payment link the visitor can open to pay this business. Only use when the visitor agreed to pay a specific amount for a specific product or service.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {
					Type:     "number",
					Desc:     "Amount to charge, in major currency units (e.g. 150.00)",
					Required: true,
				},
				"currency": {
					Type: "string",
					Desc: "ISO currency code, defaults to mxn",
				},
				"description": {
					Type:     "string",
					Desc:     "What the payment is for",
					Required: true,
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in createPaymentLinkInput
			if err := json.Unmarshal(args, &in); err != nil {
				resp := fail("invalid payment data")
				deps.track(tc, ToolCreatePaymentLink, false, resp.Message, "", nil)
				return resp
			}

			if in.Amount <= 0 {
				resp := fail("the payment amount must be greater than zero")
				deps.track(tc, ToolCreatePaymentLink, false, resp.Message, "", nil)
				return resp
			}
			if strings.TrimSpace(in.Description) == "" {
				resp := fail("a description of what is being paid for is required")
				deps.track(tc, ToolCreatePaymentLink, false, resp.Message, "", nil)
				return resp
			}
			currency := strings.ToLower(strings.TrimSpace(in.Currency))
			if currency == "" {
				currency = "mxn"
			}

			spent, denied := deps.spend(ctx, tc, deps.Costs.PaymentLink)
			if denied != nil {
				deps.track(tc, ToolCreatePaymentLink, false, denied.Message, "", nil)
				return denied
			}

			payCtx, cancel := context.WithTimeout(ctx, paymentTimeout)
			defer cancel()

			// Round, never truncate: 19.99 in float64 is a hair under 19.99
			// and would otherwise charge 1998 minor units.
			minor := int64(math.Round(in.Amount * 100))

			url, err := deps.Payments.CreateLink(payCtx, minor, in.Description, currency)
			if err != nil {
				deps.refund(ctx, tc, spent)
				logx.Error().Err(err).Str("chatbot_id", tc.ChatbotIDOrEmpty()).Msg("Payment link creation failed")
				resp := fail("the payment link could not be created right now")
				deps.track(tc, ToolCreatePaymentLink, false, resp.Message, "", nil)
				return resp
			}

			resp := ok("payment link created: "+url, map[string]any{"url": url})
			deps.track(tc, ToolCreatePaymentLink, true, "", url, map[string]any{"amount": in.Amount, "currency": currency})
			return resp
		},
	}
}

// planPrices maps upgrade targets to their monthly price in minor units.
// Kept beside the platform-only tool that sells them; the source of truth
// for display prices is the billing service.
var planPrices = map[plan.Plan]int64{
	plan.Starter:    14900,
	plan.Pro:        49900,
	plan.Enterprise: 149900,
}

type planPaymentLinkInput struct {
	Plan string `json:"plan"`
}

func newGeneratePlanPaymentLinkTool(deps *Deps) Tool {
	return Tool{
		Name:         ToolGeneratePlanPaymentLink,
		Cost:         0,
		PlatformOnly: true,
		Info: &schema.ToolInfo{
			Name: ToolGeneratePlanPaymentLink,
			Desc: "Generate a checkout link for upgrading to a paid plan. Only use when the user explicitly wants to upgrade.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"plan": {
					Type:     "string",
					Desc:     "Target plan: STARTER, PRO or ENTERPRISE",
					Required: true,
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in planPaymentLinkInput
			if err := json.Unmarshal(args, &in); err != nil {
				resp := fail("invalid plan selection")
				deps.track(tc, ToolGeneratePlanPaymentLink, false, resp.Message, "", nil)
				return resp
			}

			target := plan.Plan(strings.ToUpper(strings.TrimSpace(in.Plan)))
			price, ok2 := planPrices[target]
			if !ok2 {
				resp := fail("unknown plan, available upgrades are STARTER, PRO and ENTERPRISE")
				deps.track(tc, ToolGeneratePlanPaymentLink, false, resp.Message, "", nil)
				return resp
			}

			payCtx, cancel := context.WithTimeout(ctx, paymentTimeout)
			defer cancel()

			url, err := deps.Payments.CreateLink(payCtx, price, "Subscription upgrade: "+string(target), "mxn")
			if err != nil {
				logx.Error().Err(err).Str("plan", string(target)).Msg("Plan payment link creation failed")
				resp := fail("the checkout link could not be created right now")
				deps.track(tc, ToolGeneratePlanPaymentLink, false, resp.Message, "", nil)
				return resp
			}

			resp := ok("checkout link for "+string(target)+": "+url, map[string]any{"url": url, "plan": string(target)})
			deps.track(tc, ToolGeneratePlanPaymentLink, true, "", url, map[string]any{"plan": string(target)})
			return resp
		},
	}
}
