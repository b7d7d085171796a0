package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/scheduler"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

type scheduleReminderInput struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
	// RunAt is an RFC3339 timestamp; the model is instructed to produce it
	// from the visitor's natural-language date.
	RunAt string `json:"run_at"`
}

func newScheduleReminderTool(deps *Deps) Tool {
	return Tool{
		Name:       ToolScheduleReminder,
		Cost:       deps.Costs.Reminder,
		TenantOnly: true,
		Info: &schema.ToolInfo{
			Name: ToolScheduleReminder,
			Desc: "Schedule an email reminder for the visitor at a future date and time. Use when the visitor asks to be reminded about an appointment, payment or follow-up.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"email": {
					Type:     "string",
					Desc:     "Email address to send the reminder to",
					Required: true,
				},
				"subject": {
					Type:     "string",
					Desc:     "Short reminder subject",
					Required: true,
				},
				"body": {
					Type: "string",
					Desc: "Optional reminder body text",
				},
				"run_at": {
					Type:     "string",
					Desc:     "When to send, as an RFC3339 timestamp in the future",
					Required: true,
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in scheduleReminderInput
			if err := json.Unmarshal(args, &in); err != nil {
				resp := fail("invalid reminder data")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}

			in.Email = strings.TrimSpace(in.Email)
			if in.Email == "" || !strings.Contains(in.Email, "@") {
				resp := fail("a valid email address is required for the reminder")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}
			if strings.TrimSpace(in.Subject) == "" {
				resp := fail("a reminder subject is required")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}

			runAt, err := time.Parse(time.RFC3339, in.RunAt)
			if err != nil {
				resp := fail("the reminder date must be an RFC3339 timestamp")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}
			if !runAt.After(time.Now()) {
				resp := fail("the reminder date must be in the future")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}

			spent, denied := deps.spend(ctx, tc, deps.Costs.Reminder)
			if denied != nil {
				deps.track(tc, ToolScheduleReminder, false, denied.Message, "", nil)
				return denied
			}

			id, err := deps.Scheduler.Schedule(ctx, scheduler.TaskReminder, map[string]any{
				"email":   in.Email,
				"subject": in.Subject,
				"body":    in.Body,
			}, runAt)
			if err != nil {
				deps.refund(ctx, tc, spent)
				logx.Error().Err(err).Str("chatbot_id", tc.ChatbotIDOrEmpty()).Msg("Reminder scheduling failed")
				resp := fail("the reminder could not be scheduled right now")
				deps.track(tc, ToolScheduleReminder, false, resp.Message, "", nil)
				return resp
			}

			resp := ok("reminder scheduled for "+runAt.Format(time.RFC1123), map[string]any{
				"reminder_id": id,
				"run_at":      runAt.Format(time.RFC3339),
			})
			deps.track(tc, ToolScheduleReminder, true, "", resp.Message, map[string]any{"reminder_id": id})
			return resp
		},
	}
}
