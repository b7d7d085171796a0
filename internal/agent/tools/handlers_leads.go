package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/leads"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

type saveLeadInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Note  string `json:"note,omitempty"`
}

func newSaveLeadTool(deps *Deps) Tool {
	return Tool{
		Name:       ToolSaveLead,
		Cost:       0,
		TenantOnly: true,
		Info: &schema.ToolInfo{
			Name: ToolSaveLead,
			Desc: "Save a visitor's contact information as a lead for this business. Use when the visitor shares their name and email, or explicitly asks to be contacted.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Visitor's full name",
					Required: true,
				},
				"email": {
					Type:     "string",
					Desc:     "Visitor's email address",
					Required: true,
				},
				"phone": {
					Type: "string",
					Desc: "Optional phone number",
				},
				"note": {
					Type: "string",
					Desc: "Optional free-text note about what the visitor wants",
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			if tc.IsPlatformAssistant() {
				// No tenant, nowhere to attach the lead. Reject explicitly
				// instead of writing an orphan row.
				resp := fail("leads can only be saved for a specific chatbot")
				deps.track(tc, ToolSaveLead, false, resp.Message, "", nil)
				return resp
			}

			var in saveLeadInput
			if err := json.Unmarshal(args, &in); err != nil {
				resp := fail("invalid lead data")
				deps.track(tc, ToolSaveLead, false, resp.Message, "", nil)
				return resp
			}

			in.Name = strings.TrimSpace(in.Name)
			in.Email = strings.TrimSpace(in.Email)
			if in.Name == "" || in.Email == "" {
				resp := fail("a name and an email are required to save a lead")
				deps.track(tc, ToolSaveLead, false, resp.Message, "", nil)
				return resp
			}
			if !strings.Contains(in.Email, "@") {
				resp := fail("the email address does not look valid")
				deps.track(tc, ToolSaveLead, false, resp.Message, "", nil)
				return resp
			}

			lead := &leads.Lead{
				ChatbotID: *tc.ChatbotID,
				Name:      in.Name,
				Email:     in.Email,
				Phone:     strings.TrimSpace(in.Phone),
				Note:      strings.TrimSpace(in.Note),
			}
			if tc.ConversationID != nil {
				lead.ConversationID = *tc.ConversationID
			}

			if err := deps.Leads.Save(ctx, lead); err != nil {
				logx.Error().Err(err).Str("chatbot_id", *tc.ChatbotID).Msg("Saving lead failed")
				resp := fail("the lead could not be saved right now, please try again")
				deps.track(tc, ToolSaveLead, false, resp.Message, "", nil)
				return resp
			}

			resp := ok("lead saved", map[string]any{"lead_id": lead.ID})
			deps.track(tc, ToolSaveLead, true, "", "lead saved", map[string]any{"lead_id": lead.ID})
			return resp
		},
	}
}
