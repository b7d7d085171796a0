package tools

import (
	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/plan"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

// Registry holds the full tool catalog and answers "which tools may this
// turn call". Availability is recomputed on every turn: integration state
// can change between turns, so nothing here is cached across requests.
type Registry struct {
	catalog []Tool
}

// NewRegistry builds the catalog against the given collaborator set.
func NewRegistry(deps *Deps) *Registry {
	return &Registry{
		catalog: []Tool{
			newSearchContextTool(deps),
			newSaveLeadTool(deps),
			newGetCurrentTimeTool(deps),
			newWebSearchTool(deps),
			newCreatePaymentLinkTool(deps),
			newGeneratePlanPaymentLinkTool(deps),
			newScheduleReminderTool(deps),
			newParseDocumentTool(deps),
		},
	}
}

// ToolsFor returns the concrete tool set for one turn.
//
// FREE and ANONYMOUS get read-only context search only. STARTER adds the
// tenant-local tools that touch no third party. Paid tiers get the full
// catalog filtered by connected integrations: offering a tool whose
// integration is disconnected would let the agent promise a capability
// that cannot succeed. The platform assistant has its own allow/deny list.
func (r *Registry) ToolsFor(p plan.Plan, integrations map[string]bool, isPlatformAssistant bool) []Tool {
	selected := make([]Tool, 0, len(r.catalog))

	for _, t := range r.catalog {
		if isPlatformAssistant {
			if t.TenantOnly {
				continue
			}
			// Platform-exclusive tools skip plan gating: Ghosty offers the
			// upgrade payment link precisely to users who have not paid yet.
			if t.PlatformOnly {
				selected = append(selected, t)
				continue
			}
		} else if t.PlatformOnly {
			continue
		}

		if !allowedForPlan(p, t) {
			continue
		}

		if t.RequiredIntegration != "" && !integrations[t.RequiredIntegration] {
			continue
		}

		selected = append(selected, t)
	}

	logx.Debug().
		Str("plan", string(p)).
		Bool("platform_assistant", isPlatformAssistant).
		Int("tools", len(selected)).
		Msg("Tool set resolved for turn")

	return selected
}

// Infos converts a tool set into the metadata bound to the chat model.
func Infos(set []Tool) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(set))
	for _, t := range set {
		infos = append(infos, t.Info)
	}
	return infos
}

// Find returns the tool with the given name from a resolved set.
func Find(set []Tool, name string) (Tool, bool) {
	for _, t := range set {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func allowedForPlan(p plan.Plan, t Tool) bool {
	switch p {
	case plan.Free, plan.Anonymous:
		return t.Name == ToolSearchContext
	case plan.Starter:
		// Tenant-local tools only; nothing that reaches a third party.
		switch t.Name {
		case ToolSearchContext, ToolSaveLead, ToolGetCurrentTime:
			return true
		default:
			return false
		}
	default:
		return plan.IsPaid(p)
	}
}
