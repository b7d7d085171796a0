package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/agent/resolver"
	"github.com/blissito/formmy-agent-core/internal/agent/tools"
	"github.com/blissito/formmy-agent-core/internal/plan"
)

//go:embed template/system_prompt.txt
var tenantSystemPrompt string

//go:embed template/platform_prompt.txt
var platformSystemPrompt string

// RenderSystem renders the system prompt for a tenant chatbot turn from the
// resolved configuration. The context list arrives already trimmed to the
// plan ceiling, so everything in it is inlined.
func RenderSystem(ctx context.Context, cfg *resolver.ResolvedConfig) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tenantSystemPrompt),
	)
	vars := map[string]any{
		"Instructions":       cfg.Instructions,
		"CustomInstructions": cfg.CustomInstructions,
		"Personality":        cfg.Personality,
		"Goodbye":            cfg.GoodbyeMessage,
		"Contexts":           renderContexts(cfg),
		"SearchTool":         tools.ToolSearchContext,
	}
	return render(ctx, tpl, vars)
}

// RenderPlatformSystem renders the system prompt for the platform assistant.
func RenderPlatformSystem(ctx context.Context, p plan.Plan) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(platformSystemPrompt),
	)
	vars := map[string]any{
		"Plan":        string(p),
		"SearchTool":  tools.ToolSearchContext,
		"UpgradeTool": tools.ToolGeneratePlanPaymentLink,
	}
	return render(ctx, tpl, vars)
}

func render(ctx context.Context, tpl prompt.ChatTemplate, vars map[string]any) (string, error) {
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

func renderContexts(cfg *resolver.ResolvedConfig) string {
	if len(cfg.Contexts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, item := range cfg.Contexts {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = item.SourceType
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", title, strings.TrimSpace(item.Content))
	}
	return strings.TrimSpace(b.String())
}
