package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/blissito/formmy-agent-core/internal/cache"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

const (
	searchTimeout     = 10 * time.Second
	webSearchCacheTTL = 15 * time.Minute
	defaultTopK       = 5
)

type searchContextInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func newSearchContextTool(deps *Deps) Tool {
	return Tool{
		Name: ToolSearchContext,
		Cost: deps.Costs.ContextQuery,
		Info: &schema.ToolInfo{
			Name: ToolSearchContext,
			Desc: "Search this business's knowledge base for information relevant to the visitor's question. Always prefer this over answering from memory when the question is about the business.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search query derived from the visitor's question",
					Required: true,
				},
				"top_k": {
					Type: "number",
					Desc: "Maximum results to return (default 5, max 10)",
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in searchContextInput
			if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Query) == "" {
				resp := fail("a search query is required")
				deps.track(tc, ToolSearchContext, false, resp.Message, "", nil)
				return resp
			}
			if in.TopK <= 0 || in.TopK > 10 {
				in.TopK = defaultTopK
			}

			tenant := tc.ChatbotIDOrEmpty()
			if tenant == "" {
				// Ghosty searches the platform's own help content.
				tenant = "platform"
			}

			if overDailyLimit(ctx, deps, tenant, ToolSearchContext, deps.Costs.ContextQueryDailyLimit) {
				resp := fail("the daily knowledge-base search limit was reached, try again tomorrow")
				deps.track(tc, ToolSearchContext, false, resp.Message, "", nil)
				return resp
			}

			spent, denied := deps.spend(ctx, tc, deps.Costs.ContextQuery)
			if denied != nil {
				deps.track(tc, ToolSearchContext, false, denied.Message, "", nil)
				return denied
			}

			searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
			defer cancel()

			results, err := deps.Searcher.Search(searchCtx, in.Query, tenant, in.TopK)
			if err != nil {
				deps.refund(ctx, tc, spent)
				logx.Error().Err(err).Str("tenant", tenant).Msg("Context search failed")
				resp := fail("the knowledge base could not be searched right now")
				deps.track(tc, ToolSearchContext, false, resp.Message, "", nil)
				return resp
			}

			resp := ok(renderResults(results), map[string]any{"results": results, "total": len(results)})
			deps.track(tc, ToolSearchContext, true, "", resp.Message, map[string]any{"total": len(results)})
			return resp
		},
	}
}

type webSearchInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

func newWebSearchTool(deps *Deps) Tool {
	return Tool{
		Name: ToolWebSearch,
		Cost: deps.Costs.WebSearch,
		Info: &schema.ToolInfo{
			Name: ToolWebSearch,
			Desc: "Search the public web for up-to-date information the knowledge base does not cover. Use sparingly; results are cached.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Web search query",
					Required: true,
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum results to return (default 5, max 10)",
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in webSearchInput
			if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Query) == "" {
				resp := fail("a search query is required")
				deps.track(tc, ToolWebSearch, false, resp.Message, "", nil)
				return resp
			}
			if in.MaxResults <= 0 || in.MaxResults > 10 {
				in.MaxResults = defaultTopK
			}

			tenant := tc.ChatbotIDOrEmpty()
			cacheKey := tenant + ":" + strings.ToLower(strings.TrimSpace(in.Query))

			// Cache hits are free: no spend, no quota consumption.
			if cached, err := deps.Cache.Get(ctx, cacheKey); err == nil {
				resp := ok(cached, map[string]any{"cached": true})
				deps.track(tc, ToolWebSearch, true, "", cached, map[string]any{"cached": true})
				return resp
			} else if err != cache.ErrMiss {
				logx.Warn().Err(err).Msg("Web search cache lookup failed")
			}

			if overDailyLimit(ctx, deps, tenant, ToolWebSearch, deps.Costs.WebSearchDailyLimit) {
				resp := fail("the daily web search limit was reached, try again tomorrow")
				deps.track(tc, ToolWebSearch, false, resp.Message, "", nil)
				return resp
			}

			spent, denied := deps.spend(ctx, tc, deps.Costs.WebSearch)
			if denied != nil {
				deps.track(tc, ToolWebSearch, false, denied.Message, "", nil)
				return denied
			}

			searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
			defer cancel()

			results, err := deps.Web.Search(searchCtx, in.Query, in.MaxResults)
			if err != nil {
				deps.refund(ctx, tc, spent)
				logx.Error().Err(err).Msg("Web search failed")
				resp := fail("the web could not be searched right now")
				deps.track(tc, ToolWebSearch, false, resp.Message, "", nil)
				return resp
			}

			rendered := renderResults(results)
			if err := deps.Cache.Set(ctx, cacheKey, rendered, webSearchCacheTTL); err != nil {
				logx.Warn().Err(err).Msg("Web search cache write failed")
			}

			resp := ok(rendered, map[string]any{"results": results, "total": len(results)})
			deps.track(tc, ToolWebSearch, true, "", rendered, map[string]any{"total": len(results)})
			return resp
		},
	}
}

// overDailyLimit checks the per-chatbot daily counter maintained by the
// usage store. Counter failures fail open: losing a quota check is better
// than losing the turn.
func overDailyLimit(ctx context.Context, deps *Deps, chatbotID, toolName string, limit int) bool {
	if limit <= 0 || deps.UsageStore == nil {
		return false
	}
	n, err := deps.UsageStore.CountToday(ctx, chatbotID, toolName)
	if err != nil {
		logx.Warn().Err(err).Str("tool", toolName).Msg("Daily limit check failed, allowing call")
		return false
	}
	return n >= limit
}

func renderResults(results []SearchResult) string {
	if len(results) == 0 {
		return "no results found"
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(r.Content))
	}
	return b.String()
}
