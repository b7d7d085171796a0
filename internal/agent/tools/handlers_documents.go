package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

const (
	parseTimeout   = 60 * time.Second
	reportTTL      = 24 * time.Hour
	maxParsePages  = 500
	parseModeBasic = "basic"
	parseModeOCR   = "ocr"
)

type parseDocumentInput struct {
	DocumentID string `json:"document_id"`
	PageCount  int    `json:"page_count"`
	Mode       string `json:"mode,omitempty"`
}

func newParseDocumentTool(deps *Deps) Tool {
	return Tool{
		Name:       ToolParseDocument,
		TenantOnly: true,
		// Cost is computed per call from the page count; the static field
		// stays zero so the registry does not double-charge.
		Cost: 0,
		Info: &schema.ToolInfo{
			Name: ToolParseDocument,
			Desc: "Extract the text of an uploaded document so it can be added to the knowledge base. Credit cost scales with page count and parsing mode.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"document_id": {
					Type:     "string",
					Desc:     "Identifier of the uploaded document",
					Required: true,
				},
				"page_count": {
					Type:     "number",
					Desc:     "Number of pages, from the upload record",
					Required: true,
				},
				"mode": {
					Type: "string",
					Desc: "Parsing mode: basic (default) or ocr for scanned documents",
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			if tc.IsPlatformAssistant() {
				resp := fail("documents can only be parsed for a specific chatbot")
				deps.track(tc, ToolParseDocument, false, resp.Message, "", nil)
				return resp
			}

			var in parseDocumentInput
			if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.DocumentID) == "" {
				resp := fail("a document id is required")
				deps.track(tc, ToolParseDocument, false, resp.Message, "", nil)
				return resp
			}
			if in.PageCount <= 0 || in.PageCount > maxParsePages {
				resp := fail(fmt.Sprintf("page count must be between 1 and %d", maxParsePages))
				deps.track(tc, ToolParseDocument, false, resp.Message, "", nil)
				return resp
			}
			mode := strings.ToLower(strings.TrimSpace(in.Mode))
			if mode == "" {
				mode = parseModeBasic
			}
			if mode != parseModeBasic && mode != parseModeOCR {
				resp := fail("parsing mode must be basic or ocr")
				deps.track(tc, ToolParseDocument, false, resp.Message, "", nil)
				return resp
			}

			cost := deps.Costs.ParseCost(mode, in.PageCount)
			spent, denied := deps.spend(ctx, tc, cost)
			if denied != nil {
				deps.track(tc, ToolParseDocument, false, denied.Message, "", map[string]any{"cost": cost})
				return denied
			}

			parseCtx, cancel := context.WithTimeout(ctx, parseTimeout)
			defer cancel()

			report, err := deps.Parser.Parse(parseCtx, in.DocumentID, mode)
			if err != nil {
				deps.refund(ctx, tc, spent)
				logx.Error().Err(err).Str("document_id", in.DocumentID).Msg("Document parsing failed")
				resp := fail("the document could not be parsed right now")
				deps.track(tc, ToolParseDocument, false, resp.Message, "", map[string]any{"cost": cost})
				return resp
			}

			reportKey := fmt.Sprintf("parse:%s:%s", *tc.ChatbotID, in.DocumentID)
			if err := deps.Blobs.Put(ctx, reportKey, report, reportTTL); err != nil {
				// The parse succeeded; losing the cached report is not worth
				// failing the tool over.
				logx.Warn().Err(err).Str("report_key", reportKey).Msg("Report store write failed")
			}

			resp := ok(fmt.Sprintf("document parsed (%d pages, %d credits)", in.PageCount, cost), map[string]any{
				"report_key": reportKey,
				"pages":      in.PageCount,
				"cost":       cost,
				"mode":       mode,
			})
			deps.track(tc, ToolParseDocument, true, "", resp.Message, map[string]any{"cost": cost, "pages": in.PageCount})
			return resp
		},
	}
}
