package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/eino/schema"
)

type currentTimeInput struct {
	Timezone string `json:"timezone,omitempty"`
}

func newGetCurrentTimeTool(deps *Deps) Tool {
	return Tool{
		Name:       ToolGetCurrentTime,
		Cost:       0,
		TenantOnly: true,
		Info: &schema.ToolInfo{
			Name: ToolGetCurrentTime,
			Desc: "Get the current date and time, optionally in a specific IANA timezone. Use when the visitor asks about opening hours, dates or deadlines.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"timezone": {
					Type: "string",
					Desc: "IANA timezone name such as America/Mexico_City. Defaults to UTC.",
				},
			}),
		},
		Handler: func(ctx context.Context, args json.RawMessage, tc *Context) *Response {
			var in currentTimeInput
			_ = json.Unmarshal(args, &in)

			loc := time.UTC
			if in.Timezone != "" {
				parsed, err := time.LoadLocation(in.Timezone)
				if err != nil {
					resp := fail("unknown timezone: " + in.Timezone)
					deps.track(tc, ToolGetCurrentTime, false, resp.Message, "", nil)
					return resp
				}
				loc = parsed
			}

			now := time.Now().In(loc)
			formatted := now.Format("Monday, January 2, 2006 15:04 MST")
			resp := ok(formatted, map[string]any{
				"iso":      now.Format(time.RFC3339),
				"timezone": loc.String(),
			})
			deps.track(tc, ToolGetCurrentTime, true, "", formatted, nil)
			return resp
		},
	}
}
