package protocol

import (
	"encoding/json"
	"time"
)

// Request is the JSON-RPC style body accepted on the MCP route.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response mirrors the request id and wraps a method-specific result.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

// ErrorBody is the machine-readable error payload returned for failed
// requests.
type ErrorBody struct {
	Detail        string   `json:"detail"`
	RecoverySteps []string `json:"recovery_steps"`
	RequestID     string   `json:"request_id"`
}

// callParams carries the tool name and arguments of a tools/call
// request. Arguments stay raw so a non-object value can be reported as
// bad arguments rather than a decode failure.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ContentBlock is a single entry of a tool result's content list.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result payload of a tools/call response.
type CallResult struct {
	Content           []ContentBlock `json:"content"`
	StructuredContent map[string]any `json:"structuredContent"`
	Meta              Meta           `json:"meta"`
}

// Envelope is what a tool handler produces: a text summary, the
// tool-specific structured payload, and widget metadata.
type Envelope struct {
	Content           string
	StructuredContent map[string]any
	Meta              Meta
}

// Meta carries the widget template reference and data freshness
// attached to every tool result.
type Meta struct {
	OutputTemplate    string        `json:"openai_output_template"`
	WidgetDescription string        `json:"widgetDescription"`
	DataFreshness     DataFreshness `json:"data_freshness"`
}

// DataFreshness describes how current the data behind a tool result is.
type DataFreshness struct {
	Status        string `json:"status"`
	LastRefresh   string `json:"last_refresh"`
	RefreshPolicy string `json:"refresh_policy"`
}

const (
	widgetTemplate    = "ui://widget/index.html"
	widgetDescription = "Vic Rego Estimator widget with form, itemised fee breakdown, confidence and assumptions."
	refreshPolicy     = "monthly"
)

// NewMeta builds the standard result metadata for the given freshness
// status and refresh time.
func NewMeta(status string, refreshedAt time.Time) Meta {
	return Meta{
		OutputTemplate:    widgetTemplate,
		WidgetDescription: widgetDescription,
		DataFreshness: DataFreshness{
			Status:        status,
			LastRefresh:   refreshedAt.Format(time.RFC3339),
			RefreshPolicy: refreshPolicy,
		},
	}
}
