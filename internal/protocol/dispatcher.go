package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

const jsonRPCVersion = "2.0"

// ServerInfo identifies the server in initialize results.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SecurityScheme declares how callers authenticate.
type SecurityScheme struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InitializeResult is the static metadata returned for initialize.
type InitializeResult struct {
	ProtocolVersion string           `json:"protocolVersion"`
	ServerInfo      ServerInfo       `json:"serverInfo"`
	Capabilities    Capabilities     `json:"capabilities"`
	SecuritySchemes []SecurityScheme `json:"securitySchemes"`
}

// Capabilities flags what the server supports.
type Capabilities struct {
	Tools ToolCapabilities `json:"tools"`
}

// ToolCapabilities flags tool-related capabilities.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged"`
}

// ListResult is the tools/list result payload.
type ListResult struct {
	Tools []*ToolDef `json:"tools"`
}

// Dispatcher routes decoded requests to the protocol operations.
type Dispatcher struct {
	registry        *Registry
	info            ServerInfo
	securitySchemes []SecurityScheme
}

// NewDispatcher builds a dispatcher over the given tool registry.
// authConfigured selects the security schemes advertised by initialize.
func NewDispatcher(registry *Registry, info ServerInfo, authConfigured bool) *Dispatcher {
	schemes := []SecurityScheme{{Type: "noauth"}}
	if authConfigured {
		schemes = []SecurityScheme{{
			Type:        "oauth2",
			Description: "Bearer token required for calling protected MCP methods.",
		}}
	}
	return &Dispatcher{registry: registry, info: info, securitySchemes: schemes}
}

// Dispatch executes the request's method and returns the response, or a
// classified fault the HTTP layer renders into an error body.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, *Fault) {
	method, ok := ParseMethod(req.Method)
	if !ok {
		return nil, NewFault(KindUnsupportedMethod, fmt.Sprintf("Unsupported MCP method: %s", req.Method))
	}

	switch method {
	case MethodInitialize:
		return d.respond(req, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      d.info,
			Capabilities:    Capabilities{Tools: ToolCapabilities{ListChanged: false}},
			SecuritySchemes: d.securitySchemes,
		}), nil
	case MethodToolsList:
		return d.respond(req, ListResult{Tools: d.registry.List()}), nil
	default:
		return d.call(ctx, req)
	}
}

func (d *Dispatcher) call(ctx context.Context, req *Request) (*Response, *Fault) {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, NewFault(KindBadArguments, "Tool call parameters must be an object.")
		}
	}

	def, ok := d.registry.Get(params.Name)
	if !ok {
		return nil, NewFault(KindUnknownTool, fmt.Sprintf("Unknown tool %s", params.Name))
	}

	args := map[string]any{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, NewFault(KindBadArguments, "Tool arguments must be an object.")
		}
	}

	envelope, err := def.Handler(ctx, args)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			return nil, fault
		}
		slog.Error("tool handler failed", "tool", params.Name, "error", err)
		return nil, InternalFault()
	}

	return d.respond(req, CallResult{
		Content:           []ContentBlock{{Type: "text", Text: envelope.Content}},
		StructuredContent: envelope.StructuredContent,
		Meta:              envelope.Meta,
	}), nil
}

func (d *Dispatcher) respond(req *Request, result any) *Response {
	return &Response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result}
}
