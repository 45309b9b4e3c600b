package protocol

import "net/http"

// Kind classifies a request failure. Every kind maps to exactly one
// HTTP status and one recovery hint shown to the caller.
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindInvalidToken       Kind = "invalid_token"
	KindInsufficientScope  Kind = "insufficient_scope"
	KindRateLimited        Kind = "rate_limited"
	KindBadArguments       Kind = "bad_arguments"
	KindUnknownTool        Kind = "unknown_tool"
	KindUnsupportedMethod  Kind = "unsupported_method"
	KindSnapshotIncomplete Kind = "snapshot_incomplete"
	KindInternal           Kind = "internal"
)

// Fault is a classified request failure. Detail is safe to show to the
// caller; internal faults never carry the underlying error text.
type Fault struct {
	Kind   Kind
	Detail string
}

func (f *Fault) Error() string {
	return f.Detail
}

// StatusCode returns the HTTP status for the fault's kind.
func (f *Fault) StatusCode() int {
	switch f.Kind {
	case KindInvalidRequest, KindInvalidToken:
		return http.StatusUnauthorized
	case KindInsufficientScope:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindBadArguments, KindUnsupportedMethod:
		return http.StatusBadRequest
	case KindUnknownTool:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RecoverySteps returns the caller-facing recovery hint for the fault's
// kind.
func (f *Fault) RecoverySteps() []string {
	switch f.Kind {
	case KindInvalidRequest, KindInvalidToken:
		return []string{"Obtain a fresh bearer token from the authorization server and retry the request."}
	case KindInsufficientScope:
		return []string{"Request a token carrying the scope named in the WWW-Authenticate header, then retry."}
	case KindRateLimited:
		return []string{"Wait for Retry-After seconds, then retry the request."}
	case KindBadArguments:
		return []string{"Correct the tool arguments to match the tool's input schema and retry."}
	case KindUnknownTool:
		return []string{"Retry using a tool name returned by tools/list."}
	case KindUnsupportedMethod:
		return []string{"Retry with a supported MCP method: initialize, tools/list, or tools/call."}
	case KindSnapshotIncomplete:
		return []string{"Refresh the fee snapshot with get_fee_snapshot, then retry the estimate."}
	default:
		return []string{"Retry the request. If the issue persists, contact support with X-Request-ID."}
	}
}

// Body renders the fault as the error payload for a response.
func (f *Fault) Body(requestID string) ErrorBody {
	return ErrorBody{
		Detail:        f.Detail,
		RecoverySteps: f.RecoverySteps(),
		RequestID:     requestID,
	}
}

// NewFault builds a fault of the given kind with a caller-safe detail
// message.
func NewFault(kind Kind, detail string) *Fault {
	return &Fault{Kind: kind, Detail: detail}
}

// InternalFault is the generic fault for unexpected failures. The
// underlying error is logged server-side, never exposed.
func InternalFault() *Fault {
	return &Fault{Kind: KindInternal, Detail: "Internal error while handling MCP request"}
}
