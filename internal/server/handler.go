package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vicrego/vicrego/internal/instrumentation"
	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/protocol"
)

// handleRoot answers the unauthenticated service check.
func (sc *ServerContext) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// handleMCP decodes the JSON-RPC body and delegates to the dispatcher.
// Panics are reduced to the generic internal fault so no exception text
// reaches the caller.
func (sc *ServerContext) handleMCP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			sc.logger.Error("panic while handling MCP request",
				logging.Operation("mcp"),
				logging.RequestID(RequestIDFromContext(r.Context())),
				slog.Any("panic", rec),
			)
			writeFault(w, r, protocol.InternalFault())
		}
	}()

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, r, protocol.NewFault(protocol.KindBadArguments, "Request body must be a JSON object."))
		return
	}

	start := time.Now()
	resp, fault := sc.dispatcher.Dispatch(r.Context(), &req)
	sc.recordToolCall(r.Context(), &req, fault, time.Since(start))

	if fault != nil {
		writeFault(w, r, fault)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (sc *ServerContext) recordToolCall(ctx context.Context, req *protocol.Request, fault *protocol.Fault, duration time.Duration) {
	m := sc.Metrics()
	if m == nil || req.Method != string(protocol.MethodToolsCall) {
		return
	}

	var params struct {
		Name string `json:"name"`
	}
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}
	if params.Name == "" {
		return
	}

	status := instrumentation.StatusSuccess
	if fault != nil {
		status = instrumentation.StatusError
	}
	m.RecordToolInvocation(ctx, params.Name, status, duration)
}

func writeFault(w http.ResponseWriter, r *http.Request, fault *protocol.Fault) {
	writeJSON(w, fault.StatusCode(), fault.Body(RequestIDFromContext(r.Context())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
