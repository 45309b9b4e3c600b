package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vicrego/vicrego/internal/auth"
	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/ratelimit"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// requestInfo is shared between pipeline stages for a single request.
// The audit stage creates it; the auth stage fills in the subject once
// the token is verified. A single goroutine serves the whole pipeline,
// so no locking is needed.
type requestInfo struct {
	id      string
	subject string
}

func infoFromContext(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// RequestIDFromContext returns the request id assigned by the audit
// stage, or an empty string outside the pipeline.
func RequestIDFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.id
	}
	return ""
}

// SubjectFromContext returns the verified token subject, or an empty
// string when auth is disabled or the token carries no sub claim.
func SubjectFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.subject
	}
	return ""
}

// auditRequests assigns or reuses the X-Request-ID header, echoes it on
// the response, and emits one structured completion line per request.
func (sc *ServerContext) auditRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		info := &requestInfo{id: requestID}
		ctx := context.WithValue(r.Context(), requestInfoKey, info)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		latency := time.Since(start)
		attrs := []any{
			logging.RequestID(requestID),
			slog.String(logging.KeyMethod, r.Method),
			slog.String(logging.KeyPath, r.URL.Path),
			slog.Int(logging.KeyStatus, ww.Status()),
			slog.Int64(logging.KeyLatencyMS, latency.Milliseconds()),
			slog.String(logging.KeyClientIP, clientIP(r)),
			slog.String(logging.KeyUserAgent, r.UserAgent()),
		}
		if info.subject != "" {
			attrs = append(attrs, logging.Subject(info.subject))
		}
		sc.logger.Info("request completed", attrs...)

		if m := sc.Metrics(); m != nil {
			m.RecordHTTPRequest(ctx, r.Method, r.URL.Path, ww.Status(), latency)
		}
	})
}

// requireAuth verifies the bearer token on protected routes. When no
// authenticator is configured the stage passes every request through.
func (sc *ServerContext) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc.auth == nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, authErr := sc.auth.ValidateAuthorizationHeader(r.Context(), r.Header.Get("Authorization"))
		if authErr != nil {
			w.Header().Set("WWW-Authenticate", sc.auth.ChallengeHeader(authErr.Code, authErr.Message))
			sc.logger.Warn("bearer auth rejected",
				logging.Operation("auth"),
				logging.Status(logging.StatusDenied),
				logging.RequestID(RequestIDFromContext(r.Context())),
				logging.Err(authErr),
			)
			if m := sc.Metrics(); m != nil {
				m.RecordAuthFailure(r.Context(), authErr.Code)
			}
			writeFault(w, r, authFault(authErr))
			return
		}

		if info := infoFromContext(r.Context()); info != nil {
			info.subject = auth.Subject(claims)
		}
		next.ServeHTTP(w, r)
	})
}

// enforceRateLimit admits or denies the request by identity. It runs
// after auth so a verified subject takes priority over the client
// address.
func (sc *ServerContext) enforceRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ratelimit.Identity(SubjectFromContext(r.Context()), r)
		decision := sc.limiter.Check(identity)
		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
			sc.logger.Warn("rate limit exceeded",
				logging.Operation("ratelimit"),
				logging.Status(logging.StatusDenied),
				logging.RequestID(RequestIDFromContext(r.Context())),
				logging.Identity(identity),
			)
			if m := sc.Metrics(); m != nil {
				m.RecordRateLimitDenied(r.Context())
			}
			writeFault(w, r, protocol.NewFault(protocol.KindRateLimited, "Too many requests for this identity."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authFault maps an auth error onto the response fault taxonomy.
func authFault(authErr *auth.Error) *protocol.Fault {
	switch authErr.Code {
	case auth.ErrorInvalidRequest:
		return protocol.NewFault(protocol.KindInvalidRequest, authErr.Message)
	case auth.ErrorInsufficientScope:
		return protocol.NewFault(protocol.KindInsufficientScope, authErr.Message)
	default:
		return protocol.NewFault(protocol.KindInvalidToken, authErr.Message)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
