package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// contextLogger puts a request-scoped logger on the context.
func contextLogger(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.WithFields(map[string]interface{}{
				"requestId": requestIDFromContext(r.Context()),
				"method":    r.Method,
				"path":      r.URL.Path,
			})
			next.ServeHTTP(w, r.WithContext(logger.IntoContext(r.Context(), l)))
		})
	}
}

// errorBoundary turns a panic in any handler into a retryable JSON error
// instead of a dropped connection.
func errorBoundary(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.FromContext(r.Context(), base).Error("Handler panicked", map[string]interface{}{
						"panic": fmt.Sprint(rec),
						"stack": string(debug.Stack()),
					})
					writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
						"error": errorDetail{
							Code:      "INTERNAL_ERROR",
							Message:   "Something went wrong",
							Retryable: true,
							RequestID: requestIDFromContext(r.Context()),
						},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// accessLog records every request in metrics and the debug log, labelled by
// chi route pattern so ids do not explode cardinality.
func accessLog(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.APIRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			logger.FromContext(r.Context(), base).Debug("Request served", map[string]interface{}{
				"route":      route,
				"status":     status,
				"durationMs": time.Since(start).Milliseconds(),
			})
		})
	}
}
