package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stocktracker/pkg/stocktracker"
)

// slowRequestThreshold marks successful requests worth a warning, mostly
// market-data calls stuck behind a slow upstream.
const slowRequestThreshold = 3 * time.Second

// statusRecorder captures the response status and the error message set by
// writeErrorResponse.
type statusRecorder struct {
	middleware.WrapResponseWriter
	errorMessage string
}

func (w *statusRecorder) SetErrorMessage(message string) { w.errorMessage = message }

func (w *statusRecorder) Flush() {
	if flusher, ok := w.WrapResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// accessEntry is one completed request.
type accessEntry struct {
	r       *http.Request
	status  int
	bytes   int
	elapsed time.Duration
	errMsg  string
}

func (e accessEntry) level() slog.Level {
	switch {
	case e.status >= http.StatusInternalServerError:
		return slog.LevelError
	case e.status >= http.StatusBadRequest, e.elapsed >= slowRequestThreshold:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (e accessEntry) message() string {
	if e.status < http.StatusBadRequest && e.elapsed >= slowRequestThreshold {
		return "http request slow"
	}
	return "http request completed"
}

func (e accessEntry) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("request_id", middleware.GetReqID(e.r.Context())),
		slog.String("method", e.r.Method),
		slog.String("path", e.r.URL.Path),
		slog.String("route", routePattern(e.r)),
		slog.String("query", e.r.URL.RawQuery),
		slog.Int("status", e.status),
		slog.Int("bytes", e.bytes),
		slog.Int64("duration_ms", e.elapsed.Milliseconds()),
		slog.String("remote_ip", e.r.RemoteAddr),
	}
	if symbol := chi.URLParam(e.r, "symbol"); symbol != "" {
		attrs = append(attrs, slog.String("symbol", symbol))
	}
	if e.errMsg != "" {
		attrs = append(attrs, slog.String("error_message", e.errMsg))
	}
	return attrs
}

// accessLog logs every request once it completes: 5xx at ERROR, 4xx and slow
// requests at WARN.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}

			next.ServeHTTP(rec, r)

			entry := accessEntry{
				r:       r,
				status:  rec.Status(),
				bytes:   rec.BytesWritten(),
				elapsed: time.Since(start),
				errMsg:  rec.errorMessage,
			}
			if entry.status == 0 {
				entry.status = http.StatusOK
			}
			logger.LogAttrs(r.Context(), entry.level(), entry.message(), entry.attrs()...)
		})
	}
}

// recoverPanics turns a handler panic into a logged INTERNAL_ERROR response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func recoverPanics(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logger.Error("panic recovered",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"route", routePattern(r),
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeErrorResponse(w, r, http.StatusInternalServerError,
					stocktracker.NewError(stocktracker.ErrCodeInternal, "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
