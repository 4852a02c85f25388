package router

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/operator"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level. Query strings are left out
// because the redemption link carries the token there.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			// the token travels in the URL; never leak it through Referer
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Pinger reports store health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	RateCard       *ratecard.Handler
	Operator       *operator.Handler
	Authorizer     operator.Authorizer
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string
}

// AllowedOriginsFromEnv splits CORS_ALLOWED_ORIGINS on commas.
func AllowedOriginsFromEnv() []string {
	var out []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				logger.Warnw("health check db ping failed", "err", err)
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// public
	rc := d.RateCard
	mux.HandleFunc("POST /api/rate-card/requests", rc.Submit)
	mux.HandleFunc("GET /api/rate-card", rc.Redeem)

	// operator
	if d.Operator != nil {
		mux.HandleFunc("POST /api/operator/login", d.Operator.Login)
	}
	guard := operator.Require(d.Authorizer, logger)
	mux.Handle("GET /api/operator/requests", guard(http.HandlerFunc(rc.List)))
	mux.Handle("GET /api/operator/requests/stats", guard(http.HandlerFunc(rc.Stats)))
	mux.Handle("GET /api/operator/requests/{id}", guard(http.HandlerFunc(rc.Get)))
	mux.Handle("POST /api/operator/requests/{id}/approve", guard(http.HandlerFunc(rc.Approve)))
	mux.Handle("GET /api/operator/requests/{id}/message", guard(http.HandlerFunc(rc.Message)))
	mux.Handle("DELETE /api/operator/requests/{id}", guard(http.HandlerFunc(rc.Delete)))

	var handler http.Handler = SecurityHeadersMiddleware()(mux)
	if len(d.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
		}).Handler(handler)
	}
	return LoggingMiddleware(logger)(handler)
}
