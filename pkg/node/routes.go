package node

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/internal/telemetry"
)

// Routes wires the HTTP surface. Every route also matches with a trailing
// slash.
func (n *Node) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(n.logRequests)

	r.Method(http.MethodGet, "/state", telemetry.Instrument("state", http.HandlerFunc(n.State)))
	r.Method(http.MethodGet, "/state/{addr}", telemetry.Instrument("join", http.HandlerFunc(n.Join)))
	r.Method(http.MethodGet, "/diag", telemetry.Instrument("diag", http.HandlerFunc(n.Diag)))
	r.Method(http.MethodGet, "/ping", telemetry.Instrument("ping", http.HandlerFunc(n.Ping)))
	r.Handle("/metrics", telemetry.MetricsHandler())

	return r
}

func (n *Node) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		n.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
