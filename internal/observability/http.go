package observability

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConsumerHandle is the subset of *consumer.Handle the admin surface
// needs. Declared locally (rather than importing internal/consumer
// directly) so this package stays a leaf dependency of the consumer
// package instead of completing an import cycle through it.
type ConsumerHandle interface {
	Started() bool
	Stopped() bool
	Iterations() uint64
}

// AdminServer exposes liveness, readiness, metrics, and a snapshot of a
// running consumer for operators, the Go-native replacement for the
// original library's bare example-binary println output.
type AdminServer struct {
	Handle       ConsumerHandle
	Category     string
	StoreCheck   func() error
	LastPosition func() uint64
}

// BuildRouter constructs the admin HTTP handler with the middleware stack
// the teacher's main HTTP server uses (CORS, rate-limited admin routes,
// request metrics), scoped down to an operator-only surface.
func (s *AdminServer) BuildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(60, time.Minute))
		wr.Get("/admin/consumer", s.AdminConsumerHandler())
	})

	r.Get("/healthz", s.HealthzHandler())
	r.Get("/readyz", s.ReadyzHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// HealthzHandler reports bare process liveness.
func (s *AdminServer) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadyzHandler reports started()/stopped() plus store reachability.
func (s *AdminServer) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type readiness struct {
			Started bool   `json:"started"`
			Stopped bool   `json:"stopped"`
			Store   string `json:"store"`
		}

		resp := readiness{Store: "ok"}
		if s.Handle != nil {
			resp.Started = s.Handle.Started()
			resp.Stopped = s.Handle.Stopped()
		}
		status := http.StatusOK
		if s.StoreCheck != nil {
			if err := s.StoreCheck(); err != nil {
				resp.Store = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// AdminConsumerHandler returns a JSON snapshot of the running consumer:
// iterations, started/stopped, and the position store's last-known
// position.
func (s *AdminServer) AdminConsumerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type snapshot struct {
			Category   string `json:"category"`
			Iterations uint64 `json:"iterations"`
			Started    bool   `json:"started"`
			Stopped    bool   `json:"stopped"`
			Position   uint64 `json:"position,omitempty"`
		}

		resp := snapshot{Category: s.Category}
		if s.Handle != nil {
			resp.Iterations = s.Handle.Iterations()
			resp.Started = s.Handle.Started()
			resp.Stopped = s.Handle.Stopped()
		}
		if s.LastPosition != nil {
			resp.Position = s.LastPosition()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
