package main

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/humwire/humwire/engine/assistant"
	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/journal"
	"github.com/humwire/humwire/engine/knowledge"
	"github.com/humwire/humwire/engine/plans"
	"github.com/humwire/humwire/pkg/metrics"
	"github.com/humwire/humwire/pkg/mid"
)

//go:embed templates
var templateFS embed.FS

var pageTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"swatch": swatch,
}).ParseFS(templateFS, "templates/index.html"))

// planStore is the plan archive; *plans.Store implements it.
type planStore interface {
	Save(ctx context.Context, p plans.Plan) (plans.Plan, error)
	Get(ctx context.Context, id string) (plans.Plan, error)
	List(ctx context.Context, offset, limit int) ([]plans.Plan, error)
	Delete(ctx context.Context, id string) error
}

type server struct {
	registry  *domain.Registry
	assistant *assistant.Assistant
	knowledge *knowledge.Base
	plans     planStore // nil when Neo4j is not configured
	journal   journal.Journal
	metrics   *metrics.Registry
	logger    *slog.Logger
}

func (s *server) routes(corsOrigin string, askRPS float64) http.Handler {
	askLimit := mid.RateLimit(askRPS, 5, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /api/presets/{name}", s.handlePreset)
	mux.HandleFunc("POST /api/assignment/validate", s.handleValidate)
	mux.HandleFunc("POST /api/phase", s.handlePhase)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/steps/{n}", s.handleStep)
	mux.Handle("POST /api/ask", askLimit(http.HandlerFunc(s.handleAsk)))
	mux.Handle("POST /api/ask/stream", askLimit(http.HandlerFunc(s.handleAskStream)))
	mux.HandleFunc("GET /api/diagram.svg", s.handleDiagram)
	mux.HandleFunc("POST /api/plans", s.handleSavePlan)
	mux.HandleFunc("GET /api/plans", s.handleListPlans)
	mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("DELETE /api/plans/{id}", s.handleDeletePlan)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return mid.Chain(mux,
		mid.Recover(s.logger),
		mid.RequestID(),
		mid.Logger(s.logger),
		mid.CORS(corsOrigin),
		mid.OTel("humwire-api"),
		mid.Metrics(s.metrics),
	)
}

// record journals e. Journal failures are logged, never returned to the user.
func (s *server) record(ctx context.Context, e journal.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, e); err != nil {
		s.logger.Warn("journal write failed", "kind", e.Kind, "err", err)
	}
	s.metrics.Counter(metrics.WithLabels("humwire_events_total", "kind", string(e.Kind)), "Journal events by kind.").Inc()
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusOf(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", mid.RequestIDFrom(r.Context()))
	}
	writeJSON(w, status, body)
}
