package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/humwire/humwire/engine/assistant"
	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/journal"
	"github.com/humwire/humwire/engine/phase"
	"github.com/humwire/humwire/engine/plans"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/engine/wiring"
)

type presetView struct {
	Name         string                `json:"name"`
	Manufacturer string                `json:"manufacturer"`
	Neck         string                `json:"neck"`
	Bridge       string                `json:"bridge"`
	Convention   domain.SignConvention `json:"convention"`
	Colors       []string              `json:"colors"`
}

func viewOf(p domain.Preset) presetView {
	return presetView{
		Name:         p.Name,
		Manufacturer: p.Scheme.Manufacturer,
		Neck:         p.Neck.String(),
		Bridge:       p.Bridge.String(),
		Convention:   p.Scheme.Convention,
		Colors:       []string{p.Scheme.NorthStart, p.Scheme.NorthFinish, p.Scheme.SouthStart, p.Scheme.SouthFinish},
	}
}

func (s *server) presetViews() []presetView {
	var out []presetView
	for _, name := range s.registry.Names() {
		if p, err := s.registry.Preset(name); err == nil {
			out = append(out, viewOf(p))
		}
	}
	return out
}

type stepView struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Guide  string `json:"guide"`
}

func stepOf(n int) stepView {
	return stepView{Number: n, Title: session.StepTitle(n), Guide: assistant.StepGuide(n)}
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	steps := make([]stepView, 0, session.MaxStep)
	for n := 1; n <= session.MaxStep; n++ {
		steps = append(steps, stepOf(n))
	}
	data := struct {
		Presets     []presetView
		Modes       []wiring.Mode
		Steps       []stepView
		Suggestions []string
	}{s.presetViews(), wiring.Modes, steps, assistant.Suggestions}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "err", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"llm_breaker":  s.assistant.BreakerState().String(),
		"semantic_faq": s.knowledge != nil && s.knowledge.Semantic(),
		"plans":        s.plans != nil,
	})
}

func (s *server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.presetViews()})
}

func (s *server) handlePreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.Preset(r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a := p.Assignment()
	writeJSON(w, http.StatusOK, map[string]any{
		"preset":     viewOf(p),
		"assignment": a,
		"entries":    a.Entries(),
	})
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var a domain.WireColorAssignment
	if err := decode(w, r, &a); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := domain.ValidateAssignment(a); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "entries": a.Entries()})
}

// probeInput is a probe reading given either as a signed delta or as an
// observation label ("increase", "decrease", ...).
type probeInput struct {
	Positive    string   `json:"positive"`
	Ground      string   `json:"ground"`
	Delta       *float64 `json:"delta,omitempty"`
	Observation string   `json:"observation,omitempty"`
}

func (p probeInput) result() (phase.ProbeResult, error) {
	if p.Delta != nil {
		return phase.ProbeResult{Positive: p.Positive, Ground: p.Ground, Delta: *p.Delta}, nil
	}
	return phase.FromObservation(p.Positive, p.Ground, p.Observation)
}

type phaseRequest struct {
	Coil       phase.Coil   `json:"coil"`
	Probes     []probeInput `json:"probes"`
	Convention string       `json:"convention,omitempty"`
}

func (s *server) handlePhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	conv, err := domain.ParseSignConvention(req.Convention)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	probes := make([]phase.ProbeResult, 0, len(req.Probes))
	for _, p := range req.Probes {
		pr, err := p.result()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		probes = append(probes, pr)
	}
	a, err := phase.Resolve(req.Coil, probes, conv)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignment": a, "convention": conv})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var st session.State
	if err := decode(w, r, &st); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := session.Analyze(r.Context(), s.registry, st)
	if err != nil {
		s.record(r.Context(), journal.Event{Kind: journal.KindError, Session: st.ID, Step: st.Step,
			Payload: map[string]any{"op": "analyze", "kind": domain.Kind(err), "error": err.Error()}})
		s.fail(w, r, err)
		return
	}
	s.record(r.Context(), journal.Event{Kind: journal.KindAnalyze, Session: st.ID, Step: st.Step,
		Payload: map[string]any{"preset": st.Preset, "mode": string(a.Mode), "steps": len(a.Steps)}})
	writeJSON(w, http.StatusOK, a)
}

func (s *server) handleStep(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > session.MaxStep {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: fmt.Sprintf("step must be between 1 and %d", session.MaxStep), Kind: "not_found", Field: "n"})
		return
	}
	writeJSON(w, http.StatusOK, stepOf(n))
}

func (s *server) askEvent(q assistant.Question, ans assistant.Answer) journal.Event {
	return journal.Event{Kind: journal.KindAsk, Session: q.State.ID, Step: q.State.Step,
		Payload: map[string]any{"question": q.Text, "source": string(ans.Source), "reason": ans.Reason}}
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var q assistant.Question
	if err := decode(w, r, &q); err != nil {
		s.fail(w, r, err)
		return
	}
	ans := s.assistant.Ask(r.Context(), q)
	s.record(r.Context(), s.askEvent(q, ans))
	writeJSON(w, http.StatusOK, ans)
}

// handleAskStream answers over server-sent events: "token" events carry
// text as it is generated, "replace" tells the client to discard what it
// showed and display the given text instead, "done" carries the final answer.
func (s *server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	var q assistant.Question
	if err := decode(w, r, &q); err != nil {
		s.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	ans := s.assistant.Stream(r.Context(), q, func(chunk string) error {
		return send("token", map[string]string{"token": chunk})
	})
	if ans.Source == assistant.SourceFiltered {
		_ = send("replace", map[string]string{"text": ans.Text, "reason": ans.Reason})
	}
	_ = send("done", ans)
	s.record(r.Context(), s.askEvent(q, ans))
}

func (s *server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st := session.State{
		Preset:     q.Get("preset"),
		Mode:       q.Get("mode"),
		SplitCoil:  q.Get("split"),
		Convention: q.Get("convention"),
	}
	if st.Preset == "" {
		s.fail(w, r, domain.NewValidationError("preset", "", domain.ErrUnknownPreset))
		return
	}
	a, err := session.Analyze(r.Context(), s.registry, st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := renderDiagram(w, a); err != nil {
		s.logger.Error("render diagram", "err", err)
	}
}

func (s *server) requirePlans(w http.ResponseWriter) bool {
	if s.plans == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "plan archive is not configured", Kind: "unavailable"})
		return false
	}
	return true
}

func (s *server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePlans(w) {
		return
	}
	var st session.State
	if err := decode(w, r, &st); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := session.Analyze(r.Context(), s.registry, st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.plans.Save(r.Context(), plans.FromAnalysis(a, st.Preset))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.record(r.Context(), journal.Event{Kind: journal.KindPlan, Session: st.ID, Step: st.Step,
		Payload: map[string]any{"plan_id": p.ID, "mode": string(p.Mode)}})
	w.Header().Set("Location", "/api/plans/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if !s.requirePlans(w) {
		return
	}
	list, err := s.plans.List(r.Context(), queryInt(r, "offset", 0), min(queryInt(r, "limit", 20), 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []plans.Plan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": list})
}

func (s *server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePlans(w) {
		return
	}
	p, err := s.plans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePlans(w) {
		return
	}
	if err := s.plans.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
