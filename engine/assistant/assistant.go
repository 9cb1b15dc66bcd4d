// Package assistant answers free-text wiring questions. Canned answers (step
// guides, easter eggs and the FAQ) are served locally; everything else goes
// to a local LLM behind a rate limiter, a circuit breaker and one retry, with
// a canned fallback when the model is unavailable.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/knowledge"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/pkg/fn"
	"github.com/humwire/humwire/pkg/resilience"
)

// LLM generates text. *ollama.Client satisfies it.
type LLM interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Stream(ctx context.Context, system, prompt string, onChunk func(string) error) (string, error)
}

// Source says where an answer came from.
type Source string

const (
	SourceGuide     Source = "guide"
	SourceEasterEgg Source = "easter-egg"
	SourceFAQ       Source = "faq"
	SourceLLM       Source = "llm"
	SourceOffline   Source = "offline"
	SourceFiltered  Source = "filtered"
	SourcePrompt    Source = "prompt"
)

// ErrRateLimited is recorded when the LLM call budget is exhausted.
var ErrRateLimited = errors.New("assistant: rate limited")

var errFiltered = errors.New("assistant: answer filtered")

// OfflineMessage is shown when neither the LLM nor the FAQ can answer.
const OfflineMessage = "The local AI isn't reachable right now, so here is what I can offer offline. " +
	knowledge.Fallback

const emptyQuestion = "Ask a specific question about soldering, grounding or hum cancelling, " +
	`for example "How do I solder a pot lug?" or "Why does my coil hum after splitting?".`

// Question is one request to the assistant.
type Question struct {
	Text      string        `json:"question"`
	State     session.State `json:"state"`
	PreferLLM bool          `json:"prefer_llm,omitempty"`
}

// Answer is the assistant reply together with the updated state.
type Answer struct {
	Text   string        `json:"text"`
	Source Source        `json:"source"`
	Reason string        `json:"reason,omitempty"`
	State  session.State `json:"state"`
}

// Config tunes the LLM call path.
type Config struct {
	RPS     float64
	Burst   int
	Breaker resilience.BreakerOpts
	Retry   fn.RetryOpts
	Rules   []Rule
}

// DefaultConfig allows one LLM call per second with a burst of three, and
// retries a failed call once.
var DefaultConfig = Config{
	RPS:     1,
	Burst:   3,
	Breaker: resilience.BreakerOpts{FailThreshold: 3, Timeout: 30 * time.Second, HalfOpenMax: 1},
	Retry:   fn.RetryOpts{MaxAttempts: 2, InitialWait: 250 * time.Millisecond, MaxWait: time.Second},
	Rules:   DefaultRules,
}

// Assistant routes questions to canned answers or the LLM.
type Assistant struct {
	llm      LLM
	kb       *knowledge.Base
	registry *domain.Registry
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	retry    fn.RetryOpts
	filter   Filter
	logger   *slog.Logger
}

// New creates an assistant. llm may be nil, in which case only canned
// answers are given.
func New(llm LLM, kb *knowledge.Base, registry *domain.Registry, cfg Config, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if kb == nil {
		kb = knowledge.NewBase(nil, nil, logger)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultConfig.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig.Burst
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultConfig.Retry
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules
	}
	return &Assistant{
		llm:      llm,
		kb:       kb,
		registry: registry,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker:  resilience.NewBreaker(cfg.Breaker),
		retry:    cfg.Retry,
		filter:   NewFilter(cfg.Rules),
		logger:   logger,
	}
}

// BreakerState reports the LLM circuit breaker state.
func (a *Assistant) BreakerState() resilience.State { return a.breaker.State() }

// local returns a canned answer when one applies. faq holds the FAQ match
// used as the fallback for LLM failures.
func (a *Assistant) local(ctx context.Context, q Question) (ans Answer, faq string, ok bool) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Answer{Text: emptyQuestion, Source: SourcePrompt}, "", true
	}
	if n, ok := stepFromQuestion(text); ok {
		return Answer{Text: StepGuide(n), Source: SourceGuide}, "", true
	}
	if reply, ok := matchEasterEgg(text); ok {
		return Answer{Text: reply, Source: SourceEasterEgg}, "", true
	}
	kbAnswer, m := a.kb.Answer(ctx, text)
	if m.Source != knowledge.SourceNone {
		faq = kbAnswer
		if !q.PreferLLM || a.llm == nil {
			return Answer{Text: kbAnswer, Source: SourceFAQ, Reason: string(m.Source)}, faq, true
		}
	}
	if a.llm == nil {
		return Answer{Text: OfflineMessage, Source: SourceOffline, Reason: "no model configured"}, faq, true
	}
	return Answer{}, faq, false
}

// Ask answers q in one piece.
func (a *Assistant) Ask(ctx context.Context, q Question) Answer {
	return a.answer(ctx, q, nil)
}

// Stream answers q, delivering the text through onChunk as it is produced.
// Canned answers arrive as a single chunk. When the filter trips mid-stream
// the returned Answer carries SourceFiltered and replaces what was sent.
func (a *Assistant) Stream(ctx context.Context, q Question, onChunk func(string) error) Answer {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return a.answer(ctx, q, onChunk)
}

func (a *Assistant) answer(ctx context.Context, q Question, onChunk func(string) error) Answer {
	state := q.State.Normalize()
	ans, faq, ok := a.local(ctx, q)
	if ok {
		if onChunk != nil {
			_ = onChunk(ans.Text)
		}
		return a.record(state, q.Text, ans)
	}

	ans = a.callLLM(ctx, q.Text, state, onChunk)
	if ans.Source == SourceOffline && faq != "" {
		ans.Text = faq
		ans.Source = SourceFAQ
	}
	if ans.Source != SourceLLM && ans.Source != SourceFiltered && onChunk != nil {
		_ = onChunk(ans.Text)
	}
	return a.record(state, q.Text, ans)
}

func (a *Assistant) record(state session.State, question string, ans Answer) Answer {
	state = state.AddMessage("user", strings.TrimSpace(question))
	ans.State = state.AddMessage("assistant", ans.Text)
	return ans
}

func (a *Assistant) callLLM(ctx context.Context, question string, state session.State, onChunk func(string) error) Answer {
	ctx, span := otel.Tracer("engine/assistant").Start(ctx, "assistant.llm")
	defer span.End()
	span.SetAttributes(attribute.Int("step", state.Step), attribute.Bool("stream", onChunk != nil))

	if !a.limiter.Allow() {
		span.SetStatus(codes.Error, ErrRateLimited.Error())
		return Answer{Text: OfflineMessage, Source: SourceOffline, Reason: ErrRateLimited.Error()}
	}

	prompt := BuildPrompt(question, state, a.registry)
	emitted := 0
	var streamErr error

	res := resilience.CallResult(a.breaker, ctx, func(ctx context.Context) fn.Result[string] {
		return fn.Retry(ctx, a.retry, func(ctx context.Context) fn.Result[string] {
			if onChunk == nil {
				out, err := a.llm.Generate(ctx, systemPrompt, prompt)
				if err == nil && strings.TrimSpace(out) == "" {
					err = errors.New("assistant: empty completion")
				}
				return fn.FromPair(out, err)
			}
			var sofar strings.Builder
			out, err := a.llm.Stream(ctx, systemPrompt, prompt, func(chunk string) error {
				sofar.WriteString(chunk)
				if _, hit := a.filter.Check(sofar.String()); hit {
					return errFiltered
				}
				emitted++
				return onChunk(chunk)
			})
			if err != nil && (emitted > 0 || errors.Is(err, errFiltered)) {
				// text already reached the client, or retrying would only
				// regenerate filtered output
				streamErr = err
				return fn.Ok(sofar.String())
			}
			return fn.FromPair(out, err)
		})
	})

	out, err := res.Unwrap()
	if err == nil {
		err = streamErr
	}
	if errors.Is(err, errFiltered) {
		return a.filtered(span, out)
	}
	if err != nil && emitted == 0 {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("llm call failed", "err", err, "breaker", a.breaker.State().String())
		return Answer{Text: OfflineMessage, Source: SourceOffline, Reason: err.Error()}
	}
	if err != nil {
		a.logger.Warn("llm stream interrupted", "err", err, "chunks", emitted)
	}
	if _, hit := a.filter.Check(out); hit {
		return a.filtered(span, out)
	}
	return Answer{Text: out, Source: SourceLLM}
}

func (a *Assistant) filtered(span trace.Span, text string) Answer {
	rule, _ := a.filter.Check(text)
	span.SetAttributes(attribute.String("filter.reason", rule.Reason))
	a.logger.Warn("llm answer filtered", "reason", rule.Reason)
	return Answer{Text: SafetyMessage, Source: SourceFiltered, Reason: rule.Reason}
}
