package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/pkg/fn"
	"github.com/humwire/humwire/pkg/resilience"
)

type fakeLLM struct {
	mu     sync.Mutex
	calls  int
	reply  string
	chunks []string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeLLM) Stream(_ context.Context, _, prompt string, onChunk func(string) error) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompt = prompt
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	var full strings.Builder
	for _, c := range f.chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

func testConfig() Config {
	cfg := DefaultConfig
	cfg.RPS = 1000
	cfg.Burst = 1000
	cfg.Retry = fn.RetryOpts{MaxAttempts: 2, InitialWait: 0, MaxWait: 0}
	return cfg
}

func newTest(llm LLM) *Assistant {
	return New(llm, nil, domain.NewRegistry(), testConfig(), nil)
}

func TestAsk_EasterEgg(t *testing.T) {
	llm := &fakeLLM{reply: "should not be used"}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "Hello there!"})
	if ans.Source != SourceEasterEgg || !strings.Contains(ans.Text, "General Kenobi") {
		t.Fatalf("unexpected %+v", ans)
	}
	if llm.calls != 0 {
		t.Fatal("easter egg should not reach the model")
	}
}

func TestAsk_StepGuide(t *testing.T) {
	ans := newTest(nil).Ask(context.Background(), Question{Text: "I'm on step 5, what now?"})
	if ans.Source != SourceGuide || !strings.HasPrefix(ans.Text, "Step 5") {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	ans := newTest(nil).Ask(context.Background(), Question{Text: "  "})
	if ans.Source != SourcePrompt {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_FAQBeforeLLM(t *testing.T) {
	llm := &fakeLLM{reply: "model answer"}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "how do I solder the lug?"})
	if ans.Source != SourceFAQ || llm.calls != 0 {
		t.Fatalf("expected FAQ without model call, got %+v (calls=%d)", ans, llm.calls)
	}
}

func TestAsk_PreferLLM(t *testing.T) {
	llm := &fakeLLM{reply: "Heat the lug first."}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "how do I solder the lug?", PreferLLM: true})
	if ans.Source != SourceLLM || ans.Text != "Heat the lug first." {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_LLMPromptCarriesState(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	st := session.State{Step: 3, Preset: "Bare Knuckle", Mode: "series"}
	newTest(llm).Ask(context.Background(), Question{Text: "what next?", State: st})
	for _, want := range []string{"User question: what next?", "Step: 3/6", "Preset: Bare Knuckle", "Wiring mode: series"} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, llm.prompt)
		}
	}
}

func TestAsk_OfflineFallbackAfterRetry(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "what strings should I buy?"})
	if ans.Source != SourceOffline || ans.Text != OfflineMessage {
		t.Fatalf("unexpected %+v", ans)
	}
	if llm.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", llm.calls)
	}
}

func TestAsk_FAQFallbackWhenModelDown(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "grounding tips?", PreferLLM: true})
	if ans.Source != SourceFAQ || !strings.Contains(ans.Text, "Grounding") {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_NoModel(t *testing.T) {
	ans := newTest(nil).Ask(context.Background(), Question{Text: "what strings should I buy?"})
	if ans.Source != SourceOffline {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_BreakerOpens(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	cfg := testConfig()
	cfg.Retry = fn.RetryOpts{MaxAttempts: 1}
	cfg.Breaker = resilience.BreakerOpts{FailThreshold: 2}
	a := New(llm, nil, nil, cfg, nil)
	for i := 0; i < 3; i++ {
		a.Ask(context.Background(), Question{Text: "what strings should I buy?"})
	}
	if a.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker should be open, got %s", a.BreakerState())
	}
	if llm.calls != 2 {
		t.Fatalf("open breaker should short-circuit, got %d calls", llm.calls)
	}
}

func TestAsk_RateLimited(t *testing.T) {
	llm := &fakeLLM{reply: "fine"}
	cfg := testConfig()
	cfg.RPS = 0.001
	cfg.Burst = 1
	a := New(llm, nil, nil, cfg, nil)
	first := a.Ask(context.Background(), Question{Text: "what strings should I buy?"})
	second := a.Ask(context.Background(), Question{Text: "and picks?"})
	if first.Source != SourceLLM {
		t.Fatalf("first call should reach the model: %+v", first)
	}
	if second.Source != SourceOffline || second.Reason != ErrRateLimited.Error() {
		t.Fatalf("second call should be limited: %+v", second)
	}
}

func TestAsk_Filtered(t *testing.T) {
	llm := &fakeLLM{reply: "Just plug it into the wall socket to test."}
	ans := newTest(llm).Ask(context.Background(), Question{Text: "how to test?", PreferLLM: true})
	if ans.Source != SourceFiltered || ans.Text != SafetyMessage {
		t.Fatalf("unexpected %+v", ans)
	}
}

func TestAsk_HistoryCapped(t *testing.T) {
	a := newTest(nil)
	st := session.New()
	for i := 0; i < 8; i++ {
		st = a.Ask(context.Background(), Question{Text: "42", State: st}).State
	}
	if len(st.History) != session.HistoryLimit {
		t.Fatalf("history = %d", len(st.History))
	}
	if st.History[len(st.History)-1].Role != "assistant" {
		t.Fatal("last message should be the assistant reply")
	}
}

func TestStream_LLMChunks(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"Heat ", "the ", "joint."}}
	var got []string
	ans := newTest(llm).Stream(context.Background(), Question{Text: "what strings should I buy?"}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if ans.Source != SourceLLM || ans.Text != "Heat the joint." || len(got) != 3 {
		t.Fatalf("unexpected %+v chunks=%v", ans, got)
	}
}

func TestStream_FilterStopsMidStream(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"First ", "touch the tip ", "to check heat."}}
	var got []string
	ans := newTest(llm).Stream(context.Background(), Question{Text: "what strings should I buy?"}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if ans.Source != SourceFiltered {
		t.Fatalf("unexpected %+v", ans)
	}
	if len(got) != 1 {
		t.Fatalf("filtered chunk should not be forwarded, got %v", got)
	}
	if llm.calls != 1 {
		t.Fatalf("filtered output should not be retried, got %d calls", llm.calls)
	}
}

func TestStream_CannedSingleChunk(t *testing.T) {
	var got []string
	ans := newTest(nil).Stream(context.Background(), Question{Text: "sudo wire it"}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if ans.Source != SourceEasterEgg || len(got) != 1 || got[0] != ans.Text {
		t.Fatalf("unexpected %+v %v", ans, got)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter([]Rule{{Phrase: "  Mains Voltage ", Reason: "mains"}, {Phrase: ""}})
	if r, ok := f.Check("never touch MAINS voltage"); !ok || r.Reason != "mains" {
		t.Fatalf("expected hit, got %+v %v", r, ok)
	}
	if _, ok := f.Check("signal voltage only"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestStepGuideUnknown(t *testing.T) {
	if StepGuide(9) == "" || strings.HasPrefix(StepGuide(9), "Step") {
		t.Fatal("unknown step should get the generic reply")
	}
}
