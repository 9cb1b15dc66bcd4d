package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestFileJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	j, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := j.Record(ctx, Event{Kind: KindAnalyze, Step: 6, Payload: map[string]any{"mode": "standard"}}); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, Event{Kind: KindAsk, Session: "s1"}); err != nil {
		t.Fatal(err)
	}
	j.Close()

	// reopening appends rather than truncating
	j, err = OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	j.Record(ctx, Event{Kind: KindPlan})
	j.Close()

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(events))
	}
	if events[0].Kind != KindAnalyze || events[0].Payload["mode"] != "standard" || events[0].Time.IsZero() {
		t.Fatalf("first event %+v", events[0])
	}
	if events[2].Kind != KindPlan {
		t.Fatalf("last event %+v", events[2])
	}
}

func TestFileJournalConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j.Record(context.Background(), Event{Kind: KindAsk, Step: i%6 + 1})
		}(i)
	}
	wg.Wait()
	j.Close()
	if n := len(readEvents(t, path)); n != 50 {
		t.Fatalf("expected 50 intact lines, got %d", n)
	}
}

func TestFileJournalKeepsTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, _ := OpenFile(path)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j.Record(context.Background(), Event{Kind: KindError, Time: at})
	j.Close()
	if got := readEvents(t, path)[0].Time; !got.Equal(at) {
		t.Fatalf("time %v", got)
	}
}

type capture struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
}

func (c *capture) PublishMsg(m *nats.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func TestNATSJournalSubject(t *testing.T) {
	var c capture
	if err := NewNATS(&c).Record(context.Background(), Event{Kind: KindPlan, Session: "abc"}); err != nil {
		t.Fatal(err)
	}
	if len(c.msgs) != 1 || c.msgs[0].Subject != "humwire.events.plan" {
		t.Fatalf("published %+v", c.msgs)
	}
	var e Event
	if err := json.Unmarshal(c.msgs[0].Data, &e); err != nil || e.Session != "abc" || e.Time.IsZero() {
		t.Fatalf("payload %s", c.msgs[0].Data)
	}
}

type failing struct{ err error }

func (f failing) Record(context.Context, Event) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	var c capture
	e1, e2 := errors.New("disk full"), errors.New("nats down")
	err := Multi{failing{e1}, NewNATS(&c), failing{e2}, Nop{}}.Record(context.Background(), Event{Kind: KindAsk})
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if len(c.msgs) != 1 {
		t.Fatal("a failing journal should not stop the others")
	}
	if err := (Multi{Nop{}}).Record(context.Background(), Event{}); err != nil {
		t.Fatal(err)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}
