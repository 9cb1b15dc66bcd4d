// Package journal records what users did: analyses run, questions asked and
// plans saved. Events are appended to a JSON-lines file and, when NATS is
// configured, published on humwire.events.<kind>.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/humwire/humwire/pkg/natsutil"
)

// Kind names an event type.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindAsk     Kind = "ask"
	KindPlan    Kind = "plan"
	KindError   Kind = "error"
)

// SubjectPrefix is the NATS subject prefix for events.
const SubjectPrefix = "humwire.events."

// Event is one journal entry.
type Event struct {
	Time    time.Time      `json:"time"`
	Kind    Kind           `json:"kind"`
	Session string         `json:"session,omitempty"`
	Step    int            `json:"step,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Journal records events.
type Journal interface {
	Record(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func stamp(e Event) Event {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return e
}

// FileJournal appends events as JSON lines.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFile opens (or creates) the journal file at path for appending.
func OpenFile(path string) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &FileJournal{f: f}, nil
}

// Record appends e as one line.
func (j *FileJournal) Record(_ context.Context, e Event) error {
	line, err := json.Marshal(stamp(e))
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	line = append(line, '\n')
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.f.Write(line); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// NATSJournal publishes events to NATS.
type NATSJournal struct {
	pub natsutil.Publisher
}

// NewNATS creates a journal publishing through pub, usually a *nats.Conn.
func NewNATS(pub natsutil.Publisher) *NATSJournal {
	return &NATSJournal{pub: pub}
}

// Subject returns the subject events of kind k are published on.
func Subject(k Kind) string { return SubjectPrefix + string(k) }

func (j *NATSJournal) Record(ctx context.Context, e Event) error {
	return natsutil.Publish(ctx, j.pub, Subject(e.Kind), stamp(e))
}

// Multi records every event in all journals and joins their errors.
type Multi []Journal

func (m Multi) Record(ctx context.Context, e Event) error {
	e = stamp(e)
	var errs []error
	for _, j := range m {
		if err := j.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
