package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/journal"
	"github.com/humwire/humwire/pkg/natsutil"
)

// eventSubject returns the subject to subscribe to for kind, or every event
// subject when kind is empty.
func eventSubject(kind string) string {
	if kind == "" {
		return journal.SubjectPrefix + ">"
	}
	return journal.Subject(journal.Kind(kind))
}

// formatEvent renders one event as a single line with payload keys sorted.
func formatEvent(e journal.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-7s", e.Time.Format(time.TimeOnly), e.Kind)
	if e.Session != "" {
		fmt.Fprintf(&b, " session=%s", e.Session)
	}
	if e.Step > 0 {
		fmt.Fprintf(&b, " step=%d", e.Step)
	}
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := json.Marshal(e.Payload[k])
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}

// eventPrinter writes events to out until limit is reached. A limit of zero
// never stops.
type eventPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	asJSON bool
	limit  int
	seen   int
	done   chan struct{}
}

func newEventPrinter(out io.Writer, asJSON bool, limit int) *eventPrinter {
	return &eventPrinter{out: out, asJSON: asJSON, limit: limit, done: make(chan struct{})}
}

func (p *eventPrinter) handle(_ context.Context, _ string, e journal.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.seen >= p.limit {
		return
	}
	if p.asJSON {
		data, _ := json.Marshal(e)
		fmt.Fprintln(p.out, string(data))
	} else {
		fmt.Fprintln(p.out, formatEvent(e))
	}
	p.seen++
	if p.limit > 0 && p.seen == p.limit {
		close(p.done)
	}
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var (
		url, kind string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the event stream published by the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.logger(cmd)
			nc, err := nats.Connect(url, nats.Name("humwire-cli"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			printer := newEventPrinter(cmd.OutOrStdout(), ctx.jsonOutput, limit)
			subject := eventSubject(kind)
			sub, err := natsutil.Subscribe(nc, subject, printer.handle, func(msg *nats.Msg, err error) {
				logger.Warn("undecodable event", "subject", msg.Subject, "err", err)
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer sub.Unsubscribe()
			logger.Info("tailing events", "subject", subject)

			select {
			case <-cmd.Context().Done():
				return nil
			case <-printer.done:
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&url, "nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
	cmd.Flags().StringVar(&kind, "kind", "", "Only show one event kind: analyze, ask, plan or error")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Exit after this many events (0 follows forever)")
	return cmd
}
