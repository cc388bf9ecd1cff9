package pipeline

import (
	"context"
	"log/slog"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/metrics"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Source identifies the ingestion path of a message
type Source string

const (
	SourceIMAP    Source = "imap"
	SourceMailgun Source = "mailgun"
)

// MessageObserved is produced by an ingestion adapter for every new message
type MessageObserved struct {
	TraceID   string
	Source    Source
	Monitored string // Mailbox that received the message
	Message   models.RawMessage
}

// Sink receives every result the dispatcher emits
type Sink interface {
	Publish(ctx context.Context, result *models.ExtractionResult)
}

// Submitter accepts observed messages
type Submitter interface {
	Submit(ctx context.Context, ev MessageObserved) error
}

// Dispatcher runs the pipeline for observed messages and forwards results
type Dispatcher struct {
	pipeline *Pipeline
	store    store.Store
	sinks    []Sink
	events   chan MessageObserved
	logger   *slog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(p *Pipeline, st store.Store, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		pipeline: p,
		store:    st,
		sinks:    sinks,
		events:   make(chan MessageObserved, 64),
		logger:   logger.With("component", "dispatcher"),
	}
}

// Submit queues an observed message. It blocks while the queue is full.
func (d *Dispatcher) Submit(ctx context.Context, ev MessageObserved) error {
	select {
	case d.events <- ev:
		metrics.IncrementMessageObserved(string(ev.Source))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued messages until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case ev := <-d.events:
			d.handle(ctx, ev)
		}
	}
}

// handle runs the pipeline for a single message
func (d *Dispatcher) handle(ctx context.Context, ev MessageObserved) {
	logger := d.logger.With("trace_id", ev.TraceID, "source", ev.Source, "monitored", ev.Monitored)

	result := d.pipeline.Process(ev.Message, ev.Monitored)
	if result == nil {
		metrics.IncrementNoPayload(string(ev.Source))
		logger.Info("message without code or link",
			"subject", ev.Message.Subject,
			"text_preview", preview(ev.Message.PlainText, 100),
		)
		return
	}

	logger.Info("code found",
		"recipient", result.Recipient,
		"kind", result.Kind,
		"category", result.Category,
	)

	if err := d.store.Upsert(ctx, result); err != nil {
		logger.Error("failed to store result", "error", err, "recipient", result.Recipient)
	}

	for _, sink := range d.sinks {
		sink.Publish(ctx, result)
	}
	metrics.IncrementResultEmitted(string(result.Category))
}

// preview returns at most n runes of s
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
