package pipeline

import (
	"time"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/parser"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Pipeline turns a parsed message into an extraction result
type Pipeline struct {
	extractor *parser.Extractor
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClock overrides the clock used for ObservedAt
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a new pipeline
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: parser.NewExtractor(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process resolves the recipient, extracts a code or link and classifies the
// message. It returns nil when the message carries nothing to report.
func (p *Pipeline) Process(msg models.RawMessage, monitored string) *models.ExtractionResult {
	recipient := parser.ResolveRecipient(msg.EnvelopeTo, msg.PlainText, monitored)

	found := p.extractor.Extract(msg.PlainText, msg.HTML)
	if found == nil {
		return nil
	}

	return &models.ExtractionResult{
		Recipient:     recipient,
		Payload:       found.Value,
		Kind:          found.Kind,
		Category:      parser.Classify(msg.Subject, msg.PlainText, msg.HTML),
		ObservedAt:    p.now(),
		SourceAccount: monitored,
	}
}
