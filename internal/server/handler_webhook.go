package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/mailgun"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/metrics"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/pipeline"
)

const maxWebhookMemory = 32 << 20

type WebhookHandler struct {
	monitor   Monitor
	submitter pipeline.Submitter
	logger    *slog.Logger
}

func NewWebhookHandler(m Monitor, submitter pipeline.Submitter, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		monitor:   m,
		submitter: submitter,
		logger:    logger.With("component", "mailgun_webhook"),
	}
}

// Status handles GET /webhooks/mailgun
func (h *WebhookHandler) Status(c *gin.Context) {
	c.String(http.StatusOK, "Mailgun Webhook is active")
}

// Receive handles POST /webhooks/mailgun. Bodies may be multipart,
// urlencoded or JSON.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var (
		payload *mailgun.Payload
		err     error
	)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		payload, err = mailgun.ParseJSON(c.Request.Body)
	} else {
		if perr := c.Request.ParseMultipartForm(maxWebhookMemory); perr != nil && !errors.Is(perr, http.ErrNotMultipart) {
			metrics.IncrementWebhookRejected("malformed")
			c.String(http.StatusBadRequest, "Invalid payload")
			return
		}
		payload, err = mailgun.ParseForm(c.Request.Form)
	}

	switch {
	case errors.Is(err, mailgun.ErrMissingSignature):
		metrics.IncrementWebhookRejected("missing_signature")
		c.String(http.StatusBadRequest, "Missing signature")
		return
	case err != nil:
		metrics.IncrementWebhookRejected("malformed")
		h.logger.Warn("failed to parse webhook", "error", err)
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	settings := h.monitor.Settings()
	if !payload.Signature.Verify(settings.MailgunSigningKey) {
		metrics.IncrementWebhookRejected("invalid_signature")
		h.logger.Warn("invalid mailgun signature", "recipient", payload.Recipient)
		c.String(http.StatusUnauthorized, "Invalid signature")
		return
	}

	monitored := settings.MonitoredEmail
	if monitored == "" {
		monitored = payload.Recipient
	}

	event := pipeline.MessageObserved{
		TraceID:   uuid.NewString(),
		Source:    pipeline.SourceMailgun,
		Monitored: monitored,
		Message:   payload.Message(),
	}

	h.logger.Info("webhook received", "trace_id", event.TraceID, "recipient", payload.Recipient, "subject", payload.Subject)

	if err := h.submitter.Submit(c.Request.Context(), event); err != nil {
		h.logger.Error("failed to submit webhook message", "trace_id", event.TraceID, "error", err)
		c.String(http.StatusServiceUnavailable, "Busy")
		return
	}

	c.String(http.StatusOK, "OK")
}
