package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/email/inbound"
	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/metrics"
	"github.com/suntvalg/suntvalg-server/internal/webhook"
)

// maxWebhookBody bounds the payload read before verification.
const maxWebhookBody = 5 << 20

// WebhookHandler accepts inbound email events from the email provider.
type WebhookHandler struct {
	verifier         *webhook.Verifier
	dispatcher       jobs.Dispatcher
	fetchMissingBody bool
}

func NewWebhookHandler(verifier *webhook.Verifier, dispatcher jobs.Dispatcher, fetchMissingBody bool) *WebhookHandler {
	return &WebhookHandler{
		verifier:         verifier,
		dispatcher:       dispatcher,
		fetchMissingBody: fetchMissingBody,
	}
}

// HandleEmail handles POST /api/webhooks/email. Bodies over maxWebhookBody
// cannot be verified and get 413. After the signature check it always answers
// 200 so the provider does not redeliver; the reply pipeline runs as a
// background job.
func (h *WebhookHandler) HandleEmail(c *gin.Context) {
	log := zerolog.Ctx(c.Request.Context())

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warn().Int64("limit", tooLarge.Limit).Int64("content_length", c.Request.ContentLength).Msg("webhook body exceeds limit")
		metrics.WebhookEvents.WithLabelValues("oversized").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to read webhook body")
		h.ack(c, "error", gin.H{"received": true, "error": "Processing error"})
		return
	}

	if err := h.verifier.Verify(body, c.Request.Header); err != nil {
		h.reject(c, log, err)
		return
	}

	event, err := inbound.ParseEvent(body)
	if err != nil {
		log.Error().Err(err).Msg("failed to process email webhook")
		h.ack(c, "error", gin.H{"received": true, "error": "Processing error"})
		return
	}

	log.Debug().Str("type", event.Type).Str("message_id", event.Data.MessageID()).Msg("received email webhook")

	if event.Type != inbound.EventTypeEmailReceived {
		h.ack(c, "ignored", gin.H{"received": true})
		return
	}

	from, ok := inbound.ExtractSender(event.Data.From)
	if !ok {
		log.Warn().RawJSON("from", rawOrNull(event.Data.From)).Msg("invalid or missing sender email")
		h.ack(c, "skipped", gin.H{"received": true, "skipped": "Invalid sender email"})
		return
	}

	content := inbound.ResolveBody(event.Data.Text, event.Data.HTML)
	messageID := event.Data.MessageID()
	if content == "" && (messageID == "" || !h.fetchMissingBody) {
		log.Warn().Str("message_id", messageID).Msg("email webhook without body content, dropping")
		h.ack(c, "dropped", gin.H{"received": true})
		return
	}

	job, err := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{
		MessageID: messageID,
		From:      strings.ToLower(from),
		Subject:   event.Data.SubjectOrDefault(),
		Content:   content,
	})
	if err == nil {
		err = h.dispatcher.Enqueue(c.Request.Context(), job)
	}
	if err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("failed to schedule inbound email")
		h.ack(c, "error", gin.H{"received": true})
		return
	}

	h.ack(c, "accepted", gin.H{"received": true})
}

func (h *WebhookHandler) reject(c *gin.Context, log *zerolog.Logger, err error) {
	metrics.WebhookEvents.WithLabelValues("unauthorized").Inc()

	switch {
	case errors.Is(err, webhook.ErrSecretNotConfigured), errors.Is(err, webhook.ErrSecretInvalid):
		log.Error().Err(err).Msg("webhook rejected: signing secret unusable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
	case errors.Is(err, webhook.ErrMissingHeaders):
		log.Warn().Msg("missing svix webhook headers")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing signature headers"})
	default:
		log.Warn().Err(err).Msg("webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid signature"})
	}
}

func (h *WebhookHandler) ack(c *gin.Context, result string, body gin.H) {
	metrics.WebhookEvents.WithLabelValues(result).Inc()
	c.JSON(http.StatusOK, body)
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
