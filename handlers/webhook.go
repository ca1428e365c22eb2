package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/services/billing"
	"invoicely/utils"
)

const maxWebhookBytes = 64 << 10

type WebhookHandler struct {
	Billing billing.BillingService
}

func NewWebhookHandler(svc billing.BillingService) *WebhookHandler {
	return &WebhookHandler{Billing: svc}
}

// Stripe handles POST /api/webhooks/stripe. The raw body is needed for the
// signature check, so it is read before any binding.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		getLogger(c).Warn("Failed to read webhook body", zap.Error(err))
		respondError(c, utils.NewError(utils.ErrValidation, "Unreadable body"))
		return
	}
	if err := h.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
