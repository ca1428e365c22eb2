package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoicely/models"
	"invoicely/services/billing"
	"invoicely/services/invoice"
	"invoicely/utils"
)

var invoiceIDRequired = utils.NewValidationError("invoice_id", "invoiceId query parameter is required")

type InvoiceHandler struct {
	Invoices invoice.InvoiceService
	Billing  billing.BillingService
}

func NewInvoiceHandler(invoices invoice.InvoiceService, billingSvc billing.BillingService) *InvoiceHandler {
	return &InvoiceHandler{Invoices: invoices, Billing: billingSvc}
}

// List handles GET /api/invoices?status=&contact_id=&search=.
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := models.InvoiceFilter{
		Status:    models.InvoiceStatus(strings.ToLower(c.Query("status"))),
		ContactID: c.Query("contact_id"),
		Search:    c.Query("search"),
	}
	invoices, err := h.Invoices.List(c.Request.Context(), ownerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.Invoices.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var in models.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.Invoices.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	var in models.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.Invoices.Update(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.Invoices.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// SetStatus handles PUT /api/invoices/:id/status.
func (h *InvoiceHandler) SetStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if !bindJSON(c, &body) {
		return
	}
	inv, err := h.Invoices.SetStatus(c.Request.Context(), ownerID(c), c.Param("id"), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, inv)
}

// PaymentIntent handles POST /api/invoices/:id/payment-intent.
func (h *InvoiceHandler) PaymentIntent(c *gin.Context) {
	intent, err := h.Billing.CreatePaymentIntent(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, intent)
}

// ListPayments handles GET /api/payments?invoiceId=.
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	invoiceID := c.Query("invoiceId")
	if invoiceID == "" {
		invoiceID = c.Query("invoice_id")
	}
	if invoiceID == "" {
		respondError(c, invoiceIDRequired)
		return
	}
	payments, err := h.Invoices.Payments(c.Request.Context(), ownerID(c), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, payments)
}

// RecordPayment handles POST /api/payments.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var in models.PaymentInput
	if !bindJSON(c, &in) {
		return
	}
	receipt, err := h.Invoices.RecordPayment(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, receipt)
}
