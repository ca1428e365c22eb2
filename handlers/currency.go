package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicely/services/currency"
	"invoicely/utils"
)

type CurrencyHandler struct {
	Currency        currency.CurrencyService
	DefaultCurrency string
}

func NewCurrencyHandler(svc currency.CurrencyService, defaultCurrency string) *CurrencyHandler {
	return &CurrencyHandler{Currency: svc, DefaultCurrency: defaultCurrency}
}

// Rates handles GET /api/currency/rates?base=.
func (h *CurrencyHandler) Rates(c *gin.Context) {
	base := c.DefaultQuery("base", h.DefaultCurrency)
	rates, err := h.Currency.Rates(c.Request.Context(), base)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rates)
}

// Convert handles GET /api/currency/convert?amount=&from=&to=.
func (h *CurrencyHandler) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		respondError(c, utils.NewValidationError("amount", "Amount must be a number"))
		return
	}
	from := c.DefaultQuery("from", h.DefaultCurrency)
	conv, err := h.Currency.Convert(c.Request.Context(), amount, from, c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, conv)
}
