package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicely/models"
	"invoicely/services/stock"
)

type StockHandler struct {
	Stock stock.StockService
}

func NewStockHandler(svc stock.StockService) *StockHandler {
	return &StockHandler{Stock: svc}
}

// List handles GET /api/stock?low=true.
func (h *StockHandler) List(c *gin.Context) {
	lowOnly, _ := strconv.ParseBool(c.Query("low"))
	items, err := h.Stock.List(c.Request.Context(), ownerID(c), lowOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, items)
}

func (h *StockHandler) Get(c *gin.Context) {
	item, err := h.Stock.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

func (h *StockHandler) Create(c *gin.Context) {
	var in models.StockItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.Stock.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, item)
}

func (h *StockHandler) Update(c *gin.Context) {
	var in models.StockItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.Stock.Update(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// Adjust handles POST /api/stock/:id/adjust.
func (h *StockHandler) Adjust(c *gin.Context) {
	var adj models.StockAdjustment
	if !bindJSON(c, &adj) {
		return
	}
	item, err := h.Stock.Adjust(c.Request.Context(), ownerID(c), c.Param("id"), adj)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

func (h *StockHandler) Delete(c *gin.Context) {
	if err := h.Stock.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Stock item deleted"})
}
