package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicely/models"
	"invoicely/services/contact"
)

type ContactHandler struct {
	Contacts contact.ContactService
}

func NewContactHandler(svc contact.ContactService) *ContactHandler {
	return &ContactHandler{Contacts: svc}
}

// List handles GET /api/contacts?search=.
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.Contacts.List(c.Request.Context(), ownerID(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(c *gin.Context) {
	ct, err := h.Contacts.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ct)
}

func (h *ContactHandler) Create(c *gin.Context) {
	var in models.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	ct, err := h.Contacts.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, ct)
}

func (h *ContactHandler) Update(c *gin.Context) {
	var in models.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	ct, err := h.Contacts.Update(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ct)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.Contacts.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Client deleted"})
}
