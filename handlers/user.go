package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicely/models"
	"invoicely/services/user"
)

// UserHandler serves the admin-only account endpoints.
type UserHandler struct {
	Users user.UserService
}

func NewUserHandler(svc user.UserService) *UserHandler {
	return &UserHandler{Users: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.Create(c.Request.Context(), ownerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.Update(c.Request.Context(), ownerID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User deleted"})
}
