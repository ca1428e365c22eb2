package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("email", "email is required"), http.StatusBadRequest},
		{NewError(ErrBusinessRule, "amount exceeds remaining balance"), http.StatusBadRequest},
		{NewError(ErrUnauthorized, "invalid credentials"), http.StatusUnauthorized},
		{NewError(ErrForbidden, "device limit reached"), http.StatusForbidden},
		{NewError(ErrNotFound, "invoice not found"), http.StatusNotFound},
		{NewError(ErrConflict, "email already registered"), http.StatusConflict},
		{NewError(ErrUnavailable, "payments are not configured"), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", NewError(ErrNotFound, "x")), http.StatusNotFound},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestAppError_Message(t *testing.T) {
	err := NewError(ErrConflict, "")
	assert.Equal(t, "conflict", err.Error())

	err = NewValidationError("password", "password too short")
	assert.Equal(t, "password too short", err.Error())
	assert.Equal(t, "password", err.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("kaput") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}
