package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctroy978/edmpc/internal/response"
	"github.com/ctroy978/edmpc/internal/service"
	"github.com/ctroy978/edmpc/internal/validator"
)

// AuthHandler handles operator authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// Login godoc
// POST /api/v1/auth/login
// Validates the operator secret and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.Login(req.Secret)
	if err != nil {
		if errors.Is(err, service.ErrAuthDisabled) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrAuthDisabled)
			return
		}
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}
