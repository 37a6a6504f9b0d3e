package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"influx_events/internal/service"
)

const (
	errInvalidCredentials = "invalid credentials"
	errSignUp             = "could not create account"
	tokenTypeBearer       = "Bearer"
)

// authError maps an auth service error to a status and a message safe to return.
func authError(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
		return http.StatusUnauthorized, errInvalidCredentials
	case errors.Is(err, service.ErrAuthDisabled):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errStoreUnavailable
	default:
		return http.StatusInternalServerError, fallback
	}
}

// Single, shared credentials payload for both sign-up and sign-in.
type authCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.log.Infow("bad_request_body", "err", err, "path", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Create operator account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      authCredentials  true  "Username and password"
// @Success      200          {object}  map[string]int
// @Failure      400          {object}  map[string]string
// @Failure      500          {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var input authCredentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		code, msg := authError(err, errSignUp)
		h.logAndJSONError(c, code, msg, "auth_sign_up_failed", err, "username", input.Username)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Issue bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      authCredentials  true  "Username and password"
// @Success      200          {object}  map[string]string
// @Failure      400          {object}  map[string]string
// @Failure      401          {object}  map[string]string
// @Failure      503          {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input authCredentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		code, msg := authError(err, errInvalidCredentials)
		h.logAndJSONError(c, code, msg, "auth_sign_in_failed", err, "username", input.Username)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": tokenTypeBearer})
}
