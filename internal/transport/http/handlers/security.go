package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/middleware"
	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// SecurityHandler exposes the challenge and forgotten-password endpoints.
type SecurityHandler struct {
	challenges   *usecase.ChallengeService
	registration *usecase.RegistrationService
}

// NewSecurityHandler constructs SecurityHandler.
func NewSecurityHandler(challenges *usecase.ChallengeService, registration *usecase.RegistrationService) *SecurityHandler {
	return &SecurityHandler{
		challenges:   challenges,
		registration: registration,
	}
}

// RegisterRoutes binds the security routes, applying optional middleware
// ahead of the forgotten-password handler.
func (h *SecurityHandler) RegisterRoutes(r *gin.RouterGroup, forgottenMiddlewares ...gin.HandlerFunc) {
	r.POST("/challenge/:id", h.resolve)

	if len(forgottenMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, forgottenMiddlewares...)
		chain = append(chain, h.forgotten)
		r.POST("/forgotten-password", chain...)
	} else {
		r.POST("/forgotten-password", h.forgotten)
	}

	r.POST("/reset-password", h.reset)
}

// Resolve godoc
// @Summary Answer a pending security challenge
// @Description Validates the answer to a pending challenge. A fourth consecutive wrong answer bans the account.
// @Tags Security
// @Accept json
// @Produce json
// @Param id path int true "Challenge identifier"
// @Param request body ChallengeResolveRequest true "Challenge answer"
// @Success 200 {object} ChallengeResolveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Answer mismatch"
// @Failure 403 {object} ErrorResponse "Account banned"
// @Failure 404 {object} ErrorResponse "Unknown challenge"
// @Failure 410 {object} ErrorResponse "Challenge expired"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/security/challenge/{id} [post]
func (h *SecurityHandler) resolve(c *gin.Context) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid challenge identifier"))
		return
	}

	var req ChallengeResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid challenge payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	status, err := h.challenges.Resolve(
		c.Request.Context(),
		challengeID,
		strings.TrimSpace(req.Username),
		req.Answer,
		reqCtx.Device,
		reqCtx.IP,
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrChallengeNotFound, Status: http.StatusNotFound, Message: "challenge not found"},
			{Err: usecase.ErrChallengeExpired, Status: http.StatusGone, Message: "challenge expired"},
			{Err: usecase.ErrAnswerMismatch, Status: http.StatusUnauthorized, Message: "answer does not match"},
			{Err: usecase.ErrAccountBanned, Status: http.StatusForbidden, Message: "account is banned"},
		}, http.StatusInternalServerError, "failed to resolve challenge")
		return
	}

	message := "connection validated"
	if status == domain.ConnectionAllowForgottenPassword {
		message = "password reset allowed"
	}

	c.JSON(http.StatusOK, ChallengeResolveResponse{
		Message: message,
		Status:  status,
	})
}

// Forgotten godoc
// @Summary Start the forgotten-password flow
// @Description Issues a security-question challenge, or confirms the reset email was sent when a recent challenge was already cleared.
// @Tags Security
// @Accept json
// @Produce json
// @Param request body ForgottenPasswordRequest true "Forgotten password request"
// @Success 200 {object} ForgottenPasswordResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Account banned"
// @Failure 404 {object} ErrorResponse "Unknown account"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/security/forgotten-password [post]
func (h *SecurityHandler) forgotten(c *gin.Context) {
	var req ForgottenPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid forgotten password payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	cleared, challenge, err := h.challenges.Forgotten(
		c.Request.Context(),
		strings.TrimSpace(req.Username),
		reqCtx.Device,
		reqCtx.IP,
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountBanned, Status: http.StatusForbidden, Message: "account is banned"},
		}, http.StatusInternalServerError, "failed to start forgotten password flow")
		return
	}

	if cleared {
		c.JSON(http.StatusOK, ForgottenPasswordResponse{
			Message: "reset instructions sent",
		})
		return
	}

	c.JSON(http.StatusOK, ForgottenPasswordResponse{
		Message:   "challenge required",
		Challenge: newChallengeResponse(challenge),
	})
}

// Reset godoc
// @Summary Reset the password after a cleared challenge
// @Description Replaces the account password. Requires a forgotten-password challenge answered within the reset window.
// @Tags Security
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Password reset payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Invalid payload or rejected password"
// @Failure 403 {object} ErrorResponse "Account banned or reset not cleared"
// @Failure 404 {object} ErrorResponse "Unknown account"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/security/reset-password [post]
func (h *SecurityHandler) reset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	err := h.registration.ResetPassword(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if respondPasswordViolation(c, err) {
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountBanned, Status: http.StatusForbidden, Message: "account is banned"},
			{Err: usecase.ErrResetNotCleared, Status: http.StatusForbidden, Message: "password reset not cleared"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
