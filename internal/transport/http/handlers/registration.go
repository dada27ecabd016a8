package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// RegistrationHandler exposes the account creation and verification endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration routes, applying optional middleware
// ahead of the register handler.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	if len(registerMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
		chain = append(chain, h.register)
		r.POST("/register", chain...)
	} else {
		r.POST("/register", h.register)
	}

	r.POST("/confirm-email", h.confirmEmail)
	r.POST("/resend-email", h.resendEmail)
	r.POST("/check-phone", h.checkPhone)
}

// Register godoc
// @Summary Register a new account
// @Description Creates an account with credentials and at least one security question, then sends the email verification token.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration payload"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} ErrorResponse "Invalid payload or rejected password"
// @Failure 404 {object} ErrorResponse "Unknown security question"
// @Failure 409 {object} ErrorResponse "Username already taken"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 503 {object} ErrorResponse "Breach corpus unavailable"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/register [post]
func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegistrationInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Password: req.Password,
	}
	for _, answer := range req.Answers {
		input.Answers = append(input.Answers, usecase.QuestionAnswer{
			QuestionID: answer.QuestionID,
			Answer:     answer.Answer,
		})
	}

	account, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		if respondPasswordViolation(c, err) {
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username is already used"},
			{Err: usecase.ErrUnknownQuestion, Status: http.StatusNotFound, Message: "security question not found"},
			{Err: domain.ErrEmptyQuestionSet, Status: http.StatusBadRequest, Message: "at least one security question is required"},
		}, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Account: newAccountSummary(*account),
		Message: "verification email sent",
	})
}

// ConfirmEmail godoc
// @Summary Confirm the email verification token
// @Description Consumes the token sent by email and starts the phone verification.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body EmailConfirmRequest true "Verification token"
// @Success 200 {object} RegistrationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid or expired token"
// @Failure 404 {object} ErrorResponse "Unknown account"
// @Failure 409 {object} ErrorResponse "Account not awaiting email confirmation"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/confirm-email [post]
func (h *RegistrationHandler) confirmEmail(c *gin.Context) {
	var req EmailConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	account, err := h.registration.ConfirmEmail(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrExpiredToken, Status: http.StatusUnauthorized, Message: "verification token expired"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid verification token"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidAccountState, Status: http.StatusConflict, Message: "account is not awaiting email confirmation"},
		}, http.StatusInternalServerError, "failed to confirm email")
		return
	}

	c.JSON(http.StatusOK, RegistrationResponse{
		Account: newAccountSummary(*account),
		Message: "verification code sent by SMS",
	})
}

// ResendEmail godoc
// @Summary Resend the email verification token
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body ResendEmailRequest true "Resend request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown account"
// @Failure 409 {object} ErrorResponse "Account not awaiting email confirmation"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/resend-email [post]
func (h *RegistrationHandler) resendEmail(c *gin.Context) {
	var req ResendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}

	err := h.registration.ResendEmail(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidAccountState, Status: http.StatusConflict, Message: "account is not awaiting email confirmation"},
		}, http.StatusInternalServerError, "failed to resend verification email")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification email sent"})
}

// CheckPhone godoc
// @Summary Verify the SMS code
// @Description Validates the SMS code and promotes the account to READY.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body PhoneCheckRequest true "Phone verification payload"
// @Success 200 {object} RegistrationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Code mismatch"
// @Failure 404 {object} ErrorResponse "Unknown account"
// @Failure 409 {object} ErrorResponse "Account not awaiting phone verification"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/check-phone [post]
func (h *RegistrationHandler) checkPhone(c *gin.Context) {
	var req PhoneCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid phone verification payload"))
		return
	}

	account, err := h.registration.CheckPhone(c.Request.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Code))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCodeMismatch, Status: http.StatusUnauthorized, Message: "verification code does not match"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidAccountState, Status: http.StatusConflict, Message: "account is not awaiting phone verification"},
		}, http.StatusInternalServerError, "failed to verify phone")
		return
	}

	c.JSON(http.StatusOK, RegistrationResponse{
		Account: newAccountSummary(*account),
		Message: "account ready",
	})
}

// respondPasswordViolation writes the response for password policy failures.
// It reports whether the error was handled.
func respondPasswordViolation(c *gin.Context, err error) bool {
	var violation *security.PasswordValidationError
	if errors.As(err, &violation) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, violation.Message))
		return true
	}
	if errors.Is(err, port.ErrBreachCorpusUnavailable) {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password breach check unavailable"))
		return true
	}
	return false
}
