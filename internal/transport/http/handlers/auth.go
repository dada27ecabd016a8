package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/middleware"
	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth       *usecase.AuthService
	anomaly    *usecase.AnomalyDetector
	challenges *usecase.ChallengeService
	tokens     *usecase.TokenService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	anomaly *usecase.AnomalyDetector,
	challenges *usecase.ChallengeService,
	tokens *usecase.TokenService,
) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		anomaly:    anomaly,
		challenges: challenges,
		tokens:     tokens,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
}

// RegisterSecurityRoutes binds the authenticated connection check.
func (h *AuthHandler) RegisterSecurityRoutes(r *gin.RouterGroup) {
	r.GET("/check-user", middleware.RequireAuth(h.auth), h.checkUser)
}

// Login godoc
// @Summary Authenticate an account with credentials
// @Description Validates the username and password. A connection that deviates from the account's history returns 401 with a security-question challenge instead of tokens.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse "Successfully authenticated"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 401 {object} ChallengeResponse "Invalid credentials or challenge required"
// @Failure 403 {object} ErrorResponse "Account banned"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	ctx := c.Request.Context()
	reqCtx := middleware.GetRequestContext(c)

	account, err := h.auth.VerifyPassword(ctx, strings.TrimSpace(req.Username), req.Password, reqCtx.Device, reqCtx.IP)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	if account.Status == domain.AccountStatusBanned {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is banned"))
		return
	}

	suspicious, err := h.anomaly.IsSuspicious(ctx, account, reqCtx.Device, reqCtx.IP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	if suspicious {
		challenge, err := h.challenges.Issue(ctx, account, reqCtx.Device, reqCtx.IP, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
			return
		}
		c.JSON(http.StatusUnauthorized, newChallengeResponse(challenge))
		return
	}

	if err := h.auth.RecordSuccess(ctx, account.ID, reqCtx.Device, reqCtx.IP); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	pair, err := h.tokens.Issue(ctx, account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to issue tokens"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		Account:      newAccountSummary(*account),
	})
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Issues a new access token from a valid refresh token. The refresh token itself is rotated when close to expiry.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh request"
// @Success 200 {object} TokenRefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	pair, err := h.tokens.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrReauthenticate, Status: http.StatusUnauthorized, Message: "reauthentication required"},
			{Err: usecase.ErrAccountBanned, Status: http.StatusForbidden, Message: "account is banned"},
		}, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, TokenRefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	})
}

// CheckUser godoc
// @Summary Check the current connection against the account's history
// @Description Runs the anomaly rules for the bearer's current device and IP. A deviating connection returns 401 with a security-question challenge; a clean one is recorded as a successful connection.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ChallengeResponse "Challenge required"
// @Failure 403 {object} ErrorResponse "Account banned"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/security/check-user [get]
func (h *AuthHandler) checkUser(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	ctx := c.Request.Context()
	reqCtx := middleware.GetRequestContext(c)

	suspicious, err := h.anomaly.IsSuspicious(ctx, account, reqCtx.Device, reqCtx.IP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "connection check failed"))
		return
	}

	if suspicious {
		challenge, err := h.challenges.Issue(ctx, account, reqCtx.Device, reqCtx.IP, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "connection check failed"))
			return
		}
		c.JSON(http.StatusUnauthorized, newChallengeResponse(challenge))
		return
	}

	if err := h.auth.RecordSuccess(ctx, account.ID, reqCtx.Device, reqCtx.IP); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "connection check failed"))
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// Logout godoc
// @Summary Logout the current session
// @Description Deactivates the caller's refresh token. Unknown tokens are ignored so the operation stays idempotent.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh token to revoke"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke token"))
		return
	}

	c.Status(http.StatusNoContent)
}
