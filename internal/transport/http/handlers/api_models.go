package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID       string               `json:"id"`
	Username string               `json:"username"`
	Email    string               `json:"email,omitempty"`
	Phone    string               `json:"phone,omitempty"`
	Status   domain.AccountStatus `json:"status"`
	Roles    []string             `json:"roles,omitempty"`
	Devices  []string             `json:"devices,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	Account      AccountSummary `json:"account"`
}

// ChallengeResponse is returned when a connection requires validation.
type ChallengeResponse struct {
	ChallengeID int64  `json:"validation_id"`
	Message     string `json:"message"`
	Question    string `json:"question"`
}

// ChallengeResolveRequest carries the answer to a pending challenge.
type ChallengeResolveRequest struct {
	Username string `json:"username" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

// ChallengeResolveResponse reports the terminal status of a resolved challenge.
type ChallengeResolveResponse struct {
	Message string                  `json:"message"`
	Status  domain.ConnectionStatus `json:"status"`
}

// ForgottenPasswordRequest starts the forgotten-password flow.
type ForgottenPasswordRequest struct {
	Username string `json:"username" binding:"required"`
}

// ForgottenPasswordResponse reports the flow outcome: either an email was
// sent or a challenge must be answered first.
type ForgottenPasswordResponse struct {
	Message   string             `json:"message"`
	Challenge *ChallengeResponse `json:"challenge,omitempty"`
}

// PasswordResetRequest replaces the password after a cleared challenge.
type PasswordResetRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenRefreshResponse contains tokens issued by the refresh endpoint.
// RefreshToken is set only when the presented token was close to expiry and
// got rotated.
type TokenRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// QuestionAnswerPayload pairs a catalog question with its answer.
type QuestionAnswerPayload struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// RegistrationRequest defines the account registration payload.
type RegistrationRequest struct {
	Username string                  `json:"username" binding:"required"`
	Email    string                  `json:"email" binding:"required,email"`
	Phone    string                  `json:"phone" binding:"required"`
	Password string                  `json:"password" binding:"required"`
	Answers  []QuestionAnswerPayload `json:"answers" binding:"required"`
}

// RegistrationResponse contains registration results and next steps.
type RegistrationResponse struct {
	Account AccountSummary `json:"account"`
	Message string         `json:"message"`
}

// EmailConfirmRequest consumes the email verification token.
type EmailConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// PhoneCheckRequest verifies the SMS code.
type PhoneCheckRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// ResendEmailRequest asks for a new verification token.
type ResendEmailRequest struct {
	Username string `json:"username" binding:"required"`
}

// StatusUpdateRequest transitions an account lifecycle status.
type StatusUpdateRequest struct {
	Status domain.AccountStatus `json:"status" binding:"required"`
}

// QuestionPayload describes a catalog question.
type QuestionPayload struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
}

// QuestionListResponse wraps catalog questions.
type QuestionListResponse struct {
	Questions []QuestionPayload `json:"questions"`
}

// AccountListResponse wraps multiple accounts.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Total    int              `json:"total"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountSummary converts a domain account to a summary suitable for API
// responses. Credential material never leaves the handler layer.
func newAccountSummary(account domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Phone:    account.Phone,
		Status:   account.Status,
	}

	if len(account.Roles) > 0 {
		roles := make([]string, len(account.Roles))
		copy(roles, account.Roles)
		summary.Roles = roles
	}
	if len(account.Devices) > 0 {
		devices := make([]string, len(account.Devices))
		copy(devices, account.Devices)
		summary.Devices = devices
	}

	return summary
}

// newChallengeResponse converts a pending ledger event to the challenge
// payload returned to the client.
func newChallengeResponse(event *domain.ConnectionEvent) *ChallengeResponse {
	resp := &ChallengeResponse{ChallengeID: event.ID}
	if event.Output != nil {
		resp.Message = event.Output.Message
		resp.Question = event.Output.Question
	}
	return resp
}
