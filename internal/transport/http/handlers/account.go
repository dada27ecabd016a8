package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AurelieVidal/TempoAPI/internal/usecase"
)

// AccountHandler exposes administrative account reads, lifecycle updates, and
// the security-question catalog.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterAdminRoutes binds the admin-only account routes.
func (h *AccountHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/accounts", h.list)
	r.GET("/accounts/:username", h.get)
	r.PATCH("/accounts/:username/status", h.updateStatus)
}

// RegisterQuestionRoutes binds the public question catalog routes.
func (h *AccountHandler) RegisterQuestionRoutes(r *gin.RouterGroup) {
	r.GET("/questions", h.questions)
	r.GET("/questions/sample", h.sampleQuestions)
}

// List godoc
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Success 200 {object} AccountListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/accounts [get]
func (h *AccountHandler) list(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, newAccountSummary(account))
	}

	c.JSON(http.StatusOK, AccountListResponse{
		Accounts: summaries,
		Total:    len(summaries),
	})
}

// Get godoc
// @Summary Get an account by username
// @Tags Accounts
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/accounts/{username} [get]
func (h *AccountHandler) get(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	account, err := h.accounts.Get(c.Request.Context(), username)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// UpdateStatus godoc
// @Summary Update an account lifecycle status
// @Tags Accounts
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param request body StatusUpdateRequest true "New status"
// @Success 200 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/accounts/{username}/status [patch]
func (h *AccountHandler) updateStatus(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "status is required"))
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid status"))
		return
	}

	account, err := h.accounts.UpdateStatus(c.Request.Context(), username, req.Status)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to update status")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// Questions godoc
// @Summary List the security question catalog
// @Tags Questions
// @Produce json
// @Success 200 {object} QuestionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/questions [get]
func (h *AccountHandler) questions(c *gin.Context) {
	questions, err := h.accounts.Questions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list questions"))
		return
	}

	payload := make([]QuestionPayload, 0, len(questions))
	for _, question := range questions {
		payload = append(payload, QuestionPayload{ID: question.ID, Question: question.Question})
	}

	c.JSON(http.StatusOK, QuestionListResponse{Questions: payload})
}

// SampleQuestions godoc
// @Summary Sample random questions for the registration form
// @Tags Questions
// @Produce json
// @Param n query int false "Number of questions" default(3)
// @Success 200 {object} QuestionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/questions/sample [get]
func (h *AccountHandler) sampleQuestions(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "3"))
	if err != nil || n <= 0 {
		n = 3
	}

	questions, err := h.accounts.RandomQuestions(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to sample questions"))
		return
	}

	payload := make([]QuestionPayload, 0, len(questions))
	for _, question := range questions {
		payload = append(payload, QuestionPayload{ID: question.ID, Question: question.Question})
	}

	c.JSON(http.StatusOK, QuestionListResponse{Questions: payload})
}
