// Package api maps HTTP requests onto the auth and expense services.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/expense"
)

type Handler struct {
	authService *auth.Service
	expenses    *expense.Service
	users       auth.UserStore
	logger      *zap.Logger
}

func NewHandler(authService *auth.Service, expenses *expense.Service, users auth.UserStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{authService: authService, expenses: expenses, users: users, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)

	expenseGroup := router.Group("/expenses", h.RequireAuth())
	expenseGroup.POST("", h.handleCreateExpense)
	expenseGroup.GET("", h.handleListExpenses)
	expenseGroup.GET("/:id", h.handleGetExpense)
	expenseGroup.PUT("/:id", h.handleUpdateExpense)
	expenseGroup.DELETE("/:id", h.handleDeleteExpense)
	expenseGroup.GET("/summary/stats", h.handleSummary)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrPasswordTooWeak):
			writeError(c, http.StatusUnprocessableEntity, "validation_error", err)
		case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
			writeError(c, http.StatusConflict, "conflict", err)
		default:
			h.logger.Error("register failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal_error", errInternal)
		}
		return
	}

	c.JSON(http.StatusCreated, user.Sanitize())
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(c, http.StatusUnauthorized, "auth_error", err)
		default:
			h.logger.Error("login failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal_error", errInternal)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
	})
}

var errInternal = errors.New("internal server error")

func writeError(c *gin.Context, status int, kind string, err error) {
	body := gin.H{
		"error":  kind,
		"detail": err.Error(),
	}

	var vErr *expense.ValidationError
	if errors.As(err, &vErr) {
		body["field"] = vErr.Field
	}

	c.JSON(status, body)
}
