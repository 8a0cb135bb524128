package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spendtrack/spendtrack/internal/expense"
	"github.com/spendtrack/spendtrack/internal/models"
)

type createExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        models.Date     `json:"date"`
}

type updateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Date        *models.Date     `json:"date"`
}

func (h *Handler) handleCreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	created, err := h.expenses.Create(c.Request.Context(), currentUser(c).ID, expense.CreateInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) handleListExpenses(c *gin.Context) {
	query := expense.ListQuery{
		Period:   c.Query("period"),
		Category: c.Query("category"),
	}

	var err error
	if query.StartDate, query.EndDate, err = dateRangeParams(c); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", err)
		return
	}

	expenses, err := h.expenses.List(c.Request.Context(), currentUser(c).ID, query)
	if err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.JSON(http.StatusOK, expenses)
}

func (h *Handler) handleGetExpense(c *gin.Context) {
	id, ok := expenseIDParam(c)
	if !ok {
		return
	}

	found, err := h.expenses.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *Handler) handleUpdateExpense(c *gin.Context) {
	id, ok := expenseIDParam(c)
	if !ok {
		return
	}

	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	patch := expense.Patch{
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		patch.Category = &category
	}

	updated, err := h.expenses.Update(c.Request.Context(), currentUser(c).ID, id, patch)
	if err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) handleDeleteExpense(c *gin.Context) {
	id, ok := expenseIDParam(c)
	if !ok {
		return
	}

	if err := h.expenses.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) handleSummary(c *gin.Context) {
	startDate, endDate, err := dateRangeParams(c)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", err)
		return
	}

	summary, err := h.expenses.Summarize(c.Request.Context(), currentUser(c).ID, startDate, endDate)
	if err != nil {
		h.writeExpenseError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) writeExpenseError(c *gin.Context, err error) {
	var vErr *expense.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(c, http.StatusUnprocessableEntity, "validation_error", err)
	case errors.Is(err, models.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", errors.New("expense not found"))
	default:
		h.logger.Error("expense operation failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal_error", errInternal)
	}
}

func expenseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", errors.New("expense id must be an integer"))
		return 0, false
	}
	return id, true
}

func dateRangeParams(c *gin.Context) (models.Date, models.Date, error) {
	var startDate, endDate models.Date

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return models.Date{}, models.Date{}, err
		}
		startDate = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return models.Date{}, models.Date{}, err
		}
		endDate = parsed
	}

	return startDate, endDate, nil
}
