// Package expense implements the owner-scoped expense query engine and the
// category summary aggregator.
package expense

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendtrack/spendtrack/internal/models"
)

// ValidationError reports a field-level input problem.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("expense: invalid %s: %s", e.Field, e.Msg)
}

const maxDescriptionLen = 500

// Filter holds the concrete bounds a store applies on top of the mandatory
// owner scope. Zero-value fields mean "no constraint".
type Filter struct {
	StartDate models.Date
	EndDate   models.Date
	Category  models.Category
}

// Store is the persistence surface for expenses. Every method is scoped by
// ownerID; Get, Update and Delete return models.ErrNotFound both for absent
// records and for records owned by someone else.
type Store interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, ownerID int64, f Filter) ([]models.Expense, error)
	GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error)
	UpdateExpense(ctx context.Context, ownerID, id int64, patch Patch) (*models.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id int64) error
}

type CreateInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        models.Date
}

// ListQuery carries the raw, all-optional list filters from the request.
type ListQuery struct {
	Period    string
	StartDate models.Date
	EndDate   models.Date
	Category  string
}

// Patch is a partial update: nil fields are left untouched.
type Patch struct {
	Amount      *decimal.Decimal
	Category    *models.Category
	Description *string
	Date        *models.Date
}

// Apply copies the present fields onto the expense and refreshes its update
// timestamp. Stores call this inside their write path so that the partial
// semantics stay identical across implementations.
func (p Patch) Apply(e *models.Expense, now time.Time) {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	now = now.UTC()
	e.UpdatedAt = &now
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates the input and persists a new expense owned by ownerID.
// The owner always comes from the authenticated caller, never the payload.
func (s *Service) Create(ctx context.Context, ownerID int64, input CreateInput) (*models.Expense, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	category, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, &ValidationError{Field: "category", Msg: err.Error()}
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, &ValidationError{Field: "date", Msg: "date is required"}
	}

	e := &models.Expense{
		UserID:      ownerID,
		Amount:      input.Amount,
		Category:    category,
		Description: input.Description,
		Date:        input.Date,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

// List returns the owner's expenses matching the query, newest occurrence
// date first (ties broken by id descending).
func (s *Service) List(ctx context.Context, ownerID int64, q ListQuery) ([]models.Expense, error) {
	f := Filter{StartDate: q.StartDate, EndDate: q.EndDate}

	// Period and explicit bounds are additive: when both are given the
	// stricter start wins, matching an intersection of the two ranges.
	if start, ok := resolvePeriod(q.Period, models.Today()); ok {
		if f.StartDate.IsZero() || start.After(f.StartDate) {
			f.StartDate = start
		}
	}

	if q.Category != "" {
		category, err := models.ParseCategory(q.Category)
		if err != nil {
			return nil, &ValidationError{Field: "category", Msg: err.Error()}
		}
		f.Category = category
	}

	return s.store.ListExpenses(ctx, ownerID, f)
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (*models.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

// Update applies a partial update to an owned expense. Present fields are
// re-validated with the same rules as creation.
func (s *Service) Update(ctx context.Context, ownerID, id int64, patch Patch) (*models.Expense, error) {
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil {
		category, err := models.ParseCategory(patch.Category.String())
		if err != nil {
			return nil, &ValidationError{Field: "category", Msg: err.Error()}
		}
		patch.Category = &category
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Date != nil && patch.Date.IsZero() {
		return nil, &ValidationError{Field: "date", Msg: "date must not be empty"}
	}

	return s.store.UpdateExpense(ctx, ownerID, id, patch)
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	return s.store.DeleteExpense(ctx, ownerID, id)
}

// resolvePeriod maps a period keyword to an inclusive start date relative to
// today. Unrecognized values are ignored rather than rejected; clients have
// historically sent arbitrary strings here and the API tolerates them.
func resolvePeriod(period string, today models.Date) (models.Date, bool) {
	switch period {
	case "week":
		return today.AddDays(-7), true
	case "month":
		return today.AddDays(-30), true
	case "3months":
		return today.AddDays(-90), true
	default:
		return models.Date{}, false
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Msg: "must be greater than 0"}
	}
	if amount.Exponent() < -2 {
		return &ValidationError{Field: "amount", Msg: "at most 2 decimal places"}
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > maxDescriptionLen {
		return &ValidationError{Field: "description", Msg: fmt.Sprintf("longer than %d characters", maxDescriptionLen)}
	}
	return nil
}

// CategorySummary is one aggregated row of a summary.
type CategorySummary struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Summary aggregates an owner's expenses over an optional date range.
type Summary struct {
	TotalAmount decimal.Decimal   `json:"total_amount"`
	TotalCount  int               `json:"total_count"`
	Categories  []CategorySummary `json:"categories"`
}

// Summarize groups the owner's date-filtered expenses by category. Sums use
// decimal arithmetic so currency totals carry no floating-point drift.
// Categories without matching expenses are omitted.
func (s *Service) Summarize(ctx context.Context, ownerID int64, startDate, endDate models.Date) (*Summary, error) {
	expenses, err := s.store.ListExpenses(ctx, ownerID, Filter{StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, err
	}

	totals := make(map[models.Category]*CategorySummary)
	for _, e := range expenses {
		row, ok := totals[e.Category]
		if !ok {
			row = &CategorySummary{Category: e.Category, Total: decimal.Zero}
			totals[e.Category] = row
		}
		row.Total = row.Total.Add(e.Amount)
		row.Count++
	}

	summary := &Summary{
		TotalAmount: decimal.Zero,
		Categories:  make([]CategorySummary, 0, len(totals)),
	}
	for _, row := range totals {
		summary.TotalAmount = summary.TotalAmount.Add(row.Total)
		summary.TotalCount += row.Count
		summary.Categories = append(summary.Categories, *row)
	}

	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	return summary, nil
}
