package db_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/db"
	"github.com/spendtrack/spendtrack/internal/expense"
	"github.com/spendtrack/spendtrack/internal/models"
	"github.com/spendtrack/spendtrack/internal/utils"
)

func testStore(t *testing.T) *db.Postgres {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	cfg := utils.PostgresConfig{
		DSN:            dsn,
		ConnectTimeout: 5 * time.Second,
	}

	store, err := db.NewPostgres(context.Background(), cfg)
	require.NoError(t, err, "failed to connect to postgres")
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(context.Background()))

	return store
}

func testUser(t *testing.T, store *db.Postgres) *models.User {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	user := &models.User{
		Username:     "user_" + suffix,
		Email:        suffix + "@example.com",
		PasswordHash: "hashed",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	t.Cleanup(func() {
		_ = store.DeleteUser(context.Background(), user.Username)
	})

	return user
}

func TestUserUniqueness(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := testUser(t, store)

	dup := &models.User{
		Username:     user.Username,
		Email:        "other_" + user.Email,
		PasswordHash: "hashed",
		CreatedAt:    time.Now().UTC(),
	}
	assert.ErrorIs(t, store.CreateUser(ctx, dup), auth.ErrUsernameTaken)

	dup = &models.User{
		Username:     user.Username + "_other",
		Email:        user.Email,
		PasswordHash: "hashed",
		CreatedAt:    time.Now().UTC(),
	}
	assert.ErrorIs(t, store.CreateUser(ctx, dup), auth.ErrEmailTaken)

	fetched, err := store.GetUserByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, fetched.ID)

	_, err = store.GetUserByUsername(ctx, "missing_"+user.Username)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestExpenseCRUDAndScoping(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	alice := testUser(t, store)
	bob := testUser(t, store)

	e := &models.Expense{
		UserID:      alice.ID,
		Amount:      decimal.RequireFromString("12.50"),
		Category:    models.CategoryGroceries,
		Description: "weekly shop",
		Date:        models.NewDate(2026, time.August, 20),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateExpense(ctx, e))
	require.NotZero(t, e.ID)

	fetched, err := store.GetExpense(ctx, alice.ID, e.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, models.CategoryGroceries, fetched.Category)
	assert.Equal(t, "2026-08-20", fetched.Date.String())
	assert.Nil(t, fetched.UpdatedAt)

	_, err = store.GetExpense(ctx, bob.ID, e.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "foreign-owned must look absent")

	amount := decimal.RequireFromString("9.99")
	updated, err := store.UpdateExpense(ctx, alice.ID, e.ID, expense.Patch{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "weekly shop", updated.Description)
	require.NotNil(t, updated.UpdatedAt)

	_, err = store.UpdateExpense(ctx, bob.ID, e.ID, expense.Patch{Amount: &amount})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, store.DeleteExpense(ctx, bob.ID, e.ID), models.ErrNotFound)
	require.NoError(t, store.DeleteExpense(ctx, alice.ID, e.ID))
	assert.ErrorIs(t, store.DeleteExpense(ctx, alice.ID, e.ID), models.ErrNotFound)
}

func TestListExpensesFilteringAndOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := testUser(t, store)

	seed := []struct {
		amount   string
		category models.Category
		date     models.Date
	}{
		{"10.00", models.CategoryGroceries, models.NewDate(2026, time.August, 25)},
		{"20.00", models.CategoryLeisure, models.NewDate(2026, time.August, 22)},
		{"30.00", models.CategoryGroceries, models.NewDate(2026, time.August, 22)},
		{"40.00", models.CategoryGroceries, models.NewDate(2026, time.June, 1)},
	}
	for _, item := range seed {
		require.NoError(t, store.CreateExpense(ctx, &models.Expense{
			UserID:    user.ID,
			Amount:    decimal.RequireFromString(item.amount),
			Category:  item.category,
			Date:      item.date,
			CreatedAt: time.Now().UTC(),
		}))
	}

	all, err := store.ListExpenses(ctx, user.ID, expense.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		ordered := cur.Date.Before(prev.Date) || (cur.Date.Equal(prev.Date.Time) && cur.ID < prev.ID)
		assert.True(t, ordered, "expected date desc then id desc at index %d", i)
	}

	ranged, err := store.ListExpenses(ctx, user.ID, expense.Filter{
		StartDate: models.NewDate(2026, time.August, 22),
		EndDate:   models.NewDate(2026, time.August, 25),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 3, "date bounds are inclusive")

	groceries, err := store.ListExpenses(ctx, user.ID, expense.Filter{Category: models.CategoryGroceries})
	require.NoError(t, err)
	assert.Len(t, groceries, 3)
}

func TestDeleteUserCascades(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := testUser(t, store)

	e := &models.Expense{
		UserID:    user.ID,
		Amount:    decimal.RequireFromString("5.00"),
		Category:  models.CategoryHealth,
		Date:      models.NewDate(2026, time.August, 20),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateExpense(ctx, e))

	require.NoError(t, store.DeleteUser(ctx, user.Username))

	_, err := store.GetExpense(ctx, user.ID, e.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "cascade must remove owned expenses")
}
