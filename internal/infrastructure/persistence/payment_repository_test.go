package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"github.com/waterworks/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.PaymentModel{})
	require.NoError(t, err)

	return db
}

func invoiceWithBalance(t *testing.T, total string) *billing.Invoice {
	t.Helper()

	period, err := valueobject.NewPeriod(2025, time.June)
	require.NoError(t, err)
	totalMoney, err := valueobject.NewMoneyUSDFromString(total)
	require.NoError(t, err)

	invoice, err := billing.NewInvoice(
		uuid.New(), uuid.New(), uuid.New(),
		period, decimal.NewFromFloat(23.5),
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), totalMoney,
	)
	require.NoError(t, err)
	return invoice
}

func cashPayment(t *testing.T, invoice *billing.Invoice, paidOn time.Time, tendered string) *billing.Payment {
	t.Helper()

	tenderedMoney, err := valueobject.NewMoneyUSDFromString(tendered)
	require.NoError(t, err)

	payment, err := billing.NewPayment(invoice, paidOn, tenderedMoney, billing.PaymentMethodCash, uuid.New())
	require.NoError(t, err)
	return payment
}

func TestGormPaymentRepository_Save(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	t.Run("saves and reloads a payment", func(t *testing.T) {
		invoice := invoiceWithBalance(t, "51.25")
		payment := cashPayment(t, invoice, time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC), "30.50")

		err := repo.Save(ctx, payment)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.ID, found.ID)
		assert.Equal(t, invoice.ID, found.InvoiceID)
		assert.Equal(t, "30.50", found.Tendered.StringFixed(2))
		assert.Equal(t, "30.50", found.Applied.StringFixed(2))
		assert.True(t, found.Change.IsZero())
		assert.Equal(t, billing.PaymentMethodCash, found.Method)
		assert.Equal(t, payment.ReceivedBy, found.ReceivedBy)
	})

	t.Run("keeps the change from an overpayment", func(t *testing.T) {
		invoice := invoiceWithBalance(t, "51.25")
		payment := cashPayment(t, invoice, time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC), "60.00")

		err := repo.Save(ctx, payment)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, "60.00", found.Tendered.StringFixed(2))
		assert.Equal(t, "51.25", found.Applied.StringFixed(2))
		assert.Equal(t, "8.75", found.Change.StringFixed(2))
	})
}

func TestGormPaymentRepository_FindByID_NotFound(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)

	found, err := repo.FindByID(context.Background(), uuid.New())

	assert.Nil(t, found)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGormPaymentRepository_FindByInvoice(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	invoice := invoiceWithBalance(t, "51.25")
	other := invoiceWithBalance(t, "20.00")

	// Insert out of order; FindByInvoice returns oldest first
	for _, p := range []struct {
		paidOn   time.Time
		tendered string
	}{
		{time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC), "20.00"},
		{time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC), "10.00"},
		{time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), "5.50"},
	} {
		err := repo.Save(ctx, cashPayment(t, invoice, p.paidOn, p.tendered))
		require.NoError(t, err)
	}
	err := repo.Save(ctx, cashPayment(t, other, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), "20.00"))
	require.NoError(t, err)

	payments, err := repo.FindByInvoice(ctx, invoice.ID)

	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, "10.00", payments[0].Tendered.StringFixed(2))
	assert.Equal(t, "5.50", payments[1].Tendered.StringFixed(2))
	assert.Equal(t, "20.00", payments[2].Tendered.StringFixed(2))
	assert.True(t, payments[0].PaidOn.Before(payments[1].PaidOn))
	assert.True(t, payments[1].PaidOn.Before(payments[2].PaidOn))
}

func TestGormPaymentRepository_Count(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	invoice := invoiceWithBalance(t, "51.25")
	require.NoError(t, repo.Save(ctx, cashPayment(t, invoice, time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC), "20.00")))
	require.NoError(t, repo.Save(ctx, cashPayment(t, invoice, time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC), "10.00")))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGormPaymentRepository_InterfaceCompliance(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)

	var _ billing.PaymentRepository = repo
}
