package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Verify interface compliance
var _ billing.PaymentRepository = (*MockPaymentRepository)(nil)

// MockInvoiceRepositoryForPayments is a mock implementation of
// InvoiceRepository for payment application tests
type MockInvoiceRepositoryForPayments struct {
	mock.Mock
}

func (m *MockInvoiceRepositoryForPayments) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) FindByReadingID(ctx context.Context, readingID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, readingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) ExistsForReading(ctx context.Context, readingID uuid.UUID) (bool, error) {
	args := m.Called(ctx, readingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	args := m.Called(ctx, customerID, filter)
	return args.Get(0).(shared.Paginated[*billing.Invoice]), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[*billing.Invoice]), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) FindBillableReadings(ctx context.Context, period valueobject.Period, afterReading uuid.UUID, limit int) ([]billing.BillableReading, error) {
	args := m.Called(ctx, period, afterReading, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BillableReading), args.Error(1)
}

func (m *MockInvoiceRepositoryForPayments) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepositoryForPayments) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ billing.InvoiceRepository = (*MockInvoiceRepositoryForPayments)(nil)

// =============================================================================
// Test Helper Functions
// =============================================================================

func newOpenInvoice(t *testing.T, total string) *billing.Invoice {
	t.Helper()
	period, err := valueobject.NewPeriod(2025, time.August)
	assert.NoError(t, err)
	invoice, err := billing.NewInvoice(uuid.New(), uuid.New(), uuid.New(), period,
		decimal.RequireFromString("15"), time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyUSD(decimal.RequireFromString(total)))
	assert.NoError(t, err)
	invoice.ClearDomainEvents()
	return invoice
}

// settledCopy simulates the storage-side derivation: the re-read invoice
// comes back with the balance reduced and the status recomputed.
func settledCopy(invoice *billing.Invoice, balance string, status billing.InvoiceStatus) *billing.Invoice {
	settled := *invoice
	settled.Balance = valueobject.NewMoneyUSD(decimal.RequireFromString(balance))
	settled.Status = status
	return &settled
}

// =============================================================================
// PaymentService Tests
// =============================================================================

func TestPaymentService_Apply_CapsAtBalanceAndReturnsChange(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	notifier := new(MockNotifier)
	service := NewPaymentService(paymentRepo, invoiceRepo, notifier, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")
	paid := settledCopy(invoice, "0.00", billing.InvoiceStatusPaid)

	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil).Once()
	paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(paid, nil).Once()
	notifier.On("Notify", mock.Anything, "payment.applied", mock.Anything, shared.AudienceAdministration).Return()

	result, err := service.Apply(ctx, invoice.ID, ApplyPaymentRequest{
		Tendered: decimal.RequireFromString("80.00"),
		Method:   "cash",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "80.00", result.Tendered.StringFixed(2))
	assert.Equal(t, "50.00", result.Applied.StringFixed(2))
	assert.Equal(t, "30.00", result.Change.StringFixed(2))
	assert.Equal(t, "0.00", result.InvoiceBalance.StringFixed(2))
	assert.Equal(t, "PAID", result.InvoiceStatus)
	paymentRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestPaymentService_Apply_PartialPayment(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")
	partiallyPaid := settledCopy(invoice, "30.00", billing.InvoiceStatusPartiallyPaid)

	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil).Once()
	paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(partiallyPaid, nil).Once()

	result, err := service.Apply(ctx, invoice.ID, ApplyPaymentRequest{
		Tendered: decimal.RequireFromString("20.00"),
		Method:   "transfer",
	})

	assert.NoError(t, err)
	assert.Equal(t, "20.00", result.Applied.StringFixed(2))
	assert.Equal(t, "0.00", result.Change.StringFixed(2))
	assert.Equal(t, "30.00", result.InvoiceBalance.StringFixed(2))
	assert.Equal(t, "PARTIALLY_PAID", result.InvoiceStatus)
	paymentRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
}

func TestPaymentService_Apply_FullyPaidInvoiceRejected(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")
	invoice.Balance = valueobject.NewMoneyUSD(decimal.Zero)
	invoice.Status = billing.InvoiceStatusPaid

	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

	result, err := service.Apply(ctx, invoice.ID, ApplyPaymentRequest{
		Tendered: decimal.RequireFromString("10.00"),
		Method:   "cash",
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	assert.Contains(t, err.Error(), "already fully paid")
	paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	invoiceRepo.AssertExpectations(t)
}

func TestPaymentService_Apply_NonPositiveTenderRejected(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")

	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

	result, err := service.Apply(ctx, invoice.ID, ApplyPaymentRequest{
		Tendered: decimal.Zero,
		Method:   "cash",
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "tendered amount must be positive")
	paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	invoiceRepo.AssertExpectations(t)
}

func TestPaymentService_Apply_InvoiceNotFound(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoiceID := uuid.New()

	invoiceRepo.On("FindByID", mock.Anything, invoiceID).Return(nil, shared.NewNotFoundError("invoice %s not found", invoiceID))

	result, err := service.Apply(ctx, invoiceID, ApplyPaymentRequest{
		Tendered: decimal.RequireFromString("10.00"),
		Method:   "cash",
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	invoiceRepo.AssertExpectations(t)
}

func TestPaymentService_Apply_KeepsExplicitPaymentDate(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")
	partiallyPaid := settledCopy(invoice, "40.00", billing.InvoiceStatusPartiallyPaid)
	paidOn := time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)

	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil).Once()
	paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(partiallyPaid, nil).Once()

	result, err := service.Apply(ctx, invoice.ID, ApplyPaymentRequest{
		PaidOn:   &paidOn,
		Tendered: decimal.RequireFromString("10.00"),
		Method:   "check",
	})

	assert.NoError(t, err)
	assert.Equal(t, paidOn, result.PaidOn)
	paymentRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
}

func TestPaymentService_ListByInvoice_Success(t *testing.T) {
	paymentRepo := new(MockPaymentRepository)
	invoiceRepo := new(MockInvoiceRepositoryForPayments)
	service := NewPaymentService(paymentRepo, invoiceRepo, nil, zap.NewNop())

	ctx := context.Background()
	invoice := newOpenInvoice(t, "50.00")
	payment, err := billing.NewPayment(invoice, time.Time{}, valueobject.NewMoneyUSD(decimal.RequireFromString("20.00")), billing.PaymentMethodCash, uuid.New())
	assert.NoError(t, err)

	invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
	paymentRepo.On("FindByInvoice", ctx, invoice.ID).Return([]*billing.Payment{payment}, nil)

	result, err := service.ListByInvoice(ctx, invoice.ID)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, "20.00", result[0].Applied.StringFixed(2))
	paymentRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
}
