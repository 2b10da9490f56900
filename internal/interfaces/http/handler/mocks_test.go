package handler

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/waterworks/backend/internal/domain/audit"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
)

// Map-backed repository mocks shared by the handler tests. Handlers are
// exercised over real application services wired to these, so each test
// runs the full binding, service and error translation path.

type mockTariffRepository struct {
	tariffs   map[uuid.UUID]*billing.Tariff
	ranges    map[uuid.UUID][]billing.TariffRange
	returnErr error
}

func newMockTariffRepository() *mockTariffRepository {
	return &mockTariffRepository{
		tariffs: make(map[uuid.UUID]*billing.Tariff),
		ranges:  make(map[uuid.UUID][]billing.TariffRange),
	}
}

func (m *mockTariffRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Tariff, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if t, ok := m.tariffs[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockTariffRepository) FindByIDWithRanges(ctx context.Context, id uuid.UUID) (*billing.Tariff, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	t, ok := m.tariffs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	t.Ranges = billing.SortRangesByMin(m.ranges[id])
	return t, nil
}

func (m *mockTariffRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*billing.Tariff], error) {
	if m.returnErr != nil {
		return shared.Paginated[*billing.Tariff]{}, m.returnErr
	}
	items := make([]*billing.Tariff, 0, len(m.tariffs))
	for _, t := range m.tariffs {
		items = append(items, t)
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (m *mockTariffRepository) FindRanges(ctx context.Context, tariffID uuid.UUID) ([]billing.TariffRange, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return billing.SortRangesByMin(m.ranges[tariffID]), nil
}

func (m *mockTariffRepository) Save(ctx context.Context, tariff *billing.Tariff) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.tariffs[tariff.ID] = tariff
	return nil
}

func (m *mockTariffRepository) SaveRanges(ctx context.Context, tariffID uuid.UUID, ranges []billing.TariffRange) (int, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	kept := make([]billing.TariffRange, len(ranges))
	copy(kept, ranges)
	m.ranges[tariffID] = kept
	return len(kept), nil
}

func (m *mockTariffRepository) Count(ctx context.Context) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.tariffs)), nil
}

type mockInvoiceRepository struct {
	invoices  map[uuid.UUID]*billing.Invoice
	byReading map[uuid.UUID]uuid.UUID
	billable  []billing.BillableReading
	returnErr error
	saveErr   error
}

func newMockInvoiceRepository() *mockInvoiceRepository {
	return &mockInvoiceRepository{
		invoices:  make(map[uuid.UUID]*billing.Invoice),
		byReading: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if inv, ok := m.invoices[id]; ok {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockInvoiceRepository) FindByReadingID(ctx context.Context, readingID uuid.UUID) (*billing.Invoice, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if id, ok := m.byReading[readingID]; ok {
		return m.invoices[id], nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockInvoiceRepository) ExistsForReading(ctx context.Context, readingID uuid.UUID) (bool, error) {
	if m.returnErr != nil {
		return false, m.returnErr
	}
	_, ok := m.byReading[readingID]
	return ok, nil
}

func (m *mockInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	if m.returnErr != nil {
		return shared.Paginated[*billing.Invoice]{}, m.returnErr
	}
	items := make([]*billing.Invoice, 0)
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID {
			items = append(items, inv)
		}
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (m *mockInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*billing.Invoice], error) {
	if m.returnErr != nil {
		return shared.Paginated[*billing.Invoice]{}, m.returnErr
	}
	items := make([]*billing.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		items = append(items, inv)
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (m *mockInvoiceRepository) FindBillableReadings(ctx context.Context, period valueobject.Period, afterReading uuid.UUID, limit int) ([]billing.BillableReading, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	pending := make([]billing.BillableReading, 0)
	for _, b := range m.billable {
		if !b.Period.Equals(period) {
			continue
		}
		if _, invoiced := m.byReading[b.ReadingID]; invoiced {
			continue
		}
		if afterReading != uuid.Nil && bytes.Compare(b.ReadingID[:], afterReading[:]) <= 0 {
			continue
		}
		pending = append(pending, b)
	}
	sort.Slice(pending, func(i, j int) bool {
		return bytes.Compare(pending[i].ReadingID[:], pending[j].ReadingID[:]) < 0
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	if existing, ok := m.byReading[invoice.ReadingID]; ok && existing != invoice.ID {
		return shared.NewConflictError("invoice already exists for reading %s", invoice.ReadingID)
	}
	m.invoices[invoice.ID] = invoice
	m.byReading[invoice.ReadingID] = invoice.ID
	return nil
}

func (m *mockInvoiceRepository) Count(ctx context.Context) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.invoices)), nil
}

// mockPaymentRepository mirrors the settlement trigger: inserting a
// payment rederives the linked invoice's balance and status the way
// storage does, so the service's post-write re-read sees settled state.
type mockPaymentRepository struct {
	payments  map[uuid.UUID]*billing.Payment
	invoices  *mockInvoiceRepository
	returnErr error
}

func newMockPaymentRepository(invoices *mockInvoiceRepository) *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: make(map[uuid.UUID]*billing.Payment),
		invoices: invoices,
	}
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	items := make([]*billing.Payment, 0)
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			items = append(items, p)
		}
	}
	return items, nil
}

func (m *mockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	inv, ok := m.invoices.invoices[payment.InvoiceID]
	if !ok {
		return shared.ErrNotFound
	}
	m.payments[payment.ID] = payment
	inv.Balance = inv.Balance.MustSubtract(payment.Applied)
	switch {
	case inv.Balance.IsZero():
		inv.Status = billing.InvoiceStatusPaid
	case inv.Balance.Amount().LessThan(inv.Total.Amount()):
		inv.Status = billing.InvoiceStatusPartiallyPaid
	default:
		inv.Status = billing.InvoiceStatusPending
	}
	return nil
}

func (m *mockPaymentRepository) Count(ctx context.Context) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.payments)), nil
}

type mockReadingRepository struct {
	readings  map[uuid.UUID]*metering.Reading
	returnErr error
}

func newMockReadingRepository() *mockReadingRepository {
	return &mockReadingRepository{readings: make(map[uuid.UUID]*metering.Reading)}
}

func (m *mockReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Reading, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if r, ok := m.readings[id]; ok {
		return r, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockReadingRepository) FindByMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (*metering.Reading, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	for _, r := range m.readings {
		if r.MeterID == meterID && r.Period.Equals(period) {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockReadingRepository) ExistsForMeterAndPeriod(ctx context.Context, meterID uuid.UUID, period valueobject.Period) (bool, error) {
	if m.returnErr != nil {
		return false, m.returnErr
	}
	for _, r := range m.readings {
		if r.MeterID == meterID && r.Period.Equals(period) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReadingRepository) FindByMeter(ctx context.Context, meterID uuid.UUID, filter shared.Filter) ([]metering.Reading, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []metering.Reading
	for _, r := range m.readings {
		if r.MeterID == meterID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReadingRepository) FindByPeriod(ctx context.Context, period valueobject.Period, filter shared.Filter) ([]metering.Reading, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []metering.Reading
	for _, r := range m.readings {
		if r.Period.Equals(period) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReadingRepository) Save(ctx context.Context, reading *metering.Reading) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	for _, r := range m.readings {
		if r.ID != reading.ID && r.MeterID == reading.MeterID && r.Period.Equals(reading.Period) {
			return shared.NewConflictError("reading already exists for meter %s in period %s", reading.MeterID, reading.Period.String())
		}
	}
	m.readings[reading.ID] = reading
	return nil
}

func (m *mockReadingRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.readings)), nil
}

// mockMeterRepository locks around its map: the customer update fan-out
// reaches it from multiple goroutines.
type mockMeterRepository struct {
	mu        sync.Mutex
	meters    map[uuid.UUID]*metering.Meter
	returnErr error
	lockErrOn map[uuid.UUID]error
}

func newMockMeterRepository() *mockMeterRepository {
	return &mockMeterRepository{
		meters:    make(map[uuid.UUID]*metering.Meter),
		lockErrOn: make(map[uuid.UUID]error),
	}
}

func (m *mockMeterRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if meter, ok := m.meters[id]; ok {
		copied := *meter
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockMeterRepository) FindBySerialNumber(ctx context.Context, serial string) (*metering.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	for _, meter := range m.meters {
		if meter.SerialNumber == serial {
			copied := *meter
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockMeterRepository) FindAll(ctx context.Context, filter shared.Filter) ([]metering.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	result := make([]metering.Meter, 0, len(m.meters))
	for _, meter := range m.meters {
		result = append(result, *meter)
	}
	return result, nil
}

func (m *mockMeterRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]metering.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []metering.Meter
	for _, meter := range m.meters {
		if meter.CustomerID != nil && *meter.CustomerID == customerID {
			result = append(result, *meter)
		}
	}
	return result, nil
}

func (m *mockMeterRepository) FindUnassigned(ctx context.Context, filter shared.Filter) ([]metering.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []metering.Meter
	for _, meter := range m.meters {
		if meter.CustomerID == nil {
			result = append(result, *meter)
		}
	}
	return result, nil
}

func (m *mockMeterRepository) Save(ctx context.Context, meter *metering.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return m.returnErr
	}
	copied := *meter
	m.meters[meter.ID] = &copied
	return nil
}

func (m *mockMeterRepository) SaveWithLock(ctx context.Context, meter *metering.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return m.returnErr
	}
	if err, ok := m.lockErrOn[meter.ID]; ok {
		return err
	}
	copied := *meter
	m.meters[meter.ID] = &copied
	return nil
}

func (m *mockMeterRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.meters)), nil
}

func (m *mockMeterRepository) ExistsBySerialNumber(ctx context.Context, serial string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.returnErr != nil {
		return false, m.returnErr
	}
	for _, meter := range m.meters {
		if meter.SerialNumber == serial {
			return true, nil
		}
	}
	return false, nil
}

type mockRouteRepository struct {
	routes    map[uuid.UUID]*metering.Route
	returnErr error
}

func newMockRouteRepository() *mockRouteRepository {
	return &mockRouteRepository{routes: make(map[uuid.UUID]*metering.Route)}
}

func (m *mockRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.Route, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if r, ok := m.routes[id]; ok {
		return r, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRouteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]metering.Route, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	result := make([]metering.Route, 0, len(m.routes))
	for _, r := range m.routes {
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRouteRepository) Save(ctx context.Context, route *metering.Route) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.routes[route.ID] = route
	return nil
}

func (m *mockRouteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.routes)), nil
}

type mockCustomerRepository struct {
	customers map[uuid.UUID]*customer.Customer
	returnErr error
}

func newMockCustomerRepository() *mockCustomerRepository {
	return &mockCustomerRepository{customers: make(map[uuid.UUID]*customer.Customer)}
}

func (m *mockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockCustomerRepository) FindByCode(ctx context.Context, code string) (*customer.Customer, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	for _, c := range m.customers {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]customer.Customer, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	result := make([]customer.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockCustomerRepository) FindByStatus(ctx context.Context, status customer.CustomerStatus, filter shared.Filter) ([]customer.Customer, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []customer.Customer
	for _, c := range m.customers {
		if c.Status == status {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.customers[c.ID] = c
	return nil
}

func (m *mockCustomerRepository) SaveWithLock(ctx context.Context, c *customer.Customer) error {
	return m.Save(ctx, c)
}

func (m *mockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	return int64(len(m.customers)), nil
}

func (m *mockCustomerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.returnErr != nil {
		return false, m.returnErr
	}
	for _, c := range m.customers {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type mockChangeLogRepository struct {
	entries   []*audit.ChangeLogEntry
	returnErr error
}

func newMockChangeLogRepository() *mockChangeLogRepository {
	return &mockChangeLogRepository{}
}

func (m *mockChangeLogRepository) Save(ctx context.Context, entry *audit.ChangeLogEntry) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockChangeLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) (shared.Paginated[*audit.ChangeLogEntry], error) {
	if m.returnErr != nil {
		return shared.Paginated[*audit.ChangeLogEntry]{}, m.returnErr
	}
	items := make([]*audit.ChangeLogEntry, 0)
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			items = append(items, e)
		}
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (m *mockChangeLogRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*audit.ChangeLogEntry], error) {
	if m.returnErr != nil {
		return shared.Paginated[*audit.ChangeLogEntry]{}, m.returnErr
	}
	items := make([]*audit.ChangeLogEntry, len(m.entries))
	copy(items, m.entries)
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

type mockDashboardRepository struct {
	summary   *billing.DashboardSummary
	returnErr error
	calls     int
}

func (m *mockDashboardRepository) Summary(ctx context.Context, period valueobject.Period) (*billing.DashboardSummary, error) {
	m.calls++
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return m.summary, nil
}

type mockAttachmentRepository struct {
	attachments map[uuid.UUID]*metering.ReadingAttachment
	returnErr   error
}

func newMockAttachmentRepository() *mockAttachmentRepository {
	return &mockAttachmentRepository{attachments: make(map[uuid.UUID]*metering.ReadingAttachment)}
}

func (m *mockAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*metering.ReadingAttachment, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if a, ok := m.attachments[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockAttachmentRepository) FindByReading(ctx context.Context, readingID uuid.UUID) ([]*metering.ReadingAttachment, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	result := make([]*metering.ReadingAttachment, 0)
	for _, a := range m.attachments {
		if a.ReadingID == readingID && !a.IsDeleted() {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockAttachmentRepository) CountActiveByReading(ctx context.Context, readingID uuid.UUID) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	var count int64
	for _, a := range m.attachments {
		if a.ReadingID == readingID && !a.IsDeleted() {
			count++
		}
	}
	return count, nil
}

func (m *mockAttachmentRepository) Save(ctx context.Context, attachment *metering.ReadingAttachment) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.attachments[attachment.ID] = attachment
	return nil
}

func (m *mockAttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	if _, ok := m.attachments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.attachments, id)
	return nil
}

// fakeObjectStorage stands in for the presigning backend. Existence and
// presign failures are switchable so tests can drive both confirmation
// outcomes.
type fakeObjectStorage struct {
	objectExists bool
	presignErr   error
}

func (f *fakeObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if f.presignErr != nil {
		return "", time.Time{}, f.presignErr
	}
	return "https://storage.test/upload/" + storageKey, time.Now().Add(expiresIn), nil
}

func (f *fakeObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if f.presignErr != nil {
		return "", time.Time{}, f.presignErr
	}
	return "https://storage.test/download/" + storageKey, time.Now().Add(expiresIn), nil
}

func (f *fakeObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	return nil
}

func (f *fakeObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	return f.objectExists, nil
}
