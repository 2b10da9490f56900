package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockMeterRepository(t *testing.T) (*GormMeterRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormMeterRepository(db), mock, mockDB
}

func meterColumns() []string {
	return []string{
		"id", "created_at", "updated_at", "version",
		"serial_number", "customer_id", "route_id", "status", "installed_at",
	}
}

func TestGormMeterRepository_FindByID(t *testing.T) {
	t.Run("finds existing meter", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		meterID := uuid.New()
		customerID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(meterColumns()).
			AddRow(meterID, now, now, 2, "WM-2024-0117", customerID, nil, "active", now)

		mock.ExpectQuery(`SELECT \* FROM "meters" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(meterID, 1).
			WillReturnRows(rows)

		found, err := repo.FindByID(context.Background(), meterID)

		assert.NoError(t, err)
		assert.Equal(t, meterID, found.ID)
		assert.Equal(t, "WM-2024-0117", found.SerialNumber)
		assert.Equal(t, metering.MeterStatusActive, found.Status)
		require.NotNil(t, found.CustomerID)
		assert.Equal(t, customerID, *found.CustomerID)
		assert.Nil(t, found.RouteID)
		assert.Equal(t, 2, found.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing meter", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		meterID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "meters" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(meterID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByID(context.Background(), meterID)

		assert.Nil(t, found)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMeterRepository_FindBySerialNumber(t *testing.T) {
	repo, mock, mockDB := newMockMeterRepository(t)
	defer mockDB.Close()

	now := time.Now()
	rows := sqlmock.NewRows(meterColumns()).
		AddRow(uuid.New(), now, now, 1, "WM-2024-0117", nil, nil, "active", now)

	mock.ExpectQuery(`SELECT \* FROM "meters" WHERE serial_number = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("WM-2024-0117", 1).
		WillReturnRows(rows)

	found, err := repo.FindBySerialNumber(context.Background(), "wm-2024-0117")

	assert.NoError(t, err)
	assert.Equal(t, "WM-2024-0117", found.SerialNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMeterRepository_FindByCustomer(t *testing.T) {
	repo, mock, mockDB := newMockMeterRepository(t)
	defer mockDB.Close()

	customerID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(meterColumns()).
		AddRow(uuid.New(), now, now, 1, "WM-2024-0117", customerID, nil, "active", now).
		AddRow(uuid.New(), now, now, 1, "WM-2024-0230", customerID, nil, "active", now)

	mock.ExpectQuery(`SELECT \* FROM "meters" WHERE customer_id = \$1 ORDER BY serial_number ASC`).
		WithArgs(customerID).
		WillReturnRows(rows)

	meters, err := repo.FindByCustomer(context.Background(), customerID)

	assert.NoError(t, err)
	require.Len(t, meters, 2)
	assert.Equal(t, "WM-2024-0117", meters[0].SerialNumber)
	assert.Equal(t, "WM-2024-0230", meters[1].SerialNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMeterRepository_FindUnassigned(t *testing.T) {
	repo, mock, mockDB := newMockMeterRepository(t)
	defer mockDB.Close()

	now := time.Now()
	rows := sqlmock.NewRows(meterColumns()).
		AddRow(uuid.New(), now, now, 1, "WM-2024-0501", nil, nil, "active", now)

	mock.ExpectQuery(`SELECT \* FROM "meters" WHERE customer_id IS NULL ORDER BY serial_number ASC`).
		WillReturnRows(rows)

	meters, err := repo.FindUnassigned(context.Background(), shared.Filter{})

	assert.NoError(t, err)
	require.Len(t, meters, 1)
	assert.Nil(t, meters[0].CustomerID)
	assert.False(t, meters[0].IsAssigned())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMeterRepository_Save(t *testing.T) {
	t.Run("persists meter", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		m, err := metering.NewMeter("WM-2024-0117", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "meters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(context.Background(), m)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps duplicate serial number to conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		m, err := metering.NewMeter("WM-2024-0117", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "meters" SET`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err = repo.Save(context.Background(), m)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		assert.Contains(t, err.Error(), "WM-2024-0117")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMeterRepository_SaveWithLock(t *testing.T) {
	t.Run("persists assignment when stored version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		m, err := metering.NewMeter("WM-2024-0117", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NoError(t, m.AssignTo(uuid.New()))

		mock.ExpectExec(`UPDATE "meters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.SaveWithLock(context.Background(), m)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects stale version", func(t *testing.T) {
		repo, mock, mockDB := newMockMeterRepository(t)
		defer mockDB.Close()

		m, err := metering.NewMeter("WM-2024-0117", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NoError(t, m.AssignTo(uuid.New()))

		mock.ExpectExec(`UPDATE "meters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.SaveWithLock(context.Background(), m)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
		assert.Contains(t, err.Error(), "modified by another transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMeterRepository_ExistsBySerialNumber(t *testing.T) {
	repo, mock, mockDB := newMockMeterRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "meters" WHERE serial_number = \$1`).
		WithArgs("WM-2024-0117").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsBySerialNumber(context.Background(), "wm-2024-0117")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMeterRepository_InterfaceCompliance(t *testing.T) {
	repo, _, mockDB := newMockMeterRepository(t)
	defer mockDB.Close()

	var _ metering.MeterRepository = repo
}
