package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	customerapp "github.com/waterworks/backend/internal/application/customer"
	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/customer"
	"github.com/waterworks/backend/internal/domain/metering"
	"github.com/waterworks/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

type customerMocks struct {
	customerRepo  *mockCustomerRepository
	meterRepo     *mockMeterRepository
	tariffRepo    *mockTariffRepository
	changeLogRepo *mockChangeLogRepository
}

func setupCustomerTestHandler() (*CustomerHandler, *customerMocks) {
	gin.SetMode(gin.TestMode)

	mocks := &customerMocks{
		customerRepo:  newMockCustomerRepository(),
		meterRepo:     newMockMeterRepository(),
		tariffRepo:    newMockTariffRepository(),
		changeLogRepo: newMockChangeLogRepository(),
	}

	service := customerapp.NewCustomerService(
		mocks.customerRepo,
		mocks.meterRepo,
		mocks.tariffRepo,
		mocks.changeLogRepo,
		zap.NewNop(),
	)
	handler := NewCustomerHandler(service)

	return handler, mocks
}

func createTestCustomer(mocks *customerMocks, code string) *customer.Customer {
	cust, _ := customer.NewCustomer(code, "Customer "+code)
	mocks.customerRepo.customers[cust.ID] = cust
	return cust
}

func createUnassignedMeter(mocks *customerMocks, serial string) *metering.Meter {
	meter, _ := metering.NewMeter(serial, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	mocks.meterRepo.meters[meter.ID] = meter
	return meter
}

func putCustomerUpdate(handler *CustomerHandler, customerID uuid.UUID, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/customers/"+customerID.String(), bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-ID", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: customerID.String()}}

	handler.Update(c)
	return w
}

// Tests

func TestNewCustomerHandler(t *testing.T) {
	handler, _ := setupCustomerTestHandler()
	assert.NotNil(t, handler)
	assert.NotNil(t, handler.customerService)
}

func TestCustomerHandler_Create_Success(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()

	body, _ := json.Marshal(map[string]interface{}{
		"code": "C-001",
		"name": "Ada Waters",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/customers", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp APIResponse[customerapp.CustomerResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "C-001", resp.Data.Code)
	assert.Equal(t, "active", resp.Data.Status)

	// Creation is recorded on the audit trail.
	assert.Len(t, mocks.changeLogRepo.entries, 1)
}

func TestCustomerHandler_Create_DuplicateCode(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()
	createTestCustomer(mocks, "C-001")

	body, _ := json.Marshal(map[string]interface{}{
		"code": "C-001",
		"name": "Duplicate Account",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/customers", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestCustomerHandler_Create_UnknownTariff(t *testing.T) {
	handler, _ := setupCustomerTestHandler()

	body, _ := json.Marshal(map[string]interface{}{
		"code":      "C-002",
		"name":      "No Such Tariff",
		"tariff_id": uuid.New(),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/customers", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerHandler_GetByCode_Success(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()
	cust := createTestCustomer(mocks, "C-001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/customers/by-code/C-001", nil)
	c.Params = gin.Params{{Key: "code", Value: "C-001"}}

	handler.GetByCode(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[customerapp.CustomerResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, cust.ID, resp.Data.ID)
}

func TestCustomerHandler_Update_AssignMeters(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()

	cust := createTestCustomer(mocks, "C-001")
	first := createUnassignedMeter(mocks, "WM-1001")
	second := createUnassignedMeter(mocks, "WM-1002")

	w := putCustomerUpdate(handler, cust.ID, map[string]interface{}{
		"assign_meter_ids": []uuid.UUID{first.ID, second.ID},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[customerapp.CustomerResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Meters, 2)

	for _, meterID := range []uuid.UUID{first.ID, second.ID} {
		stored := mocks.meterRepo.meters[meterID]
		require.NotNil(t, stored.CustomerID)
		assert.Equal(t, cust.ID, *stored.CustomerID)
	}
}

func TestCustomerHandler_Update_FanoutPartialFailure(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()

	cust := createTestCustomer(mocks, "C-001")
	free := createUnassignedMeter(mocks, "WM-1001")

	taken := createUnassignedMeter(mocks, "WM-1002")
	otherID := uuid.New()
	taken.CustomerID = &otherID
	mocks.meterRepo.meters[taken.ID] = taken

	w := putCustomerUpdate(handler, cust.ID, map[string]interface{}{
		"assign_meter_ids": []uuid.UUID{free.ID, taken.ID},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 of 2 meter operations failed")
	assert.Contains(t, resp.Error.Message, "already assigned elsewhere")

	// The sibling operation that succeeded stays applied.
	stored := mocks.meterRepo.meters[free.ID]
	require.NotNil(t, stored.CustomerID)
	assert.Equal(t, cust.ID, *stored.CustomerID)

	// The contested meter keeps its owner.
	kept := mocks.meterRepo.meters[taken.ID]
	require.NotNil(t, kept.CustomerID)
	assert.Equal(t, otherID, *kept.CustomerID)
}

func TestCustomerHandler_Update_ReleaseMeter(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()

	cust := createTestCustomer(mocks, "C-001")
	meter := createUnassignedMeter(mocks, "WM-1001")
	meter.CustomerID = &cust.ID
	mocks.meterRepo.meters[meter.ID] = meter

	w := putCustomerUpdate(handler, cust.ID, map[string]interface{}{
		"release_meter_ids": []uuid.UUID{meter.ID},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mocks.meterRepo.meters[meter.ID].CustomerID)
}

func TestCustomerHandler_Update_AssignTariff(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()

	cust := createTestCustomer(mocks, "C-001")
	tariff, _ := billing.NewTariff("Residential", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	mocks.tariffRepo.tariffs[tariff.ID] = tariff

	w := putCustomerUpdate(handler, cust.ID, map[string]interface{}{
		"tariff_id": tariff.ID,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[customerapp.CustomerResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.TariffID)
	assert.Equal(t, tariff.ID, *resp.Data.TariffID)
}

func TestCustomerHandler_Deactivate_Success(t *testing.T) {
	handler, mocks := setupCustomerTestHandler()
	cust := createTestCustomer(mocks, "C-001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/customers/"+cust.ID.String()+"/deactivate", nil)
	c.Request.Header.Set("X-User-ID", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: cust.ID.String()}}

	handler.Deactivate(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[customerapp.CustomerResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inactive", resp.Data.Status)
}

func TestCustomerHandler_GetByID_InvalidID(t *testing.T) {
	handler, _ := setupCustomerTestHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/customers/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	handler.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
