package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/api"
	"github.com/abkawan/card-ledger/internal/db"
	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
)

var testClock = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*mux.Router, *db.Memory) {
	t.Helper()

	store := db.NewMemory().WithClock(func() time.Time { return testClock })
	store.AddCustomer(models.Customer{CustomerID: 7, FirstName: "John", LastName: "Doe", FicoCreditScore: 720})
	store.AddAccount(models.Account{
		AccountID:      1,
		CustomerID:     7,
		ActiveStatus:   "Y",
		CurrentBalance: decimal.RequireFromString("250.00"),
		CreditLimit:    decimal.RequireFromString("1000.00"),
		OpenDate:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	store.AddCard(models.Card{CardNumber: "4111111111111111", AccountID: 1, CustomerID: 7})
	store.AddCategory(models.TransactionCategory{TypeCode: "01", CategoryCode: 1, CategoryDescription: "Regular Sales Draft"})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clock := func() time.Time { return testClock }
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, nil, nil, logger).WithClock(clock)
	reportService := service.NewReportService(store, logger).WithClock(clock)

	router := mux.NewRouter()
	api.SetupRoutes(router, api.NewHandler(accountService, transactionService, reportService, nil, logger))
	return router, store
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func postBody(amount string) map[string]interface{} {
	return map[string]interface{}{
		"cardNumber":        "4111111111111111",
		"typeCode":          "01",
		"categoryCode":      1,
		"source":            "POS",
		"description":       "grocery store purchase",
		"amount":            amount,
		"merchantId":        "M-1001",
		"merchantName":      "Corner Grocer",
		"merchantCity":      "Springfield",
		"merchantZip":       "12345",
		"originalTimestamp": "2024-03-15T10:30:00",
		"confirmation":      "Y",
	}
}

func TestPostTransactionEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/transactions", postBody("125.50"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %v", rec.Code, resp)
	}
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data missing from response: %v", resp)
	}
	if data["transactionId"] != "0000000000000001" {
		t.Errorf("transactionId = %v, want 0000000000000001", data["transactionId"])
	}
}

func TestPostTransactionValidationFailures(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name     string
		mutate   func(map[string]interface{})
		wantCode int
	}{
		{"unconfirmed", func(b map[string]interface{}) { b["confirmation"] = "N" }, http.StatusBadRequest},
		{"unknown card", func(b map[string]interface{}) { b["cardNumber"] = "4999999999999999" }, http.StatusNotFound},
		{"bad date", func(b map[string]interface{}) { b["originalTimestamp"] = "2024-02-30T10:00:00" }, http.StatusBadRequest},
		{"overlimit", func(b map[string]interface{}) { b["amount"] = "1000.01" }, http.StatusBadRequest},
		{"expired", func(b map[string]interface{}) { b["originalTimestamp"] = "2026-01-01T00:00:00" }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := postBody("10.00")
			tt.mutate(body)
			rec, resp := doRequest(t, router, http.MethodPost, "/api/transactions", body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %v", rec.Code, tt.wantCode, resp)
			}
			if resp["success"] != false {
				t.Errorf("success = %v, want false", resp["success"])
			}
			if msg, _ := resp["error"].(string); msg == "" {
				t.Error("error message is missing")
			}
		})
	}
}

func TestGetAccountEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/accounts/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	data := resp["data"].(map[string]interface{})
	if data["accountId"] != float64(1) {
		t.Errorf("accountId = %v, want 1", data["accountId"])
	}

	rec, resp = doRequest(t, router, http.MethodGet, "/api/accounts/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %v", rec.Code, resp)
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/accounts/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListAccountsByCustomerEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/accounts/customer/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestListTransactionsEndpointPagination(t *testing.T) {
	router, store := newTestRouter(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		store.AddTransaction(models.Transaction{
			TransactionID:     fmt.Sprintf("%016d", i+1),
			CardNumber:        "4111111111111111",
			AccountID:         1,
			OriginalTimestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	rec, resp := doRequest(t, router, http.MethodGet, "/api/transactions?page=0&size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	if resp["totalItems"] != float64(12) || resp["totalPages"] != float64(2) || resp["currentPage"] != float64(0) {
		t.Errorf("pagination metadata = %v, want 12 items over 2 pages", resp)
	}
	if items := resp["data"].([]interface{}); len(items) != 10 {
		t.Errorf("items = %d, want 10", len(items))
	}
}

func TestDateRangeEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	store.AddTransaction(models.Transaction{
		TransactionID:     "0000000000000001",
		CardNumber:        "4111111111111111",
		AccountID:         1,
		OriginalTimestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})

	rec, resp := doRequest(t, router, http.MethodGet, "/api/transactions/date-range?startDate=2024-01-01&endDate=2024-01-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/transactions/date-range?startDate=2024-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing endDate: status = %d, want 400", rec.Code)
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/transactions/date-range?startDate=bad&endDate=2024-01-31", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad startDate: status = %d, want 400", rec.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	store.AddTransaction(models.Transaction{
		TransactionID:     "0000000000000001",
		CardNumber:        "4111111111111111",
		AccountID:         1,
		OriginalTimestamp: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	})

	rec, resp := doRequest(t, router, http.MethodPost, "/api/reports/transactions", map[string]interface{}{
		"reportType":   "MONTHLY",
		"confirmation": "Y",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}

	rec, _ = doRequest(t, router, http.MethodPost, "/api/reports/transactions", map[string]interface{}{
		"reportType":   "CUSTOM",
		"startDate":    "2024-02-01",
		"endDate":      "2024-01-01",
		"confirmation": "Y",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status = %d, want 400", rec.Code)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, resp)
	}
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestAuditEndpointDisabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/audit/postings", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503: %v", rec.Code, resp)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status body = %v, want ok", resp["status"])
	}
}
