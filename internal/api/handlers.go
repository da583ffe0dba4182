package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
	"github.com/abkawan/card-ledger/internal/validation"
)

// AuditReader exposes the posting audit trail to the API. Optional.
type AuditReader interface {
	RecentPostings(ctx context.Context, limit int) ([]service.PostingRecord, error)
}

// Handler routes API requests to the services.
type Handler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
	reportService      *service.ReportService
	auditReader        AuditReader
	logger             *logrus.Logger
}

// NewHandler creates a Handler. auditReader may be nil.
func NewHandler(accountService *service.AccountService, transactionService *service.TransactionService, reportService *service.ReportService, auditReader AuditReader, logger *logrus.Logger) *Handler {
	return &Handler{
		accountService:     accountService,
		transactionService: transactionService,
		reportService:      reportService,
		auditReader:        auditReader,
		logger:             logger,
	}
}

// envelope is the response wrapper every endpoint returns.
type envelope map[string]interface{}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// for error responses
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{"success": false, "error": message})
}

// respondDomainError maps a service error to its HTTP status.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case service.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case service.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTransactionIDConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).Error("unexpected error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handles account retrieval
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": account})
}

// handles account listing
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": accounts, "count": len(accounts)})
}

// handles account listing by customer
func (h *Handler) ListAccountsByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(mux.Vars(r)["customerId"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	accounts, err := h.accountService.ListAccountsByCustomer(r.Context(), customerID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": accounts, "count": len(accounts)})
}

// handles customer retrieval
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := h.accountService.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": customer})
}

// handles category listing
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.accountService.ListCategories(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": categories, "count": len(categories)})
}

// handles transaction retrieval
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.transactionService.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": txn})
}

// handles paginated transaction listing
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 10)

	result, err := h.transactionService.ListTransactions(r.Context(), page, size)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		"success":     true,
		"data":        result.Content,
		"currentPage": result.Page,
		"totalPages":  result.TotalPages,
		"totalItems":  result.TotalItems,
	})
}

// handles transaction posting
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	txn, err := h.transactionService.Post(r.Context(), &req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Transaction created successfully with ID: " + txn.TransactionID,
		"data":    txn,
	})
}

// handles transaction listing by date range
func (h *Handler) GetTransactionsByDateRange(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")
	if startStr == "" || endStr == "" {
		respondError(w, http.StatusBadRequest, "startDate and endDate are required")
		return
	}
	if !validation.IsValidDate(startStr, validation.DateLayout) || !validation.IsValidDate(endStr, validation.DateLayout) {
		respondError(w, http.StatusBadRequest, service.ErrInvalidDate.Error())
		return
	}

	start, _ := time.Parse(validation.DateLayout, startStr)
	end, _ := time.Parse(validation.DateLayout, endStr)

	txns, err := h.transactionService.GetTransactionsByDateRange(r.Context(), start, end)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": txns, "count": len(txns)})
}

// handles transaction listing by card
func (h *Handler) GetTransactionsByCard(w http.ResponseWriter, r *http.Request) {
	txns, err := h.transactionService.GetTransactionsByCard(r.Context(), mux.Vars(r)["cardNumber"])
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": txns, "count": len(txns)})
}

// handles transaction listing by account
func (h *Handler) GetTransactionsByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(mux.Vars(r)["accountId"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	txns, err := h.transactionService.GetTransactionsByAccount(r.Context(), accountID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": txns, "count": len(txns)})
}

// handles report generation
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	txns, err := h.reportService.Generate(r.Context(), &req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": txns, "count": len(txns)})
}

// handles audit trail retrieval
func (h *Handler) GetRecentPostings(w http.ResponseWriter, r *http.Request) {
	if h.auditReader == nil {
		respondError(w, http.StatusServiceUnavailable, "audit trail is not enabled")
		return
	}

	limit := queryInt(r, "limit", 50)
	records, err := h.auditReader.RecentPostings(r.Context(), limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{"success": true, "data": records, "count": len(records)})
}

// handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return defaultValue
	}
	return parsed
}

// SetupRoutes registers the API routes on the router.
func SetupRoutes(r *mux.Router, h *Handler) {
	// Health check (check if API is working)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Account routes
	api.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts/customer/{customerId}", h.ListAccountsByCustomer).Methods("GET")
	api.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")

	// Customer and category routes
	api.HandleFunc("/customers/{id}", h.GetCustomer).Methods("GET")
	api.HandleFunc("/categories", h.ListCategories).Methods("GET")

	// Transaction routes
	api.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions", h.PostTransaction).Methods("POST")
	api.HandleFunc("/transactions/date-range", h.GetTransactionsByDateRange).Methods("GET")
	api.HandleFunc("/transactions/card/{cardNumber}", h.GetTransactionsByCard).Methods("GET")
	api.HandleFunc("/transactions/account/{accountId}", h.GetTransactionsByAccount).Methods("GET")
	api.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")

	// Report routes
	api.HandleFunc("/reports/transactions", h.GenerateReport).Methods("POST")

	// Audit routes
	api.HandleFunc("/audit/postings", h.GetRecentPostings).Methods("GET")
}
