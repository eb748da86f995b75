package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guru-fund/fundd/api/types"
)

// FundHandler handles fund API requests
type FundHandler struct {
	service types.FundService
}

// NewFundHandler creates a new FundHandler
func NewFundHandler(service types.FundService) *FundHandler {
	return &FundHandler{service: service}
}

// RegisterRoutes registers fund API routes
func (h *FundHandler) RegisterRoutes(r *mux.Router) {
	// Fund state
	r.HandleFunc("/v1/fund", h.GetFund).Methods("GET")
	r.HandleFunc("/v1/fund/value/history", h.GetValueHistory).Methods("GET")
	r.HandleFunc("/v1/fund/value/latest", h.GetLatestValue).Methods("GET")

	// Account state
	r.HandleFunc("/v1/fund/account/{address}", h.GetAccount).Methods("GET")

	// Transaction routes
	r.HandleFunc("/v1/fund/deposit", h.Deposit).Methods("POST")
	r.HandleFunc("/v1/fund/withdraw", h.Withdraw).Methods("POST")
	r.HandleFunc("/v1/fund/credit/claim", h.ClaimCredit).Methods("POST")
}

// GetFund handles GET /v1/fund
func (h *FundHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	fund, err := h.service.GetFund(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fund)
}

// GetValueHistory handles GET /v1/fund/value/history?from=&to=&limit=
func (h *FundHandler) GetValueHistory(w http.ResponseWriter, r *http.Request) {
	from := parseInt64Query(r, "from", 0)
	to := parseInt64Query(r, "to", 0)
	limit := int(parseInt64Query(r, "limit", 0))
	if limit < 0 || limit > 10000 {
		writeError(w, http.StatusBadRequest, "limit out of range")
		return
	}

	history, err := h.service.GetValueHistory(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"count":   len(history),
	})
}

// GetLatestValue handles GET /v1/fund/value/latest
func (h *FundHandler) GetLatestValue(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.LatestValue(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// GetAccount handles GET /v1/fund/account/{address}
func (h *FundHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		writeError(w, http.StatusBadRequest, "address required")
		return
	}

	account, err := h.service.GetAccount(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Deposit handles POST /v1/fund/deposit
func (h *FundHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req types.SignedPayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" || len(req.Data) == 0 || len(req.Signature) == 0 {
		writeError(w, http.StatusBadRequest, "account, data and signature required")
		return
	}

	resp, err := h.service.Deposit(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSubmitResponse(w, resp)
}

// Withdraw handles POST /v1/fund/withdraw
func (h *FundHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req types.SignedPayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" || len(req.Data) == 0 || len(req.Signature) == 0 {
		writeError(w, http.StatusBadRequest, "account, data and signature required")
		return
	}

	resp, err := h.service.Withdraw(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSubmitResponse(w, resp)
}

// ClaimCredit handles POST /v1/fund/credit/claim
func (h *FundHandler) ClaimCredit(w http.ResponseWriter, r *http.Request) {
	var req types.ClaimCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account required")
		return
	}

	resp, err := h.service.ClaimCredit(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSubmitResponse(w, resp)
}

// ============ Helpers ============

func writeSubmitResponse(w http.ResponseWriter, resp *types.SubmitResponse) {
	status := http.StatusOK
	if !resp.Accepted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

func parseInt64Query(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
