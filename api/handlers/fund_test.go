package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/guru-fund/fundd/api/types"
)

// stubService is a canned FundService for handler tests
type stubService struct {
	fund    *types.FundInfo
	history []*types.ValuePoint

	lastDeposit  *types.SignedPayloadRequest
	lastWithdraw *types.SignedPayloadRequest
	lastClaim    *types.ClaimCreditRequest

	rejectReason string
}

func (s *stubService) GetFund(ctx context.Context) (*types.FundInfo, error) {
	if s.fund == nil {
		return nil, errors.New("fund not initialized")
	}
	return s.fund, nil
}

func (s *stubService) GetAccount(ctx context.Context, address string) (*types.AccountInfo, error) {
	return &types.AccountInfo{Address: address, Shares: "100"}, nil
}

func (s *stubService) GetValueHistory(ctx context.Context, from, to int64, limit int) ([]*types.ValuePoint, error) {
	return s.history, nil
}

func (s *stubService) LatestValue(ctx context.Context) (*types.ValuePoint, error) {
	if len(s.history) == 0 {
		return nil, errors.New("no value observations")
	}
	return s.history[len(s.history)-1], nil
}

func (s *stubService) Deposit(ctx context.Context, req *types.SignedPayloadRequest) (*types.SubmitResponse, error) {
	s.lastDeposit = req
	return s.respond(), nil
}

func (s *stubService) Withdraw(ctx context.Context, req *types.SignedPayloadRequest) (*types.SubmitResponse, error) {
	s.lastWithdraw = req
	return s.respond(), nil
}

func (s *stubService) ClaimCredit(ctx context.Context, req *types.ClaimCreditRequest) (*types.SubmitResponse, error) {
	s.lastClaim = req
	return s.respond(), nil
}

func (s *stubService) respond() *types.SubmitResponse {
	if s.rejectReason != "" {
		return &types.SubmitResponse{Accepted: false, Error: s.rejectReason}
	}
	return &types.SubmitResponse{Accepted: true}
}

func newTestRouter(service types.FundService) *mux.Router {
	r := mux.NewRouter()
	NewFundHandler(service).RegisterRoutes(r)
	return r
}

func TestGetFund(t *testing.T) {
	stub := &stubService{
		fund: &types.FundInfo{Operator: "operator", IsOpen: true, TotalShares: "1000"},
	}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/v1/fund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got types.FundInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Operator != "operator" || !got.IsOpen {
		t.Errorf("unexpected fund response: %+v", got)
	}
}

func TestGetFund_NotInitialized(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/fund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetAccount(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/fund/account/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got types.AccountInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Address != "alice" {
		t.Errorf("address = %q, want alice", got.Address)
	}
}

func TestGetValueHistory(t *testing.T) {
	stub := &stubService{
		history: []*types.ValuePoint{
			{Height: 1, Timestamp: 100, TotalValue: "1000", TotalShares: "1000"},
			{Height: 2, Timestamp: 200, TotalValue: "1100", TotalShares: "1000"},
		},
	}
	router := newTestRouter(stub)

	testCases := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"no params", "/v1/fund/value/history", http.StatusOK},
		{"with range", "/v1/fund/value/history?from=100&to=200&limit=10", http.StatusOK},
		{"limit too large", "/v1/fund/value/history?limit=99999", http.StatusBadRequest},
		{"garbage params fall back", "/v1/fund/value/history?from=abc", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK {
				var got struct {
					Count int `json:"count"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if got.Count != 2 {
					t.Errorf("count = %d, want 2", got.Count)
				}
			}
		})
	}
}

func TestDepositHandler(t *testing.T) {
	stub := &stubService{}
	router := newTestRouter(stub)

	body, _ := json.Marshal(types.SignedPayloadRequest{
		Account:   "alice",
		Data:      []byte(`{"amount":"100"}`),
		Signature: []byte{1, 2, 3},
		ExpiresAt: 100,
		Supplied:  "100",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/fund/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastDeposit == nil || stub.lastDeposit.Account != "alice" {
		t.Error("deposit request did not reach the service")
	}
}

func TestDepositHandler_Validation(t *testing.T) {
	router := newTestRouter(&stubService{})

	testCases := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing account", `{"data":"YQ==","signature":"YQ=="}`},
		{"missing signature", `{"account":"alice","data":"YQ=="}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/fund/deposit", bytes.NewReader([]byte(tc.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestWithdrawHandler_Rejection(t *testing.T) {
	stub := &stubService{rejectReason: "insufficient shares"}
	router := newTestRouter(stub)

	body, _ := json.Marshal(types.SignedPayloadRequest{
		Account:   "alice",
		Data:      []byte(`{}`),
		Signature: []byte{1},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/fund/withdraw", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var got types.SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Accepted || got.Error != "insufficient shares" {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestClaimCreditHandler(t *testing.T) {
	stub := &stubService{}
	router := newTestRouter(stub)

	body, _ := json.Marshal(types.ClaimCreditRequest{Account: "alice", To: "bob"})
	req := httptest.NewRequest(http.MethodPost, "/v1/fund/credit/claim", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastClaim == nil || stub.lastClaim.To != "bob" {
		t.Error("claim request did not reach the service")
	}

	// Missing account rejected before reaching the service
	req = httptest.NewRequest(http.MethodPost, "/v1/fund/credit/claim", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
