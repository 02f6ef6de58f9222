package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/internal/cashflow"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

type stubCashService struct {
	snapshot *types.CashFlowSnapshot
	err      error
	seen     *types.CashFlowSummaryQuery
}

func (s *stubCashService) RecordPayment(ctx context.Context, order types.Order, amount decimal.Decimal) (*cashflow.PaymentRecord, error) {
	return nil, nil
}

func (s *stubCashService) CompensatePayment(ctx context.Context, entry types.CashEntry) (*types.CashEntry, error) {
	return nil, nil
}

func (s *stubCashService) GetDailySummary(ctx context.Context, query types.CashFlowSummaryQuery) (*types.CashFlowSnapshot, error) {
	s.seen = &query
	return s.snapshot, s.err
}

func TestCashFlowSummarySingleDate(t *testing.T) {
	svc := &stubCashService{snapshot: &types.CashFlowSnapshot{
		Date:        "2026-08-30",
		TotalInflow: decimal.NewFromInt(120),
		NetChange:   decimal.NewFromInt(120),
		Balance:     decimal.NewFromInt(120),
	}}
	handler := CashFlowSummary(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cash-flow/summary?date=2026-08-30", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.seen == nil || svc.seen.Date != "2026-08-30" {
		t.Fatalf("expected date forwarded, got %+v", svc.seen)
	}

	var envelope struct {
		Data types.CashFlowSnapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Date != "2026-08-30" {
		t.Fatalf("expected snapshot in payload, got %+v", envelope.Data)
	}
}

func TestCashFlowSummaryRange(t *testing.T) {
	svc := &stubCashService{snapshot: &types.CashFlowSnapshot{Date: "2026-08-30"}}
	handler := CashFlowSummary(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cash-flow/summary?startDate=2026-08-01&endDate=2026-08-30", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.seen == nil || svc.seen.StartDate != "2026-08-01" || svc.seen.EndDate != "2026-08-30" {
		t.Fatalf("expected range forwarded, got %+v", svc.seen)
	}
}

func TestCashFlowSummaryRejectsMalformedDate(t *testing.T) {
	svc := &stubCashService{}
	handler := CashFlowSummary(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cash-flow/summary?date=30-08-2026", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.seen != nil {
		t.Fatal("malformed date must not reach the service")
	}
}

func TestCashFlowSummaryRejectsMixedDateAndRange(t *testing.T) {
	svc := &stubCashService{}
	handler := CashFlowSummary(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cash-flow/summary?date=2026-08-30&startDate=2026-08-01", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
