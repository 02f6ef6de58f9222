package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	internalorders "github.com/forno-digital/pizzaria-backend/internal/orders"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

type stubOrderRepo struct {
	result *internalorders.CreateResult
	err    error
	seen   *types.OrderRequest
}

func (s *stubOrderRepo) ListPending(ctx context.Context) ([]types.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) Create(ctx context.Context, req types.OrderRequest) (*internalorders.CreateResult, error) {
	s.seen = &req
	return s.result, s.err
}

const validOrderBody = `{
	"customer": {"name": "Ana", "phone": "11999990000"},
	"items": [{"lineId": "l1", "productId": "p1", "name": "Margherita", "quantity": 2, "unitPrice": 10, "totalPrice": 20}],
	"totals": {"total": 20, "count": 2},
	"address": {"label": "Rua das Flores 10"},
	"status": "pending"
}`

func TestCreateOrderSuccess(t *testing.T) {
	repo := &stubOrderRepo{result: &internalorders.CreateResult{
		Order: types.Order{ID: "ord-1", Status: enums.OrderStatusPending},
	}}
	handler := CreateOrder(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(validOrderBody)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Order    types.Order `json:"order"`
			Degraded bool        `json:"degraded"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != "ord-1" {
		t.Fatalf("expected order in payload got %+v", envelope.Data)
	}
	if envelope.Data.Degraded {
		t.Fatal("expected non-degraded result")
	}
	if repo.seen == nil || repo.seen.Customer.Name != "Ana" {
		t.Fatalf("expected request forwarded to repository, got %+v", repo.seen)
	}
}

func TestCreateOrderDegradedResult(t *testing.T) {
	repo := &stubOrderRepo{result: &internalorders.CreateResult{
		Order:    types.Order{ID: "temp-1756567800000", Status: enums.OrderStatusPending},
		Degraded: true,
	}}
	handler := CreateOrder(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(validOrderBody)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			Degraded bool `json:"degraded"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Degraded {
		t.Fatal("expected degraded flag in payload")
	}
}

func TestCreateOrderRejectsCartMismatch(t *testing.T) {
	body := `{
		"customer": {"name": "Ana", "phone": "11999990000"},
		"items": [{"lineId": "l1", "productId": "p1", "name": "Margherita", "quantity": 2, "unitPrice": 10, "totalPrice": 25}],
		"totals": {"total": 25, "count": 2},
		"address": {"label": "Rua das Flores 10"},
		"status": "pending"
	}`
	repo := &stubOrderRepo{}
	handler := CreateOrder(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if repo.seen != nil {
		t.Fatal("invalid cart must not reach the repository")
	}
}

func TestCreateOrderRejectsMissingItems(t *testing.T) {
	body := `{
		"customer": {"name": "Ana", "phone": "11999990000"},
		"items": [],
		"totals": {"total": 0, "count": 0},
		"address": {"label": "Rua das Flores 10"},
		"status": "pending"
	}`
	handler := CreateOrder(&stubOrderRepo{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateOrderSurfacesBackendFailure(t *testing.T) {
	repo := &stubOrderRepo{err: pkgerrors.NewTransportError("create order", http.StatusBadGateway, "backend down")}
	handler := CreateOrder(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte(validOrderBody)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
}
