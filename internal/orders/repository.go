package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

const responseBodyReadLimit int64 = 1 << 20

// Repository exposes the order store backing the queue dashboard.
type Repository interface {
	ListPending(ctx context.Context) ([]types.Order, error)
	Create(ctx context.Context, req types.OrderRequest) (*CreateResult, error)
}

// CreateResult is the outcome of submitting an order. Degraded is set when
// the backend accepted the order but returned a body we could not decode, so
// Order is synthesized from the request instead.
type CreateResult struct {
	Order    types.Order
	Degraded bool
}

type repository struct {
	httpClient *http.Client
	cfg        config.OrdersConfig
	logger     *logger.Logger
	now        func() time.Time
}

// Option configures optional repository behavior.
type Option func(*repository)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *repository) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithClock overrides the clock used for fallback order synthesis.
func WithClock(now func() time.Time) Option {
	return func(r *repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository builds an HTTP-backed order repository.
func NewRepository(cfg config.OrdersConfig, logg *logger.Logger, opts ...Option) (Repository, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("orders endpoint is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	repo := &repository{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logg,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *repository) ListPending(ctx context.Context) ([]types.Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.Endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build list orders request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute list orders request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.NewTransportError("list orders", resp.StatusCode, string(body))
	}

	orders, err := decodeOrderList(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode orders response")
	}

	pending := make([]types.Order, 0, len(orders))
	for _, order := range orders {
		if order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusQueued {
			pending = append(pending, order)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt.Time)
	})
	return pending, nil
}

func (r *repository) Create(ctx context.Context, req types.OrderRequest) (*CreateResult, error) {
	endpoint := strings.TrimSpace(r.cfg.Endpoint)
	status := req.Status
	if q := strings.TrimSpace(r.cfg.QueueEndpoint); q != "" {
		endpoint = q
		status = enums.OrderStatusQueued
	}
	if !status.IsValid() {
		status = enums.OrderStatusPending
	}
	req.Status = status

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build create order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute create order request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.NewTransportError("create order", resp.StatusCode, string(body))
	}

	var order types.Order
	if err := json.Unmarshal(body, &order); err != nil || strings.TrimSpace(order.ID) == "" {
		// Accepted upstream but the body is unusable. Synthesize the order
		// locally so the caller still gets something to show.
		if r.logger != nil {
			r.logger.Warn(ctx, "order accepted with unusable response body, synthesizing fallback")
		}
		fallback := r.fallbackOrder(req, status)
		return &CreateResult{Order: fallback, Degraded: true}, nil
	}

	if order.Status == "" || !order.Status.IsValid() {
		order.Status = status
	}
	return &CreateResult{Order: order}, nil
}

func (r *repository) fallbackOrder(req types.OrderRequest, status enums.OrderStatus) types.Order {
	now := r.now()
	return types.Order{
		ID:        fmt.Sprintf("temp-%d", now.UnixMilli()),
		Status:    status,
		Customer:  req.Customer,
		Items:     req.Items,
		Totals:    req.Totals,
		Address:   req.Address,
		CreatedAt: types.NewTimestamp(now),
		Metadata:  req.Metadata,
	}
}

// decodeOrderList accepts either a bare JSON array or an envelope with an
// "orders" or "data" field, which is how the backend has shipped it over time.
func decodeOrderList(body []byte) ([]types.Order, error) {
	var orders []types.Order
	if err := json.Unmarshal(body, &orders); err == nil {
		return orders, nil
	}

	var envelope struct {
		Orders []types.Order `json:"orders"`
		Data   []types.Order `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Orders != nil {
		return envelope.Orders, nil
	}
	return envelope.Data, nil
}
