package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
)

// CommandService issues status transitions against the orders backend. Every
// call is a single PATCH; callers decide whether and how to compensate when
// one fails.
type CommandService interface {
	AcceptOrder(ctx context.Context, orderID string) error
	ConfirmOrder(ctx context.Context, orderID string) error
	DiscardOrder(ctx context.Context, orderID string) error
	RestoreOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) error
}

// CommandError wraps a failed status command with enough context for the
// caller to log and compensate.
type CommandError struct {
	OrderID string
	Status  enums.OrderStatus
	Err     error
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("set order %s to %s: %v", e.OrderID, e.Status, e.Err)
}

func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type commandService struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// CommandOption configures optional command service behavior.
type CommandOption func(*commandService)

// WithCommandHTTPClient overrides the default HTTP client.
func WithCommandHTTPClient(client *http.Client) CommandOption {
	return func(s *commandService) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewCommandService builds the status command service. The base endpoint is
// the dedicated command endpoint when configured, else the queue endpoint,
// else the orders endpoint.
func NewCommandService(cfg config.OrdersConfig, logg *logger.Logger, opts ...CommandOption) (CommandService, error) {
	base := firstNonEmpty(cfg.CommandEndpoint, cfg.QueueEndpoint, cfg.Endpoint)
	if base == "" {
		return nil, fmt.Errorf("orders endpoint is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &commandService{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(base, "/"),
		logger:     logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

func (s *commandService) AcceptOrder(ctx context.Context, orderID string) error {
	return s.setStatus(ctx, orderID, enums.OrderStatusQueued)
}

func (s *commandService) ConfirmOrder(ctx context.Context, orderID string) error {
	return s.setStatus(ctx, orderID, enums.OrderStatusConfirmed)
}

func (s *commandService) DiscardOrder(ctx context.Context, orderID string) error {
	return s.setStatus(ctx, orderID, enums.OrderStatusFailed)
}

func (s *commandService) RestoreOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) error {
	switch status {
	case enums.OrderStatusQueued:
		return s.AcceptOrder(ctx, orderID)
	case enums.OrderStatusConfirmed:
		return s.ConfirmOrder(ctx, orderID)
	case enums.OrderStatusFailed:
		return s.DiscardOrder(ctx, orderID)
	default:
		return s.setStatus(ctx, orderID, status)
	}
}

func (s *commandService) setStatus(ctx context.Context, orderID string, status enums.OrderStatus) error {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return &CommandError{OrderID: orderID, Status: status, Err: pkgerrors.New(pkgerrors.CodeValidation, "order id is required")}
	}
	if !status.IsValid() {
		return &CommandError{OrderID: trimmed, Status: status, Err: pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))}
	}

	payload, err := json.Marshal(map[string]string{"status": status.String()})
	if err != nil {
		return &CommandError{OrderID: trimmed, Status: status, Err: err}
	}

	endpoint := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &CommandError{OrderID: trimmed, Status: status, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return &CommandError{OrderID: trimmed, Status: status, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &CommandError{
			OrderID: trimmed,
			Status:  status,
			Err:     pkgerrors.NewTransportError("order status command", resp.StatusCode, string(body)),
		}
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithOrderID(ctx, trimmed), fmt.Sprintf("order status set to %s", status))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
