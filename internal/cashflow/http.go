package cashflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

const responseBodyReadLimit int64 = 1 << 20

// HTTPLedger talks to the cash-flow backend over JSON.
type HTTPLedger struct {
	httpClient *http.Client
	baseURL    string
}

// HTTPLedgerOption configures optional ledger behavior.
type HTTPLedgerOption func(*HTTPLedger)

// WithLedgerHTTPClient overrides the default HTTP client.
func WithLedgerHTTPClient(client *http.Client) HTTPLedgerOption {
	return func(l *HTTPLedger) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// NewHTTPLedger builds an HTTP-backed ledger rooted at the cash-flow endpoint.
func NewHTTPLedger(cfg config.CashFlowConfig, opts ...HTTPLedgerOption) (*HTTPLedger, error) {
	base := strings.TrimSpace(cfg.Endpoint)
	if base == "" {
		return nil, fmt.Errorf("cash flow endpoint is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ledger := &HTTPLedger{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(base, "/"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ledger)
		}
	}
	return ledger, nil
}

func (l *HTTPLedger) Append(ctx context.Context, entry *types.CashEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal cash entry")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build append entry request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute append entry request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.NewTransportError("append cash entry", resp.StatusCode, string(body))
	}
	return nil
}

func (l *HTTPLedger) DailySnapshot(ctx context.Context, date string) (*types.CashFlowSnapshot, error) {
	query := url.Values{"date": {date}}
	snapshots, err := l.fetchSummaries(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[len(snapshots)-1], nil
}

func (l *HTTPLedger) SummaryRange(ctx context.Context, startDate, endDate string) (*types.CashFlowSnapshot, error) {
	query := url.Values{}
	if startDate != "" {
		query.Set("startDate", startDate)
	}
	if endDate != "" {
		query.Set("endDate", endDate)
	}
	snapshots, err := l.fetchSummaries(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Date < snapshots[j].Date
	})
	return &snapshots[len(snapshots)-1], nil
}

func (l *HTTPLedger) fetchSummaries(ctx context.Context, query url.Values) ([]types.CashFlowSnapshot, error) {
	endpoint := l.baseURL + "/summary"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build summary request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute summary request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.NewTransportError("cash flow summary", resp.StatusCode, string(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	// The backend returns a single snapshot for a date query and a list for
	// a range; accept both shapes.
	var single types.CashFlowSnapshot
	if err := json.Unmarshal(trimmed, &single); err == nil && single.Date != "" {
		return []types.CashFlowSnapshot{single}, nil
	}
	var list []types.CashFlowSnapshot
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, nil
	}
	return list, nil
}

// httpUnitOfWork is the no-op unit of work in front of the HTTP ledger. Begin,
// commit and rollback have no remote counterpart, so a failure after a
// successful append cannot be undone here.
type httpUnitOfWork struct {
	ledger *HTTPLedger
}

// NewHTTPUnitOfWork wraps the HTTP ledger in a non-atomic unit of work.
func NewHTTPUnitOfWork(ledger *HTTPLedger) UnitOfWork {
	return &httpUnitOfWork{ledger: ledger}
}

func (u *httpUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, ledger Ledger) error) error {
	return fn(ctx, u.ledger)
}

func (u *httpUnitOfWork) Atomic() bool {
	return false
}
