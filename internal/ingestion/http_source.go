package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/config"
	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/observability"
)

// HTTPSource reads period records and ledger operations from the snapshot
// producer REST API:
//
//	GET {base}/{chain}/hypervisors/{address}/periods
//	GET {base}/{chain}/hypervisors/{address}/ledger
//
// Both endpoints return a JSON array of key/value objects.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *zap.Logger
}

// Compile-time interface checks.
var (
	_ PeriodSource = (*HTTPSource)(nil)
	_ LedgerSource = (*HTTPSource)(nil)
)

// NewHTTPSource creates a source with retrying transport.
func NewHTTPSource(cfg config.UpstreamConfig, logger *zap.Logger) *HTTPSource {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.HTTPClient.Timeout = cfg.Timeout
	c.Logger = nil

	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  c,
		logger:  logging.OrNop(logger),
	}
}

// FetchPeriods implements PeriodSource.
func (s *HTTPSource) FetchPeriods(ctx context.Context, chain domain.Chain, address string) ([]*domain.PeriodRecord, error) {
	items, err := s.fetch(ctx, chain, address, "periods")
	if err != nil {
		return nil, err
	}

	recs := make([]*domain.PeriodRecord, 0, len(items))
	for i, item := range items {
		rec, err := domain.PeriodRecordFromMap(item)
		if err != nil {
			return nil, errors.Wrapf(err, "parse period %d", i)
		}
		if rec.Address, err = normalizeAddress(rec.Address); err != nil {
			return nil, errors.Wrapf(err, "period %d", i)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// FetchLedger implements LedgerSource.
func (s *HTTPSource) FetchLedger(ctx context.Context, chain domain.Chain, address string) ([]*domain.LedgerOperation, error) {
	items, err := s.fetch(ctx, chain, address, "ledger")
	if err != nil {
		return nil, err
	}

	ops := make([]*domain.LedgerOperation, 0, len(items))
	for i, item := range items {
		op, err := domain.LedgerOperationFromMap(item)
		if err != nil {
			return nil, errors.Wrapf(err, "parse ledger operation %d", i)
		}
		if op.HypervisorAddress, err = normalizeAddress(op.HypervisorAddress); err != nil {
			return nil, errors.Wrapf(err, "ledger operation %d", i)
		}
		if op.UserAddress, err = normalizeAddress(op.UserAddress); err != nil {
			return nil, errors.Wrapf(err, "ledger operation %d", i)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s *HTTPSource) fetch(ctx context.Context, chain domain.Chain, address, kind string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s/hypervisors/%s/%s",
		s.baseURL, url.PathEscape(string(chain)), url.PathEscape(address), kind)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	observability.RecordUpstreamLatency(kind, time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrapf(err, "request %s", kind)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		s.logger.Debug("No upstream data",
			zap.String("chain", string(chain)),
			zap.String("address", address),
			zap.String("kind", kind))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code %d from %s", resp.StatusCode, kind)
	}

	// UseNumber keeps large integer balances exact until they reach decimal.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", kind)
	}
	return items, nil
}

// normalizeAddress lowercases upstream addresses so stored identities match
// the API's. An absent address is left for the manager to fill in.
func normalizeAddress(addr string) (string, error) {
	if addr == "" {
		return "", nil
	}
	return domain.NormalizeAddress(addr)
}
