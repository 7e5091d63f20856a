package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/metrics"
	"hypervisor-analytics/internal/service"
	"hypervisor-analytics/internal/twa"
	"hypervisor-analytics/internal/yield"
)

var errBadRequest = errors.New("bad request")

// HandleHealth reports liveness.
// GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.clock().UTC().Format(time.RFC3339),
	})
}

// HandleHypervisors lists registered hypervisors, optionally of one chain.
// GET /v1/hypervisors?chain=ethereum
func (s *Server) HandleHypervisors(w http.ResponseWriter, r *http.Request) {
	var (
		hvs []*domain.Hypervisor
		err error
	)
	if c := r.URL.Query().Get("chain"); c != "" {
		chain, perr := domain.ParseChain(c)
		if perr != nil {
			s.errorResponse(w, http.StatusBadRequest, perr.Error())
			return
		}
		hvs, err = s.hypervisors.ListByChain(r.Context(), chain)
	} else {
		hvs, err = s.hypervisors.List(r.Context())
	}
	if err != nil {
		s.handleError(w, err)
		return
	}
	if hvs == nil {
		hvs = []*domain.Hypervisor{}
	}
	s.writeJSON(w, http.StatusOK, hvs)
}

// HandleReturns serves the yield series.
// GET /v1/{chain}/hypervisors/{address}/returns?from_block=&to_block=&from_ts=&to_ts=&simple=
func (s *Server) HandleReturns(w http.ResponseWriter, r *http.Request) {
	chain, address, q, err := parseTarget(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	out, err := s.analytics.Returns(r.Context(), chain, address, q)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// HandleReturnsCSV serves the full series as CSV.
// GET /v1/{chain}/hypervisors/{address}/returns.csv
func (s *Server) HandleReturnsCSV(w http.ResponseWriter, r *http.Request) {
	chain, address, q, err := parseTarget(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	out, err := s.analytics.ReturnsCSV(r.Context(), chain, address, q)
	if err != nil {
		s.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", address+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// HandleRewards serves reward totals by token.
// GET /v1/{chain}/hypervisors/{address}/rewards
func (s *Server) HandleRewards(w http.ResponseWriter, r *http.Request) {
	chain, address, q, err := parseTarget(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	out, err := s.analytics.Rewards(r.Context(), chain, address, q)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// HandleTWA serves time-weighted user shares. Without any bound the
// configured trailing window is used; a half-open range is rejected.
// GET /v1/{chain}/hypervisors/{address}/twa?from_block=&to_block=
func (s *Server) HandleTWA(w http.ResponseWriter, r *http.Request) {
	chain, address, q, err := parseTarget(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	window, err := q.Window()
	if err != nil {
		s.handleError(w, err)
		return
	}
	res, err := s.analytics.TWA(r.Context(), chain, address, window)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"unit":          res.Unit,
		"range":         res.Range,
		"total_weight":  res.TotalWeight,
		"ending_supply": res.EndingSupply,
		"over_bound":    res.OverBound,
		"operations":    res.OperationsRun,
		"users":         res.SortedUsers(),
	})
}

// HandleDistribution serves period yield statistics of the last persisted run.
// GET /v1/{chain}/hypervisors/{address}/distribution
func (s *Server) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	if s.aggregator == nil {
		s.errorResponse(w, http.StatusNotImplemented, "analytic rows are not persisted")
		return
	}
	chain, address, _, err := parseTarget(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	d, err := s.aggregator.ComputeDistribution(r.Context(), string(chain), address)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func parseTarget(r *http.Request) (domain.Chain, string, service.Query, error) {
	vars := mux.Vars(r)
	chain, err := domain.ParseChain(vars["chain"])
	if err != nil {
		return "", "", service.Query{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	address, err := domain.NormalizeAddress(vars["address"])
	if err != nil {
		return "", "", service.Query{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	params := r.URL.Query()
	var q service.Query
	for name, dst := range map[string]**int64{
		"from_block": &q.FromBlock,
		"to_block":   &q.ToBlock,
		"from_ts":    &q.FromTs,
		"to_ts":      &q.ToTs,
	} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", "", service.Query{}, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
		}
		*dst = &v
	}
	if raw := params.Get("simple"); raw != "" {
		q.Simple, err = strconv.ParseBool(raw)
		if err != nil {
			return "", "", service.Query{}, fmt.Errorf("%w: simple must be a boolean", errBadRequest)
		}
	}
	return chain, address, q, nil
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, twa.ErrConfiguration):
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownHypervisor), errors.Is(err, yield.ErrNoPeriods), errors.Is(err, metrics.ErrNoRows):
		s.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, yield.ErrConsistencyViolation):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}
