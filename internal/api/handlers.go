package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/gauger/internal/marketdata"
	"github.com/yourusername/gauger/internal/models"
	"github.com/yourusername/gauger/internal/service"
	"github.com/yourusername/gauger/internal/statistics"
	"github.com/yourusername/gauger/internal/tracing"
)

var (
	errSnapshotsDisabled = errors.New("snapshot storage is not configured")
	errEndWithoutStart   = errors.New("end requires start")
)

type queryError struct {
	param string
	err   error
}

func (e *queryError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %v", e.param, e.err)
}

func (e *queryError) Unwrap() error {
	return e.err
}

type tickerQuery struct {
	Ticker string `validate:"required,max=16"`
	Window int    `validate:"gte=1,lte=5000"`
	Period string `validate:"required,period"`
}

type betScheduleQuery struct {
	tickerQuery
	MinBet   float64 `validate:"gt=0,lte=1"`
	MaxBet   float64 `validate:"gt=0,lte=1,gtefield=MinBet"`
	Bankroll float64 `validate:"gte=0"`
}

type distributionQuery struct {
	tickerQuery
	NPoints    int     `validate:"gte=2,lte=100000"`
	DropThresh float64 `validate:"gte=0"`
}

type historyQuery struct {
	Ticker string `validate:"required,max=16"`
	Start  string `validate:"omitempty,datetime=2006-01-02"`
	End    string `validate:"omitempty,datetime=2006-01-02"`
}

type winRatesQuery struct {
	Period string `validate:"omitempty,period"`
	Start  string `validate:"omitempty,datetime=2006-01-02"`
	End    string `validate:"omitempty,datetime=2006-01-02"`
	Key    string `validate:"omitempty,oneof=Open High Low Close Volume"`
}

// BetScheduleResponse pairs a schedule with optional bankroll stakes
type BetScheduleResponse struct {
	Ticker   string                 `json:"ticker"`
	Window   int                    `json:"window"`
	MinBet   float64                `json:"min_bet"`
	MaxBet   float64                `json:"max_bet"`
	Schedule statistics.BetSchedule `json:"schedule"`
	Bankroll *decimal.Decimal       `json:"bankroll,omitempty"`
	Stakes   []service.Stake        `json:"stakes,omitempty"`
	Total    *decimal.Decimal       `json:"total,omitempty"`
}

// PercentileResponse is the latest ratio with its win rate
type PercentileResponse struct {
	Ticker string `json:"ticker"`
	Window int    `json:"window"`
	*statistics.PercentileResult
}

func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTickerQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	tracing.AddAnnotation(ctx, "ticker", q.Ticker)
	tracing.AddAnnotation(ctx, "window", q.Window)

	result, err := s.analyzer.TickerPercentile(ctx, q.Ticker, q.Window, q.Period)
	if err != nil {
		tracing.AddError(ctx, err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PercentileResponse{Ticker: q.Ticker, Window: q.Window, PercentileResult: result})
}

func (s *Server) handleWinRates(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := winRatesQuery{
		Period: values.Get("period"),
		Start:  values.Get("start"),
		End:    values.Get("end"),
		Key:    values.Get("key"),
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, err)
		return
	}
	if q.End != "" && q.Start == "" {
		s.writeError(w, &queryError{param: "end", err: errEndWithoutStart})
		return
	}

	startDate, endDate := q.Start, q.End
	if startDate == "" {
		startDate, endDate = q.Period, ""
		if startDate == "" {
			startDate = s.defaults.Period
		}
	}

	ctx := r.Context()
	table, err := s.analyzer.WinRatesAll(ctx, startDate, endDate, q.Key)
	if err != nil {
		tracing.AddError(ctx, err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleBetSchedule(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	base, err := s.parseTickerQuery(values)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := betScheduleQuery{
		tickerQuery: *base,
		MinBet:      s.defaults.MinBet,
		MaxBet:      s.defaults.MaxBet,
		Bankroll:    s.defaults.Bankroll,
	}
	if err := parseFloat(values, "min_bet", &q.MinBet); err != nil {
		s.writeError(w, err)
		return
	}
	if err := parseFloat(values, "max_bet", &q.MaxBet); err != nil {
		s.writeError(w, err)
		return
	}
	if err := parseFloat(values, "bankroll", &q.Bankroll); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, err)
		return
	}

	cfg := statistics.BetConfig{
		MinBet:           q.MinBet,
		MaxBet:           q.MaxBet,
		NSamplesIntegral: s.defaults.NSamplesIntegral,
	}

	ctx := r.Context()
	schedule, err := s.analyzer.TickerBetSchedule(ctx, q.Ticker, q.Window, q.Period, cfg)
	if err != nil {
		tracing.AddError(ctx, err)
		s.writeError(w, err)
		return
	}

	response := BetScheduleResponse{
		Ticker:   q.Ticker,
		Window:   q.Window,
		MinBet:   q.MinBet,
		MaxBet:   q.MaxBet,
		Schedule: schedule,
	}
	if q.Bankroll > 0 {
		planner, err := service.NewStakePlanner(decimal.NewFromFloat(q.Bankroll), schedule)
		if err != nil {
			s.writeError(w, &queryError{param: "bankroll", err: err})
			return
		}
		bankroll, total := planner.Bankroll(), planner.Total()
		response.Bankroll = &bankroll
		response.Stakes = planner.Stakes()
		response.Total = &total
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	base, err := s.parseTickerQuery(values)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := distributionQuery{
		tickerQuery: *base,
		NPoints:     s.defaults.DistributionPoints,
		DropThresh:  s.defaults.DropThreshold,
	}
	if err := parseInt(values, "n_points", &q.NPoints); err != nil {
		s.writeError(w, err)
		return
	}
	if err := parseFloat(values, "drop_thresh", &q.DropThresh); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	result, err := s.analyzer.TickerDistribution(ctx, q.Ticker, q.Window, q.Period, q.NPoints, q.DropThresh)
	if err != nil {
		tracing.AddError(ctx, err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:  errSnapshotsDisabled.Error(),
			Status: http.StatusServiceUnavailable,
		})
		return
	}

	values := r.URL.Query()
	q := historyQuery{
		Ticker: values.Get("ticker"),
		Start:  values.Get("start"),
		End:    values.Get("end"),
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, err)
		return
	}

	// defaults to the year ending today
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if q.End != "" {
		end, _ = time.Parse(marketdata.DateLayout, q.End)
	}
	start := end.AddDate(-1, 0, 0)
	if q.Start != "" {
		start, _ = time.Parse(marketdata.DateLayout, q.Start)
	}

	history, err := s.snapshots.History(r.Context(), q.Ticker, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:  errSnapshotsDisabled.Error(),
			Status: http.StatusServiceUnavailable,
		})
		return
	}

	values := r.URL.Query()
	q := tickerQuery{Ticker: values.Get("ticker"), Period: "max"}
	if err := parseInt(values, "window", &q.Window); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, err)
		return
	}

	snapshot, err := s.snapshots.Latest(r.Context(), q.Ticker, q.Window)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// parseTickerQuery reads ticker, window and period, defaulting the period
func (s *Server) parseTickerQuery(values url.Values) (*tickerQuery, error) {
	q := &tickerQuery{
		Ticker: values.Get("ticker"),
		Period: values.Get("period"),
	}
	if q.Period == "" {
		q.Period = s.defaults.Period
	}
	if err := parseInt(values, "window", &q.Window); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(q); err != nil {
		return nil, err
	}
	return q, nil
}

func parseInt(values url.Values, param string, dst *int) error {
	raw := values.Get(param)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return &queryError{param: param, err: err}
	}
	*dst = v
	return nil
}

func parseFloat(values url.Values, param string, dst *float64) error {
	raw := values.Get(param)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &queryError{param: param, err: err}
	}
	*dst = v
	return nil
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	var qErr *queryError
	var dsErr marketdata.DataSourceError

	switch {
	case errors.As(err, &validationErrs), errors.As(err, &qErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTickerRequired), errors.Is(err, marketdata.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, marketdata.ErrNotFound), errors.Is(err, marketdata.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, statistics.ErrInvalidSample), errors.Is(err, statistics.ErrConfiguration),
		errors.Is(err, statistics.ErrInvalidRange), errors.Is(err, models.ErrEmptySeries),
		errors.Is(err, models.ErrUnsortedSeries), errors.Is(err, models.ErrNonPositiveValue):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dsErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Status: status})
}
