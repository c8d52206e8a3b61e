// Package cycle sequences the borrow, claim, stir, swap and stake steps of
// one keeper cycle and drives cycles on a schedule.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/metrics"
	"github.com/ggonzalez94/goldilocks-keeper/internal/protocol"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Protocol is the contract surface a cycle drives; *protocol.Protocol
// implements it.
type Protocol interface {
	BorrowLimit(ctx context.Context) (*big.Int, error)
	ClaimablePrg(ctx context.Context) (*big.Int, error)
	PrgBalance(ctx context.Context) (*big.Int, error)
	FloorPrice(ctx context.Context) (*big.Int, error)
	HoneyBalance(ctx context.Context) (*big.Int, error)
	LocksBalance(ctx context.Context) (*big.Int, error)

	Borrow(ctx context.Context, amount *big.Int) (protocol.Result, error)
	Claim(ctx context.Context, claimable *big.Int) (protocol.Result, error)
	Stir(ctx context.Context, plan allocation.StirPlan) (protocol.Result, error)
	Swap(ctx context.Context, honey *big.Int) (protocol.SwapResult, error)
	Stake(ctx context.Context, amount *big.Int) (protocol.Result, error)
}

// Notifier delivers one pre-formatted message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Settings struct {
	BorrowThreshold    *big.Int
	AllowWalletHoney   bool
	SwapLeftoverHoney  bool
	SwapAllWalletHoney bool
	// NotifySkipped also delivers the report of skipped cycles.
	NotifySkipped bool
}

type Transaction struct {
	Step        string `json:"step"`
	Method      string `json:"method"`
	TxHash      string `json:"tx_hash"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	Amount      string `json:"amount"`
	Estimated   bool   `json:"estimated"`
	GasLimit    uint64 `json:"gas_limit"`
	GasSource   string `json:"gas_source"`
	Encoding    string `json:"encoding"`
	Approvals   int    `json:"approvals,omitempty"`
}

type Report struct {
	ID           string        `json:"cycle_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Skipped      bool          `json:"skipped"`
	Outcomes     []Outcome     `json:"outcomes"`
	Transactions []Transaction `json:"transactions"`
}

// Message is the aggregated notification text of the report.
func (r Report) Message() string { return FormatOutcomes(r.Outcomes) }

type cycleState struct {
	step      string
	logger    zerolog.Logger
	outcomes  *collector
	txs       []Transaction
	borrowed  *big.Int
	honeyUsed *big.Int
	stirPlan  *allocation.StirPlan
}

func (st *cycleState) add(severity Severity, message string) {
	st.outcomes.add(st.step, severity, message)
}

func (st *cycleState) recordTx(method string, res protocol.Result) {
	st.txs = append(st.txs, Transaction{
		Step:        st.step,
		Method:      method,
		TxHash:      res.TxHash.Hex(),
		ExplorerURL: res.ExplorerURL,
		Amount:      units.FormatExact(res.Amount, units.Decimals),
		Estimated:   res.Estimated(),
		GasLimit:    res.Gas.Limit,
		GasSource:   string(res.Gas.Source),
		Encoding:    string(res.Encoding),
		Approvals:   res.Approvals,
	})
}

type Runner struct {
	proto    Protocol
	settings Settings
	notifier Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type RunnerOption func(*Runner)

func WithNotifier(n Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(proto Protocol, settings Settings, opts ...RunnerOption) *Runner {
	if settings.BorrowThreshold == nil {
		settings.BorrowThreshold = units.Wad()
	}
	r := &Runner{
		proto:    proto,
		settings: settings,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCycle runs every enabled step once, in order. Claim, stir, swap and
// stake failures become error outcomes and the cycle continues; a borrow
// failure or cancellation is returned. The report is delivered to the
// notifier as one message unless the cycle was skipped.
func (r *Runner) RunCycle(ctx context.Context) (Report, error) {
	id := uuid.NewString()
	logger := r.logger.With().Str("cycle_id", id).Logger()
	st := &cycleState{
		logger:    logger,
		outcomes:  &collector{metrics: r.metrics},
		borrowed:  new(big.Int),
		honeyUsed: new(big.Int),
	}
	report := Report{ID: id, StartedAt: r.now()}
	logger.Info().Msg("cycle started")

	for _, s := range steps {
		if s.enabled != nil && !s.enabled(r.settings) {
			logger.Debug().Str("step", s.name).Msg("step disabled")
			continue
		}
		st.step = s.name
		err := s.run(ctx, r, st)
		if errors.Is(err, errSkipCycle) {
			report.Skipped = true
			break
		}
		if err == nil {
			continue
		}
		if s.abortCycleOnFailure || ctx.Err() != nil {
			logger.Error().Err(err).Str("step", s.name).Msg("cycle aborted")
			r.finish(&report, st, "failed")
			return report, fmt.Errorf("%s step: %w", s.name, err)
		}
		logger.Error().Err(err).Str("step", s.name).Msg("step failed")
		st.add(SeverityError, fmt.Sprintf("%s failed: %s", s.failureLabel, truncate(err.Error(), 100)))
	}

	result := "success"
	switch {
	case report.Skipped:
		result = "skipped"
	case st.outcomes.hasErrors():
		result = "partial"
	}
	r.finish(&report, st, result)

	if report.Skipped && !r.settings.NotifySkipped {
		logger.Info().Msg("cycle skipped")
		return report, nil
	}
	r.deliver(ctx, logger, report.Message())
	return report, nil
}

func (r *Runner) finish(report *Report, st *cycleState, result string) {
	report.FinishedAt = r.now()
	report.Outcomes = st.outcomes.outcomes
	report.Transactions = st.txs
	r.metrics.RecordCycle(result, report.FinishedAt.Sub(report.StartedAt))
	st.logger.Info().
		Str("result", result).
		Int("outcomes", len(report.Outcomes)).
		Int("transactions", len(report.Transactions)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("cycle finished")
}

func (r *Runner) deliver(ctx context.Context, logger zerolog.Logger, message string) {
	if r.notifier == nil || message == "" {
		return
	}
	if err := r.notifier.Notify(ctx, message); err != nil {
		logger.Warn().Err(err).Msg("notification failed")
	}
}

// PlainLines renders the report as its notification lines plus one line per
// transaction.
func (r Report) PlainLines() []string {
	lines := []string{"cycle " + r.ID}
	for _, o := range r.Outcomes {
		lines = append(lines, o.String())
	}
	for _, tx := range r.Transactions {
		line := fmt.Sprintf("tx %s %s gas=%d (%s)", tx.Method, tx.TxHash, tx.GasLimit, tx.GasSource)
		if tx.ExplorerURL != "" {
			line += " " + tx.ExplorerURL
		}
		lines = append(lines, line)
	}
	return lines
}
