package app

import (
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggonzalez94/goldilocks-keeper/internal/cycle"
	"github.com/ggonzalez94/goldilocks-keeper/internal/httpx"
	"github.com/ggonzalez94/goldilocks-keeper/internal/logx"
	"github.com/ggonzalez94/goldilocks-keeper/internal/metrics"
	"github.com/ggonzalez94/goldilocks-keeper/internal/model"
	"github.com/ggonzalez94/goldilocks-keeper/internal/notify"
	"github.com/ggonzalez94/goldilocks-keeper/internal/protocol"
	"github.com/ggonzalez94/goldilocks-keeper/internal/scheduler"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run cycles on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.settings.Validate(); err != nil {
				return err
			}
			schedule, err := s.schedule()
			if err != nil {
				return err
			}
			lock, err := acquireInstanceLock(s.settings.LockPath)
			if err != nil {
				return err
			}
			defer lock.release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			notifier := s.notifier()
			sess, err := s.openSession(ctx)
			if err != nil {
				cycle.NotifyCritical(ctx, notifier, s.logger, err)
				return err
			}
			defer sess.close()

			if addr := s.settings.MetricsAddr; addr != "" {
				go func() {
					if err := metrics.Serve(ctx, addr, sess.registry); err != nil {
						s.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
					}
				}()
				s.logger.Info().Str("addr", addr).Msg("serving metrics")
			}

			loop := &cycle.Loop{
				Runner:   s.cycleRunner(sess, notifier),
				Notifier: notifier,
				Waiter:   schedule.WithLogger(logx.ForComponent(s.logger, "scheduler")),
				Account:  sess.client.Address(),
				Logger:   logx.ForComponent(s.logger, "loop"),
			}
			s.logger.Info().Str("schedule", schedule.Describe()).Msg("bot started")
			return loop.Run(ctx)
		},
	}
	addCycleFlags(cmd.Flags())
	return cmd
}

func (s *runtimeState) newCycleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run exactly one cycle and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.settings.ValidateReadOnly(); err != nil {
				return err
			}
			lock, err := acquireInstanceLock(s.settings.LockPath)
			if err != nil {
				return err
			}
			defer lock.release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := s.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.close()

			var notifier cycle.Notifier
			if s.settings.WebhookURL != "" {
				notifier = s.notifier()
			}
			report, err := s.cycleRunner(sess, notifier).RunCycle(ctx)
			if err != nil {
				return err
			}
			return s.emitSuccess(report, nil)
		},
	}
	addCycleFlags(cmd.Flags())
	return cmd
}

func (s *runtimeState) newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the next cycle without sending transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.settings.ValidateReadOnly(); err != nil {
				return err
			}
			sess, err := s.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close()

			preview, err := cycle.PreviewCycle(cmd.Context(), sess.proto, s.cycleSettings())
			if err != nil {
				return err
			}
			var warnings []string
			if preview.WouldSkip {
				warnings = append(warnings, "borrow limit is below the threshold; the next cycle would be skipped")
			}
			return s.emitSuccess(planView(sess.client.Address().Hex(), preview), warnings)
		},
	}
	addCycleFlags(cmd.Flags())
	return cmd
}

func (s *runtimeState) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the account position in the protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.settings.ValidateReadOnly(); err != nil {
				return err
			}
			sess, err := s.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close()

			pos, err := sess.proto.Position(cmd.Context())
			if err != nil {
				return err
			}
			return s.emitSuccess(statusView(s.chainID, pos), nil)
		},
	}
}

func (s *runtimeState) cycleSettings() cycle.Settings {
	return cycle.Settings{
		BorrowThreshold:    s.settings.BorrowThreshold,
		AllowWalletHoney:   s.settings.AllowWalletHoney,
		SwapLeftoverHoney:  s.settings.SwapLeftoverHoney,
		SwapAllWalletHoney: s.settings.SwapAllWalletHoney,
		NotifySkipped:      s.settings.NotifySkipped,
	}
}

func (s *runtimeState) cycleRunner(sess *session, notifier cycle.Notifier) *cycle.Runner {
	opts := []cycle.RunnerOption{
		cycle.WithLogger(logx.ForComponent(s.logger, "cycle")),
		cycle.WithMetrics(sess.metrics),
	}
	if notifier != nil {
		opts = append(opts, cycle.WithNotifier(notifier))
	}
	return cycle.NewRunner(sess.proto, s.cycleSettings(), opts...)
}

func (s *runtimeState) notifier() cycle.Notifier {
	if s.settings.WebhookURL == "" {
		return notify.Log{Logger: logx.ForComponent(s.logger, "notify")}
	}
	client := httpx.New(s.settings.WebhookTimeout, s.settings.WebhookRetries)
	return notify.NewWebhook(s.settings.WebhookURL, client, logx.ForComponent(s.logger, "notify"))
}

func (s *runtimeState) schedule() (*scheduler.Schedule, error) {
	if s.settings.CycleSchedule != "" {
		return scheduler.Parse(s.settings.CycleSchedule)
	}
	return scheduler.Every(s.settings.CycleInterval)
}

func amount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return units.FormatExact(v, units.Decimals)
}

func statusView(chainID int64, pos protocol.Position) model.StatusView {
	balances := []*big.Int{pos.HoneyBalance, pos.LocksBalance, pos.PrgBalance}
	view := model.StatusView{
		Account:       pos.Account,
		ChainID:       chainID,
		BorrowLimit:   amount(pos.BorrowLimit),
		BorrowedHoney: amount(pos.BorrowedHoney),
		ClaimablePrg:  amount(pos.ClaimablePrg),
		StakedLocks:   amount(pos.StakedLocks),
		FloorPrice:    amount(pos.FloorPrice),
		MarketPrice:   amount(pos.MarketPrice),
	}
	for i, token := range pos.Tokens {
		tv := model.TokenView{
			Name:        token.Name,
			Symbol:      token.Symbol,
			Address:     token.Address,
			Decimals:    token.Decimals,
			TotalSupply: units.FormatExact(token.TotalSupply, int32(token.Decimals)),
		}
		if i < len(balances) {
			tv.Balance = units.FormatExact(balances[i], int32(token.Decimals))
		}
		view.Tokens = append(view.Tokens, tv)
	}
	return view
}

func planView(account string, p cycle.Preview) model.PlanView {
	view := model.PlanView{
		Account:         account,
		BorrowLimit:     amount(p.BorrowLimit),
		BorrowThreshold: amount(p.BorrowThreshold),
		WouldSkip:       p.WouldSkip,
		ClaimablePrg:    amount(p.ClaimablePrg),
		PrgAfterClaim:   amount(p.PrgAfterClaim),
		FloorPrice:      amount(p.FloorPrice),
		HoneyBalance:    amount(p.HoneyBalance),
		Swap:            model.SwapPlanView{Enabled: p.SwapEnabled},
	}
	if p.WouldSkip {
		return view
	}
	view.Stir = model.StirPlanView{
		Mode:            string(p.Stir.Mode),
		StirAmount:      amount(p.Stir.StirAmount),
		HoneyUsed:       amount(p.Stir.HoneyUsed),
		HoneyRequired:   amount(p.Stir.HoneyRequired),
		Percentage:      p.Stir.Percentage,
		UsesWalletHoney: p.Stir.UsesWalletHoney,
	}
	if p.SwapEnabled {
		view.Swap.SwapAll = p.Swap.SwapAll
		view.Swap.HoneyToSwap = amount(p.Swap.HoneyToSwap)
		view.Swap.MarketPrice = amount(p.MarketPrice)
		view.Swap.EstimatedLocks = amount(p.EstimatedLocks)
	}
	return view
}
