package cycle

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Waiter blocks until the next cycle is due.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Loop runs cycles until its context is cancelled. A failed cycle is
// reported and the next one starts after the normal wait; there is no
// backoff and no failure cap.
type Loop struct {
	Runner   *Runner
	Notifier Notifier
	Waiter   Waiter
	Account  common.Address
	Logger   zerolog.Logger
}

func (l *Loop) Run(ctx context.Context) error {
	l.notify(ctx, StartupMessage(l.Account))

	for ctx.Err() == nil {
		l.Logger.Info().Msg("new cycle starting")
		report, err := l.Runner.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		switch {
		case err != nil:
			l.Logger.Error().Err(err).Msg("cycle failed")
			l.notify(ctx, "❌ Main loop error: "+truncate(err.Error(), 200))
		case report.Skipped:
			l.Logger.Info().Str("cycle_id", report.ID).Msg("cycle skipped, waiting for next cycle")
		default:
			l.Logger.Info().Str("cycle_id", report.ID).Msg("cycle complete, waiting for next cycle")
		}
		if err := l.Waiter.Wait(ctx); err != nil {
			break
		}
	}

	l.Logger.Info().Msg("bot stopped")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	l.notify(stopCtx, "🛑 Bot stopped by user")
	return nil
}

func (l *Loop) notify(ctx context.Context, message string) {
	if l.Notifier == nil {
		return
	}
	if err := l.Notifier.Notify(ctx, message); err != nil {
		l.Logger.Warn().Err(err).Msg("notification failed")
	}
}

// CriticalMessage reports a failure that ends the bot outside the cycle loop.
func CriticalMessage(err error) string {
	return "❌ Critical error: " + truncate(err.Error(), 200)
}

// NotifyCritical delivers CriticalMessage even when ctx is already
// cancelled, bounded by the same timeout as the stop notification.
func NotifyCritical(ctx context.Context, n Notifier, logger zerolog.Logger, err error) {
	if n == nil || err == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if nerr := n.Notify(notifyCtx, CriticalMessage(err)); nerr != nil {
		logger.Warn().Err(nerr).Msg("critical notification failed")
	}
}

// StartupMessage announces the bot with a shortened account address.
func StartupMessage(account common.Address) string {
	hex := account.Hex()
	return "🤖 Goldilocks bot started with account " + hex[:6] + "..." + hex[len(hex)-4:]
}
