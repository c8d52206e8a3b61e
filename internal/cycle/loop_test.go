package cycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waiterFunc func(ctx context.Context) error

func (f waiterFunc) Wait(ctx context.Context) error { return f(ctx) }

// stopAfter cancels the loop context on the nth wait.
func stopAfter(n int, cancel context.CancelFunc) waiterFunc {
	calls := 0
	return func(ctx context.Context) error {
		calls++
		if calls >= n {
			cancel()
			return ctx.Err()
		}
		return nil
	}
}

var testAccount = common.HexToAddress("0x1234000000000000000000000000000000005678")

func TestStartupMessageShortensAccount(t *testing.T) {
	assert.Equal(t, "🤖 Goldilocks bot started with account 0x1234...5678", StartupMessage(testAccount))
}

func TestLoopReportsCyclesAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proto := newFakeProtocol()
	notifier := &recordingNotifier{}
	loop := &Loop{
		Runner:   NewRunner(proto, Settings{}, WithNotifier(notifier)),
		Notifier: notifier,
		Waiter:   stopAfter(2, cancel),
		Account:  testAccount,
		Logger:   zerolog.Nop(),
	}

	require.NoError(t, loop.Run(ctx))
	require.Len(t, notifier.messages, 4)
	assert.Equal(t, StartupMessage(testAccount), notifier.messages[0])
	assert.Contains(t, notifier.messages[1], "Borrowed 10.0000 HONEY")
	assert.Contains(t, notifier.messages[2], "Borrowed 10.0000 HONEY")
	assert.Equal(t, "🛑 Bot stopped by user", notifier.messages[3])
}

func TestLoopReportsCycleErrorAndContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proto := newFakeProtocol()
	proto.errs["borrow"] = errors.New("insufficient funds for gas")
	notifier := &recordingNotifier{}
	loop := &Loop{
		Runner:   NewRunner(proto, Settings{}),
		Notifier: notifier,
		Waiter:   stopAfter(2, cancel),
		Account:  testAccount,
		Logger:   zerolog.Nop(),
	}

	require.NoError(t, loop.Run(ctx))
	require.Len(t, notifier.messages, 4)
	assert.Equal(t, "❌ Main loop error: borrow step: insufficient funds for gas", notifier.messages[1])
	assert.Equal(t, notifier.messages[1], notifier.messages[2])
	assert.Equal(t, []string{"borrow", "borrow"}, proto.ops)
}

func TestLoopStopsBeforeFirstCycleWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proto := newFakeProtocol()
	notifier := &recordingNotifier{}
	loop := &Loop{
		Runner:   NewRunner(proto, Settings{}),
		Notifier: notifier,
		Waiter:   waiterFunc(func(context.Context) error { return nil }),
		Account:  testAccount,
		Logger:   zerolog.Nop(),
	}

	require.NoError(t, loop.Run(ctx))
	assert.Empty(t, proto.ops)
	assert.Equal(t, []string{StartupMessage(testAccount), "🛑 Bot stopped by user"}, notifier.messages)
}

func TestNotifyCriticalSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier := &recordingNotifier{}

	NotifyCritical(ctx, notifier, zerolog.Nop(), errors.New("connect to rpc: dial tcp: connection refused"))
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "❌ Critical error: connect to rpc: dial tcp: connection refused", notifier.messages[0])
}

func TestCriticalMessageTruncates(t *testing.T) {
	msg := CriticalMessage(errors.New(strings.Repeat("x", 300)))
	assert.Equal(t, "❌ Critical error: "+strings.Repeat("x", 200), msg)
}
