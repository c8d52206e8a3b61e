package cycle

import (
	"context"
	"math/big"
	"testing"

	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type previewProtocol struct {
	*fakeProtocol
	market *big.Int
}

func (p previewProtocol) MarketPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.market), nil
}

func TestPreviewCyclePartialStirLeavesNothingToSwap(t *testing.T) {
	proto := newFakeProtocol()
	proto.honey = big.NewInt(0)
	reader := previewProtocol{fakeProtocol: proto, market: units.Tokens(2)}

	p, err := PreviewCycle(context.Background(), reader, Settings{SwapLeftoverHoney: true})
	require.NoError(t, err)
	assert.False(t, p.WouldSkip)
	assert.Equal(t, 0, p.PrgAfterClaim.Cmp(units.Tokens(6)))
	assert.Equal(t, allocation.StirPartial, p.Stir.Mode)
	assert.Equal(t, int64(83), p.Stir.Percentage)
	assert.Equal(t, 0, p.Stir.HoneyUsed.Cmp(units.Tokens(10)))
	assert.True(t, p.Swap.Empty())
	assert.Nil(t, p.EstimatedLocks)
	assert.Empty(t, proto.ops)
}

func TestPreviewCycleLeftoverSwapEstimate(t *testing.T) {
	proto := newFakeProtocol()
	proto.claimable = big.NewInt(0)
	reader := previewProtocol{fakeProtocol: proto, market: units.Tokens(2)}

	p, err := PreviewCycle(context.Background(), reader, Settings{SwapLeftoverHoney: true})
	require.NoError(t, err)
	assert.Equal(t, allocation.StirFull, p.Stir.Mode)
	assert.Equal(t, 0, p.Swap.HoneyToSwap.Cmp(units.Tokens(4)))
	assert.Equal(t, "1900000000000000000", p.EstimatedLocks.String())

	p, err = PreviewCycle(context.Background(), reader, Settings{SwapLeftoverHoney: true, SwapAllWalletHoney: true})
	require.NoError(t, err)
	assert.True(t, p.Swap.SwapAll)
	assert.Equal(t, "13300000000000000000", p.Swap.HoneyToSwap.String())
}

func TestPreviewCycleWouldSkip(t *testing.T) {
	proto := newFakeProtocol()
	proto.borrowLimit = halfToken()
	reader := previewProtocol{fakeProtocol: proto, market: units.Tokens(2)}

	p, err := PreviewCycle(context.Background(), reader, Settings{})
	require.NoError(t, err)
	assert.True(t, p.WouldSkip)
	assert.Equal(t, 0, p.BorrowThreshold.Cmp(units.Wad()))
	assert.Nil(t, p.ClaimablePrg)
}
