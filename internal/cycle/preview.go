package cycle

import (
	"context"
	"math/big"

	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
)

// PreviewReader is the read-only surface PreviewCycle needs.
type PreviewReader interface {
	BorrowLimit(ctx context.Context) (*big.Int, error)
	ClaimablePrg(ctx context.Context) (*big.Int, error)
	PrgBalance(ctx context.Context) (*big.Int, error)
	FloorPrice(ctx context.Context) (*big.Int, error)
	HoneyBalance(ctx context.Context) (*big.Int, error)
	MarketPrice(ctx context.Context) (*big.Int, error)
}

// Preview is what the next cycle would do given current readings, assuming
// every transaction effects exactly its requested amount.
type Preview struct {
	BorrowLimit     *big.Int
	BorrowThreshold *big.Int
	WouldSkip       bool
	ClaimablePrg    *big.Int
	PrgAfterClaim   *big.Int
	FloorPrice      *big.Int
	HoneyBalance    *big.Int
	Stir            allocation.StirPlan
	SwapEnabled     bool
	Swap            allocation.SwapPlan
	MarketPrice     *big.Int
	EstimatedLocks  *big.Int
}

// PreviewCycle reads the current position and plans the stir and swap steps
// without sending transactions.
func PreviewCycle(ctx context.Context, reader PreviewReader, settings Settings) (Preview, error) {
	if settings.BorrowThreshold == nil {
		settings.BorrowThreshold = units.Wad()
	}
	p := Preview{BorrowThreshold: settings.BorrowThreshold, SwapEnabled: settings.SwapLeftoverHoney}

	var err error
	if p.BorrowLimit, err = reader.BorrowLimit(ctx); err != nil {
		return Preview{}, err
	}
	if p.BorrowLimit.Cmp(settings.BorrowThreshold) < 0 {
		p.WouldSkip = true
		return p, nil
	}
	if p.ClaimablePrg, err = reader.ClaimablePrg(ctx); err != nil {
		return Preview{}, err
	}
	prg, err := reader.PrgBalance(ctx)
	if err != nil {
		return Preview{}, err
	}
	p.PrgAfterClaim = new(big.Int).Add(prg, p.ClaimablePrg)
	if p.FloorPrice, err = reader.FloorPrice(ctx); err != nil {
		return Preview{}, err
	}
	if p.HoneyBalance, err = reader.HoneyBalance(ctx); err != nil {
		return Preview{}, err
	}

	borrowed := p.BorrowLimit
	walletAfterBorrow := new(big.Int).Add(p.HoneyBalance, borrowed)
	p.Stir = allocation.PlanStir(allocation.StirInput{
		PrgBalance:       p.PrgAfterClaim,
		FloorPrice:       p.FloorPrice,
		Borrowed:         borrowed,
		AllowWalletHoney: settings.AllowWalletHoney,
		WalletHoney:      walletAfterBorrow,
	})
	if !settings.SwapLeftoverHoney {
		return p, nil
	}

	honeyUsed := new(big.Int)
	if p.Stir.Executable() {
		honeyUsed = p.Stir.HoneyUsed
	}
	walletAfterStir := new(big.Int).Sub(walletAfterBorrow, honeyUsed)
	p.Swap = allocation.PlanLeftoverSwap(borrowed, honeyUsed, walletAfterStir, settings.SwapAllWalletHoney)
	if p.Swap.Empty() {
		return p, nil
	}
	if p.MarketPrice, err = reader.MarketPrice(ctx); err != nil {
		return Preview{}, err
	}
	p.EstimatedLocks = allocation.EstimateBuyTarget(p.Swap.HoneyToSwap, p.MarketPrice)
	return p, nil
}
