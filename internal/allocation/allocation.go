// Package allocation sizes the partial operations of a cycle. Every function
// is pure integer fixed-point arithmetic with round-down semantics.
package allocation

import (
	"math/big"

	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
)

const (
	// SwapAllBufferPct is the share of the wallet HONEY balance swapped when
	// swap-all is enabled; the rest stays in the wallet.
	SwapAllBufferPct = 95
	// BuySlippagePct is the share of the market-price estimate requested as
	// the buy target.
	BuySlippagePct = 95
)

type StirMode string

const (
	StirFull       StirMode = "full"
	StirPartial    StirMode = "partial"
	StirInfeasible StirMode = "infeasible"
)

type StirInput struct {
	PrgBalance       *big.Int
	FloorPrice       *big.Int
	Borrowed         *big.Int
	AllowWalletHoney bool
	WalletHoney      *big.Int
}

type StirPlan struct {
	Mode StirMode
	// StirAmount is the PORRIDGE to stir.
	StirAmount *big.Int
	// HoneyUsed is the HONEY the stir consumes; zero when infeasible.
	HoneyUsed *big.Int
	// HoneyRequired is the HONEY a full stir of the whole balance needs.
	HoneyRequired *big.Int
	Percentage    int64
	// UsesWalletHoney is set when HONEY held before this cycle funds part of
	// the stir.
	UsesWalletHoney bool
}

// Executable reports whether the plan calls for a stir transaction.
func (p StirPlan) Executable() bool {
	return p.Mode != StirInfeasible && p.StirAmount != nil && p.StirAmount.Sign() > 0
}

// StirableAmount returns how much PORRIDGE honeyAvailable can stir at the
// floor price. A zero floor price yields zero.
func StirableAmount(honeyAvailable, floorPrice *big.Int) *big.Int {
	if floorPrice == nil || floorPrice.Sign() == 0 || honeyAvailable == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(honeyAvailable, units.Wad())
	return out.Quo(out, floorPrice)
}

// HoneyForStir returns floor(floorPrice * prg / 1e18).
func HoneyForStir(prg, floorPrice *big.Int) *big.Int {
	out := new(big.Int).Mul(orZero(floorPrice), orZero(prg))
	return out.Quo(out, units.Wad())
}

func PlanStir(in StirInput) StirPlan {
	prg := orZero(in.PrgBalance)
	borrowed := orZero(in.Borrowed)
	wallet := orZero(in.WalletHoney)

	neededFull := HoneyForStir(prg, in.FloorPrice)
	if borrowed.Cmp(neededFull) >= 0 {
		return StirPlan{
			Mode:          StirFull,
			StirAmount:    new(big.Int).Set(prg),
			HoneyUsed:     neededFull,
			HoneyRequired: new(big.Int).Set(neededFull),
			Percentage:    100,
		}
	}

	var honeyAvailable *big.Int
	if in.AllowWalletHoney {
		honeyAvailable = new(big.Int).Set(wallet)
	} else {
		honeyAvailable = minBig(wallet, borrowed)
	}

	stirAmount := minBig(StirableAmount(honeyAvailable, in.FloorPrice), prg)
	if stirAmount.Sign() == 0 {
		return StirPlan{
			Mode:          StirInfeasible,
			StirAmount:    new(big.Int),
			HoneyUsed:     new(big.Int),
			HoneyRequired: neededFull,
		}
	}

	honeyUsed := HoneyForStir(stirAmount, in.FloorPrice)
	pct := new(big.Int).Mul(stirAmount, big.NewInt(100))
	pct.Quo(pct, prg)
	return StirPlan{
		Mode:            StirPartial,
		StirAmount:      stirAmount,
		HoneyUsed:       honeyUsed,
		HoneyRequired:   neededFull,
		Percentage:      pct.Int64(),
		UsesWalletHoney: in.AllowWalletHoney && honeyAvailable.Cmp(borrowed) > 0,
	}
}

type SwapPlan struct {
	HoneyToSwap *big.Int
	// SwapAll is set when the plan is sized from the wallet balance rather
	// than the leftover borrowed HONEY.
	SwapAll bool
}

// Empty reports whether there is nothing to swap.
func (p SwapPlan) Empty() bool {
	return p.HoneyToSwap == nil || p.HoneyToSwap.Sign() <= 0
}

// PlanLeftoverSwap sizes the HONEY to swap into LOCKS. With swapAll the
// leftover computation is replaced, not combined.
func PlanLeftoverSwap(borrowed, honeyUsedForStir, walletHoney *big.Int, swapAll bool) SwapPlan {
	if swapAll {
		return SwapPlan{HoneyToSwap: Percent(walletHoney, SwapAllBufferPct), SwapAll: true}
	}
	leftover := new(big.Int).Sub(orZero(borrowed), orZero(honeyUsedForStir))
	if leftover.Sign() < 0 {
		leftover.SetInt64(0)
	}
	return SwapPlan{HoneyToSwap: leftover}
}

// EstimateBuyTarget returns floor(honey * 1e18 * 95 / (marketPrice * 100)).
// The value only sizes the buy call; the received amount comes from the Buy
// event.
func EstimateBuyTarget(honey, marketPrice *big.Int) *big.Int {
	if marketPrice == nil || marketPrice.Sign() == 0 || honey == nil {
		return new(big.Int)
	}
	num := new(big.Int).Mul(honey, units.Wad())
	num.Mul(num, big.NewInt(BuySlippagePct))
	den := new(big.Int).Mul(marketPrice, big.NewInt(100))
	return num.Quo(num, den)
}

// Percent returns floor(v * pct / 100).
func Percent(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(orZero(v), big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
