package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
)

const (
	StepBorrow = "borrow"
	StepClaim  = "claim"
	StepStir   = "stir"
	StepSwap   = "swap"
	StepStake  = "stake"
)

// errSkipCycle ends the cycle early without failing it.
var errSkipCycle = errors.New("cycle skipped")

type step struct {
	name string
	// abortCycleOnFailure propagates the step's error out of the cycle
	// instead of recording an error outcome and moving on.
	abortCycleOnFailure bool
	enabled             func(Settings) bool
	failureLabel        string
	run                 func(ctx context.Context, r *Runner, st *cycleState) error
}

// Borrow is the only step whose failure aborts the cycle.
var steps = []step{
	{name: StepBorrow, abortCycleOnFailure: true, failureLabel: "Borrow", run: borrowStep},
	{name: StepClaim, failureLabel: "Claim PORRIDGE", run: claimStep},
	{name: StepStir, failureLabel: "Stir transaction", run: stirStep},
	{name: StepSwap, failureLabel: "HONEY swap", run: swapStep, enabled: func(s Settings) bool { return s.SwapLeftoverHoney }},
	{name: StepStake, failureLabel: "Staking", run: stakeStep},
}

func borrowStep(ctx context.Context, r *Runner, st *cycleState) error {
	limit, err := r.proto.BorrowLimit(ctx)
	if err != nil {
		return err
	}
	if limit.Cmp(r.settings.BorrowThreshold) < 0 {
		st.logger.Info().
			Str("limit", limit.String()).
			Str("threshold", r.settings.BorrowThreshold.String()).
			Msg("borrow limit below threshold")
		st.add(SeverityInfo, fmt.Sprintf("Cycle skipped: borrow limit %s HONEY is below threshold %s HONEY", units.Format(limit), units.Format(r.settings.BorrowThreshold)))
		return errSkipCycle
	}
	res, err := r.proto.Borrow(ctx, limit)
	if err != nil {
		return err
	}
	st.borrowed = res.Amount
	st.recordTx("borrow", res)
	st.add(SeveritySuccess, "Borrowed "+quantity(res.Amount, "HONEY", res.Estimated()))
	return nil
}

func claimStep(ctx context.Context, r *Runner, st *cycleState) error {
	claimable, err := r.proto.ClaimablePrg(ctx)
	if err != nil {
		return err
	}
	if claimable.Sign() == 0 {
		st.add(SeverityInfo, "No PORRIDGE to claim")
		return nil
	}
	res, err := r.proto.Claim(ctx, claimable)
	if err != nil {
		return err
	}
	st.recordTx("claim", res)
	st.add(SeveritySuccess, "Claimed "+quantity(res.Amount, "PORRIDGE", res.Estimated()))
	return nil
}

func stirStep(ctx context.Context, r *Runner, st *cycleState) error {
	prg, err := r.proto.PrgBalance(ctx)
	if err != nil {
		return err
	}
	if prg.Sign() == 0 {
		st.add(SeverityError, "No PORRIDGE to stir")
		return nil
	}
	floor, err := r.proto.FloorPrice(ctx)
	if err != nil {
		return err
	}
	wallet, err := r.proto.HoneyBalance(ctx)
	if err != nil {
		return err
	}
	plan := allocation.PlanStir(allocation.StirInput{
		PrgBalance:       prg,
		FloorPrice:       floor,
		Borrowed:         st.borrowed,
		AllowWalletHoney: r.settings.AllowWalletHoney,
		WalletHoney:      wallet,
	})
	st.stirPlan = &plan
	st.logger.Info().
		Str("mode", string(plan.Mode)).
		Str("stir_amount", plan.StirAmount.String()).
		Str("honey_used", plan.HoneyUsed.String()).
		Str("honey_required", plan.HoneyRequired.String()).
		Int64("percentage", plan.Percentage).
		Msg("stir planned")
	if !plan.Executable() {
		st.add(SeverityError, fmt.Sprintf("Not enough HONEY to stir PORRIDGE (need %s HONEY)", units.Format(plan.HoneyRequired)))
		return nil
	}

	res, err := r.proto.Stir(ctx, plan)
	if err != nil {
		return err
	}
	st.honeyUsed = plan.HoneyUsed
	st.recordTx("stir", res)

	stirred := quantity(res.Amount, "PORRIDGE", res.Estimated())
	if plan.Mode == allocation.StirFull {
		st.add(SeveritySuccess, fmt.Sprintf("Stirred 100%% of PORRIDGE using %s HONEY: %s", units.Format(plan.HoneyUsed), stirred))
		return nil
	}
	suffix := ""
	if plan.UsesWalletHoney {
		suffix = " including wallet HONEY"
	}
	st.add(SeverityWarning, fmt.Sprintf("Stirred ~%d%% of PORRIDGE using %s HONEY%s: %s", plan.Percentage, units.Format(plan.HoneyUsed), suffix, stirred))
	return nil
}

func swapStep(ctx context.Context, r *Runner, st *cycleState) error {
	var wallet *big.Int
	if r.settings.SwapAllWalletHoney {
		balance, err := r.proto.HoneyBalance(ctx)
		if err != nil {
			return err
		}
		wallet = balance
	}
	plan := allocation.PlanLeftoverSwap(st.borrowed, st.honeyUsed, wallet, r.settings.SwapAllWalletHoney)
	if plan.Empty() {
		st.add(SeverityInfo, "No leftover HONEY to swap")
		return nil
	}
	res, err := r.proto.Swap(ctx, plan.HoneyToSwap)
	if err != nil {
		return err
	}
	st.recordTx("buy", res.Result)
	bought := quantity(res.Amount, "LOCKS", res.Estimated())
	if plan.SwapAll {
		st.add(SeveritySuccess, fmt.Sprintf("Swapped %d%% of wallet HONEY (%s HONEY) to %s", allocation.SwapAllBufferPct, units.Format(res.HoneySpent), bought))
		return nil
	}
	st.add(SeveritySuccess, fmt.Sprintf("Swapped leftover %s HONEY to %s", units.Format(res.HoneySpent), bought))
	return nil
}

func stakeStep(ctx context.Context, r *Runner, st *cycleState) error {
	balance, err := r.proto.LocksBalance(ctx)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		st.add(SeverityInfo, "No LOCKS to stake")
		return nil
	}
	res, err := r.proto.Stake(ctx, balance)
	if err != nil {
		return err
	}
	st.recordTx("stake", res)
	st.add(SeveritySuccess, "Staked "+quantity(res.Amount, "LOCKS", res.Estimated()))
	return nil
}

// quantity renders an amount with its symbol, marking fallback amounts.
func quantity(amount *big.Int, symbol string, estimated bool) string {
	out := units.Format(amount) + " " + symbol
	if estimated {
		out += " (estimated)"
	}
	return out
}
