// Package protocol exposes the HONEY / LOCKS / PORRIDGE contract surface as
// typed reads and confirmed operations for the bot's account.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/rs/zerolog"
)

// ErrZeroMarketPrice is returned by Swap when LOCKS reports a zero market
// price; no buy target can be derived from it.
var ErrZeroMarketPrice = errors.New("market price is zero")

// Chain is the execution surface the protocol needs; *execution.Client
// implements it.
type Chain interface {
	Address() common.Address
	Submit(ctx context.Context, call execution.Call) (*execution.Submission, error)
	CallBig(ctx context.Context, contract *registry.Contract, method string, args ...any) (*big.Int, error)
	CallString(ctx context.Context, contract *registry.Contract, method string, args ...any) (string, error)
	EnsureAllowance(ctx context.Context, token *registry.Contract, spender common.Address, required *big.Int) (bool, error)
	Resolve(receipt *types.Receipt, shape registry.EventShape, fallback *big.Int) execution.Resolution
}

type shapes struct {
	borrow registry.EventShape
	claim  registry.EventShape
	stir   registry.EventShape
	stake  registry.EventShape
	buy    registry.EventShape
}

type Protocol struct {
	chain     Chain
	contracts registry.Contracts
	shapes    shapes
	logger    zerolog.Logger
}

// New precomputes the event shapes used to resolve effected amounts. It
// fails when a bound ABI lacks one of the events and the built-in ABI cannot
// supply it.
func New(chain Chain, contracts registry.Contracts, logger zerolog.Logger) (*Protocol, error) {
	if chain == nil {
		return nil, errors.New("missing chain client")
	}
	if contracts.Honey == nil || contracts.Locks == nil || contracts.Porridge == nil {
		return nil, errors.New("missing contract bindings")
	}
	p := &Protocol{chain: chain, contracts: contracts, logger: logger}
	var err error
	if p.shapes.borrow, err = contracts.Porridge.EventShape("Borrow", "amount"); err != nil {
		return nil, err
	}
	if p.shapes.claim, err = contracts.Porridge.EventShape("Claim", "amount"); err != nil {
		return nil, err
	}
	if p.shapes.stir, err = contracts.Porridge.EventShape("Stir", "amount"); err != nil {
		return nil, err
	}
	if p.shapes.stake, err = contracts.Porridge.EventShape("Stake", "amount"); err != nil {
		return nil, err
	}
	if p.shapes.buy, err = contracts.Locks.EventShape("Buy", "amount"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Protocol) Account() common.Address { return p.chain.Address() }

func (p *Protocol) Contracts() registry.Contracts { return p.contracts }

// Result is a confirmed operation and the amount it effected.
type Result struct {
	Amount      *big.Int
	Source      execution.AmountSource
	TxHash      common.Hash
	ExplorerURL string
	Gas         execution.GasDecision
	Encoding    execution.Encoding
	// Approvals counts approval transactions sent before the operation.
	Approvals int
}

// Estimated reports whether Amount is a fallback rather than an event value.
func (r Result) Estimated() bool { return r.Source == execution.AmountFromFallback }

func (p *Protocol) submit(ctx context.Context, contract *registry.Contract, method string, shape registry.EventShape, fallback *big.Int, args ...any) (Result, error) {
	sub, err := p.chain.Submit(ctx, execution.Call{Contract: contract, Method: method, Args: args})
	if err != nil {
		return Result{}, err
	}
	res := p.chain.Resolve(sub.Receipt, shape, fallback)
	return Result{
		Amount:      res.Amount,
		Source:      res.Source,
		TxHash:      sub.TxHash,
		ExplorerURL: sub.ExplorerURL,
		Gas:         sub.Gas,
		Encoding:    sub.Encoding,
	}, nil
}

func (p *Protocol) approve(ctx context.Context, token *registry.Contract, spender common.Address, amount *big.Int) (int, error) {
	sent, err := p.chain.EnsureAllowance(ctx, token, spender, amount)
	if err != nil {
		return 0, err
	}
	if sent {
		return 1, nil
	}
	return 0, nil
}

// Borrow borrows amount HONEY. The effected amount falls back to amount.
func (p *Protocol) Borrow(ctx context.Context, amount *big.Int) (Result, error) {
	p.logger.Info().Str("amount", amount.String()).Msg("borrowing HONEY")
	return p.submit(ctx, p.contracts.Porridge, "borrow", p.shapes.borrow, amount, new(big.Int).Set(amount))
}

// Claim claims accrued PORRIDGE. claimable is the pre-claim reading used as
// fallback.
func (p *Protocol) Claim(ctx context.Context, claimable *big.Int) (Result, error) {
	p.logger.Info().Str("claimable", claimable.String()).Msg("claiming PORRIDGE")
	return p.submit(ctx, p.contracts.Porridge, "claim", p.shapes.claim, claimable)
}

// Stir approves the HONEY and PORRIDGE the plan consumes, then stirs
// plan.StirAmount.
func (p *Protocol) Stir(ctx context.Context, plan allocation.StirPlan) (Result, error) {
	if !plan.Executable() {
		return Result{}, fmt.Errorf("stir plan %s is not executable", plan.Mode)
	}
	porridge := p.contracts.Porridge.Address
	approvals := 0
	n, err := p.approve(ctx, p.contracts.Honey, porridge, plan.HoneyUsed)
	if err != nil {
		return Result{}, err
	}
	approvals += n
	n, err = p.approve(ctx, p.contracts.Porridge, porridge, plan.StirAmount)
	if err != nil {
		return Result{}, err
	}
	approvals += n

	p.logger.Info().
		Str("stir_amount", plan.StirAmount.String()).
		Str("honey_used", plan.HoneyUsed.String()).
		Int64("percentage", plan.Percentage).
		Bool("wallet_honey", plan.UsesWalletHoney).
		Msg("stirring PORRIDGE")
	res, err := p.submit(ctx, p.contracts.Porridge, "stir", p.shapes.stir, plan.StirAmount, new(big.Int).Set(plan.StirAmount))
	res.Approvals = approvals
	return res, err
}

// SwapResult is a confirmed LOCKS buy.
type SwapResult struct {
	Result
	HoneySpent  *big.Int
	MarketPrice *big.Int
	Target      *big.Int
}

// Swap buys LOCKS at market price with at most honey HONEY. The requested
// target is 95% of the market-price estimate; the bought amount comes from
// the Buy event and falls back to the target.
func (p *Protocol) Swap(ctx context.Context, honey *big.Int) (SwapResult, error) {
	approvals, err := p.approve(ctx, p.contracts.Honey, p.contracts.Locks.Address, honey)
	if err != nil {
		return SwapResult{}, err
	}
	price, err := p.MarketPrice(ctx)
	if err != nil {
		return SwapResult{}, err
	}
	if price.Sign() == 0 {
		return SwapResult{}, ErrZeroMarketPrice
	}
	target := allocation.EstimateBuyTarget(honey, price)
	p.logger.Info().
		Str("target", target.String()).
		Str("max_honey", honey.String()).
		Str("market_price", price.String()).
		Msg("buying LOCKS")
	res, err := p.submit(ctx, p.contracts.Locks, "buy", p.shapes.buy, target, target, new(big.Int).Set(honey))
	if err != nil {
		return SwapResult{}, err
	}
	res.Approvals = approvals
	return SwapResult{Result: res, HoneySpent: new(big.Int).Set(honey), MarketPrice: price, Target: target}, nil
}

// Stake approves and stakes amount LOCKS.
func (p *Protocol) Stake(ctx context.Context, amount *big.Int) (Result, error) {
	approvals, err := p.approve(ctx, p.contracts.Locks, p.contracts.Porridge.Address, amount)
	if err != nil {
		return Result{}, err
	}
	p.logger.Info().Str("amount", amount.String()).Msg("staking LOCKS")
	res, err := p.submit(ctx, p.contracts.Porridge, "stake", p.shapes.stake, amount, new(big.Int).Set(amount))
	res.Approvals = approvals
	return res, err
}
