package protocol

import (
	"context"
	"math/big"

	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
)

func (p *Protocol) BorrowLimit(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Porridge, "userBorrowLimit", p.chain.Address())
}

func (p *Protocol) BorrowedHoney(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Porridge, "userBorrowedHoney", p.chain.Address())
}

func (p *Protocol) ClaimablePrg(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Porridge, "userClaimablePrg", p.chain.Address())
}

func (p *Protocol) StakedLocks(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Porridge, "userStakedLocks", p.chain.Address())
}

func (p *Protocol) HoneyBalance(ctx context.Context) (*big.Int, error) {
	return p.balanceOf(ctx, p.contracts.Honey)
}

func (p *Protocol) LocksBalance(ctx context.Context) (*big.Int, error) {
	return p.balanceOf(ctx, p.contracts.Locks)
}

// PrgBalance is the PORRIDGE token balance held in the wallet.
func (p *Protocol) PrgBalance(ctx context.Context) (*big.Int, error) {
	return p.balanceOf(ctx, p.contracts.Porridge)
}

// FloorPrice is HONEY per LOCKS at the floor, 18 decimals.
func (p *Protocol) FloorPrice(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Locks, "floorPrice")
}

func (p *Protocol) MarketPrice(ctx context.Context) (*big.Int, error) {
	return p.chain.CallBig(ctx, p.contracts.Locks, "marketPrice")
}

func (p *Protocol) balanceOf(ctx context.Context, token *registry.Contract) (*big.Int, error) {
	return p.chain.CallBig(ctx, token, "balanceOf", p.chain.Address())
}

type TokenInfo struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Symbol      string   `json:"symbol"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply *big.Int `json:"total_supply"`
}

// Token reads symbol(), decimals() and totalSupply() of contract.
func (p *Protocol) Token(ctx context.Context, contract *registry.Contract) (TokenInfo, error) {
	symbol, err := p.chain.CallString(ctx, contract, "symbol")
	if err != nil {
		return TokenInfo{}, err
	}
	decimals, err := p.chain.CallBig(ctx, contract, "decimals")
	if err != nil {
		return TokenInfo{}, err
	}
	supply, err := p.chain.CallBig(ctx, contract, "totalSupply")
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{
		Name:        contract.Name,
		Address:     contract.Address.Hex(),
		Symbol:      symbol,
		Decimals:    uint8(decimals.Uint64()),
		TotalSupply: supply,
	}, nil
}

// Verify checks that every bound contract answers symbol().
func (p *Protocol) Verify(ctx context.Context) error {
	for _, contract := range []*registry.Contract{p.contracts.Honey, p.contracts.Locks, p.contracts.Porridge} {
		symbol, err := p.chain.CallString(ctx, contract, "symbol")
		if err != nil {
			return err
		}
		p.logger.Debug().Str("contract", contract.Name).Str("symbol", symbol).Msg("contract reachable")
	}
	return nil
}

// Position is a point-in-time view of the account in the protocol.
type Position struct {
	Account       string      `json:"account"`
	Tokens        []TokenInfo `json:"tokens"`
	HoneyBalance  *big.Int    `json:"honey_balance"`
	LocksBalance  *big.Int    `json:"locks_balance"`
	PrgBalance    *big.Int    `json:"prg_balance"`
	BorrowLimit   *big.Int    `json:"borrow_limit"`
	BorrowedHoney *big.Int    `json:"borrowed_honey"`
	ClaimablePrg  *big.Int    `json:"claimable_prg"`
	StakedLocks   *big.Int    `json:"staked_locks"`
	FloorPrice    *big.Int    `json:"floor_price"`
	MarketPrice   *big.Int    `json:"market_price"`
}

func (p *Protocol) Position(ctx context.Context) (Position, error) {
	pos := Position{Account: p.chain.Address().Hex()}
	for _, contract := range []*registry.Contract{p.contracts.Honey, p.contracts.Locks, p.contracts.Porridge} {
		info, err := p.Token(ctx, contract)
		if err != nil {
			return Position{}, err
		}
		pos.Tokens = append(pos.Tokens, info)
	}
	reads := []struct {
		dst  **big.Int
		read func(context.Context) (*big.Int, error)
	}{
		{&pos.HoneyBalance, p.HoneyBalance},
		{&pos.LocksBalance, p.LocksBalance},
		{&pos.PrgBalance, p.PrgBalance},
		{&pos.BorrowLimit, p.BorrowLimit},
		{&pos.BorrowedHoney, p.BorrowedHoney},
		{&pos.ClaimablePrg, p.ClaimablePrg},
		{&pos.StakedLocks, p.StakedLocks},
		{&pos.FloorPrice, p.FloorPrice},
		{&pos.MarketPrice, p.MarketPrice},
	}
	for _, r := range reads {
		v, err := r.read(ctx)
		if err != nil {
			return Position{}, err
		}
		*r.dst = v
	}
	return pos, nil
}
