package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ggonzalez94/goldilocks-keeper/internal/allocation"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type approval struct {
	token   string
	spender common.Address
	amount  *big.Int
}

type fakeChain struct {
	account   common.Address
	reads     map[string]*big.Int
	strings   map[string]string
	submitErr error
	logs      func(call execution.Call) []*types.Log

	approvals []approval
	calls     []execution.Call
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		reads:   map[string]*big.Int{},
		strings: map[string]string{},
	}
}

func (f *fakeChain) Address() common.Address { return f.account }

func (f *fakeChain) Submit(_ context.Context, call execution.Call) (*execution.Submission, error) {
	f.calls = append(f.calls, call)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	if f.logs != nil {
		receipt.Logs = f.logs(call)
	}
	return &execution.Submission{Method: call.Method, Receipt: receipt, Gas: execution.GasDecision{Source: execution.GasEstimated}}, nil
}

func (f *fakeChain) CallBig(_ context.Context, contract *registry.Contract, method string, _ ...any) (*big.Int, error) {
	v, ok := f.reads[contract.Name+"."+method]
	if !ok {
		return nil, fmt.Errorf("unexpected read %s.%s", contract.Name, method)
	}
	return new(big.Int).Set(v), nil
}

func (f *fakeChain) CallString(_ context.Context, contract *registry.Contract, method string, _ ...any) (string, error) {
	v, ok := f.strings[contract.Name+"."+method]
	if !ok {
		return "", fmt.Errorf("unexpected read %s.%s", contract.Name, method)
	}
	return v, nil
}

func (f *fakeChain) EnsureAllowance(_ context.Context, token *registry.Contract, spender common.Address, required *big.Int) (bool, error) {
	f.approvals = append(f.approvals, approval{token: token.Name, spender: spender, amount: new(big.Int).Set(required)})
	return true, nil
}

func (f *fakeChain) Resolve(receipt *types.Receipt, shape registry.EventShape, fallback *big.Int) execution.Resolution {
	return execution.ResolveAmount(receipt, shape, fallback)
}

func newTestProtocol(t *testing.T, chain *fakeChain) *Protocol {
	t.Helper()
	contracts, err := registry.Bind(registry.Addresses{
		Honey:    "0x1111111111111111111111111111111111111111",
		Locks:    "0x2222222222222222222222222222222222222222",
		Porridge: "0x3333333333333333333333333333333333333333",
	}, "")
	require.NoError(t, err)
	p, err := New(chain, contracts, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func eventLog(t *testing.T, shape registry.EventShape, amount *big.Int) *types.Log {
	t.Helper()
	data, err := shape.Event.Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)
	return &types.Log{Address: shape.Address, Topics: []common.Hash{shape.Topic, {}}, Data: data}
}

func TestBorrowResolvesEventAmount(t *testing.T) {
	chain := newFakeChain()
	p := newTestProtocol(t, chain)
	chain.logs = func(execution.Call) []*types.Log {
		return []*types.Log{eventLog(t, p.shapes.borrow, units.Tokens(4))}
	}

	res, err := p.Borrow(context.Background(), units.Tokens(5))
	require.NoError(t, err)
	assert.False(t, res.Estimated())
	assert.Equal(t, 0, res.Amount.Cmp(units.Tokens(4)))
	require.Len(t, chain.calls, 1)
	assert.Equal(t, "borrow", chain.calls[0].Method)
	assert.Equal(t, 0, chain.calls[0].Args[0].(*big.Int).Cmp(units.Tokens(5)))
}

func TestClaimFallsBackToClaimable(t *testing.T) {
	chain := newFakeChain()
	p := newTestProtocol(t, chain)

	res, err := p.Claim(context.Background(), units.Tokens(3))
	require.NoError(t, err)
	assert.True(t, res.Estimated())
	assert.Equal(t, 0, res.Amount.Cmp(units.Tokens(3)))
	assert.Empty(t, chain.calls[0].Args)
}

func TestStirApprovesHoneyAndPorridge(t *testing.T) {
	chain := newFakeChain()
	p := newTestProtocol(t, chain)
	plan := allocation.PlanStir(allocation.StirInput{
		PrgBalance:  units.Tokens(10),
		FloorPrice:  units.Tokens(2),
		Borrowed:    units.Tokens(5),
		WalletHoney: units.Tokens(5),
	})

	res, err := p.Stir(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Approvals)

	porridge := p.contracts.Porridge.Address
	require.Len(t, chain.approvals, 2)
	assert.Equal(t, approval{token: "HONEY", spender: porridge, amount: plan.HoneyUsed}, chain.approvals[0])
	assert.Equal(t, approval{token: "PORRIDGE", spender: porridge, amount: plan.StirAmount}, chain.approvals[1])
	assert.Equal(t, "stir", chain.calls[0].Method)
	assert.Equal(t, 0, res.Amount.Cmp(plan.StirAmount))
}

func TestStirRejectsInfeasiblePlan(t *testing.T) {
	chain := newFakeChain()
	p := newTestProtocol(t, chain)
	_, err := p.Stir(context.Background(), allocation.StirPlan{Mode: allocation.StirInfeasible, StirAmount: new(big.Int)})
	require.Error(t, err)
	assert.Empty(t, chain.calls)
	assert.Empty(t, chain.approvals)
}

func TestSwapBuysWithSlippageTarget(t *testing.T) {
	chain := newFakeChain()
	chain.reads["LOCKS.marketPrice"] = units.Tokens(2)
	p := newTestProtocol(t, chain)
	chain.logs = func(execution.Call) []*types.Log {
		return []*types.Log{eventLog(t, p.shapes.buy, units.Tokens(4))}
	}

	res, err := p.Swap(context.Background(), units.Tokens(10))
	require.NoError(t, err)

	require.Len(t, chain.approvals, 1)
	assert.Equal(t, "HONEY", chain.approvals[0].token)
	assert.Equal(t, p.contracts.Locks.Address, chain.approvals[0].spender)

	target, _ := new(big.Int).SetString("4750000000000000000", 10)
	assert.Equal(t, 0, res.Target.Cmp(target))
	call := chain.calls[0]
	assert.Equal(t, "buy", call.Method)
	assert.Equal(t, 0, call.Args[0].(*big.Int).Cmp(target))
	assert.Equal(t, 0, call.Args[1].(*big.Int).Cmp(units.Tokens(10)))
	assert.Equal(t, 0, res.Amount.Cmp(units.Tokens(4)))
	assert.Equal(t, 0, res.HoneySpent.Cmp(units.Tokens(10)))
}

func TestSwapZeroMarketPrice(t *testing.T) {
	chain := newFakeChain()
	chain.reads["LOCKS.marketPrice"] = big.NewInt(0)
	p := newTestProtocol(t, chain)

	_, err := p.Swap(context.Background(), units.Tokens(1))
	require.ErrorIs(t, err, ErrZeroMarketPrice)
	assert.Empty(t, chain.calls)
}

func TestStakePropagatesSubmitFailure(t *testing.T) {
	chain := newFakeChain()
	chain.submitErr = errors.New("boom")
	p := newTestProtocol(t, chain)

	_, err := p.Stake(context.Background(), units.Tokens(1))
	require.Error(t, err)
	require.Len(t, chain.approvals, 1)
	assert.Equal(t, "LOCKS", chain.approvals[0].token)
	assert.Equal(t, p.contracts.Porridge.Address, chain.approvals[0].spender)
}

func TestPositionReadsEverything(t *testing.T) {
	chain := newFakeChain()
	for _, name := range []string{"HONEY", "LOCKS", "PORRIDGE"} {
		chain.strings[name+".symbol"] = name
		chain.reads[name+".decimals"] = big.NewInt(18)
		chain.reads[name+".totalSupply"] = units.Tokens(1000)
		chain.reads[name+".balanceOf"] = units.Tokens(1)
	}
	chain.reads["PORRIDGE.userBorrowLimit"] = units.Tokens(2)
	chain.reads["PORRIDGE.userBorrowedHoney"] = units.Tokens(3)
	chain.reads["PORRIDGE.userClaimablePrg"] = units.Tokens(4)
	chain.reads["PORRIDGE.userStakedLocks"] = units.Tokens(5)
	chain.reads["LOCKS.floorPrice"] = units.Tokens(6)
	chain.reads["LOCKS.marketPrice"] = units.Tokens(7)
	p := newTestProtocol(t, chain)

	pos, err := p.Position(context.Background())
	require.NoError(t, err)
	require.Len(t, pos.Tokens, 3)
	assert.Equal(t, "LOCKS", pos.Tokens[1].Symbol)
	assert.Equal(t, uint8(18), pos.Tokens[0].Decimals)
	assert.Equal(t, 0, pos.StakedLocks.Cmp(units.Tokens(5)))
	assert.Equal(t, 0, pos.MarketPrice.Cmp(units.Tokens(7)))
	assert.Equal(t, chain.account.Hex(), pos.Account)

	require.NoError(t, p.Verify(context.Background()))
	delete(chain.strings, "LOCKS.symbol")
	require.Error(t, p.Verify(context.Background()))
}
