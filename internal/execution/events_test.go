package execution

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func amountLog(t *testing.T, shape registry.EventShape, emitter common.Address, amount *big.Int) *types.Log {
	t.Helper()
	data, err := shape.Event.Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)
	return &types.Log{
		Address: emitter,
		Topics:  []common.Hash{shape.Topic, common.BytesToHash(testUser.Bytes())},
		Data:    data,
	}
}

func TestResolveAmountFromMatchingEvent(t *testing.T) {
	contracts := testContracts(t)
	stir := contracts.Porridge.MustEventShape("Stir")
	claim := contracts.Porridge.MustEventShape("Claim")

	receipt := &types.Receipt{Logs: []*types.Log{
		amountLog(t, claim, contracts.Porridge.Address, big.NewInt(1)),
		amountLog(t, stir, contracts.Porridge.Address, big.NewInt(42)),
		amountLog(t, stir, contracts.Porridge.Address, big.NewInt(43)),
	}}
	res := ResolveAmount(receipt, stir, big.NewInt(7))
	assert.Equal(t, AmountFromEvent, res.Source)
	assert.False(t, res.Estimated())
	assert.Equal(t, int64(42), res.Amount.Int64())
}

func TestResolveAmountIgnoresForeignTopicAndEmitter(t *testing.T) {
	contracts := testContracts(t)
	stir := contracts.Porridge.MustEventShape("Stir")
	buy := contracts.Locks.MustEventShape("Buy")

	receipt := &types.Receipt{Logs: []*types.Log{
		amountLog(t, buy, contracts.Locks.Address, big.NewInt(1)),
		amountLog(t, stir, contracts.Locks.Address, big.NewInt(2)),
		{Address: contracts.Porridge.Address},
	}}
	res := ResolveAmount(receipt, stir, big.NewInt(7))
	assert.Equal(t, AmountFromFallback, res.Source)
	assert.True(t, res.Estimated())
	assert.Equal(t, int64(7), res.Amount.Int64())

	res = ResolveAmount(nil, stir, nil)
	assert.Equal(t, AmountFromFallback, res.Source)
	assert.Equal(t, 0, res.Amount.Sign())
}

func TestResolveAmountSkipsUndecodableLog(t *testing.T) {
	contracts := testContracts(t)
	stake := contracts.Porridge.MustEventShape("Stake")
	broken := &types.Log{Address: contracts.Porridge.Address, Topics: []common.Hash{stake.Topic}, Data: []byte{0x01}}

	receipt := &types.Receipt{Logs: []*types.Log{broken, amountLog(t, stake, contracts.Porridge.Address, big.NewInt(9))}}
	res := ResolveAmount(receipt, stake, big.NewInt(1))
	assert.Equal(t, AmountFromEvent, res.Source)
	assert.Equal(t, int64(9), res.Amount.Int64())
}

func TestResolveAmountIndexedField(t *testing.T) {
	const indexedABI = `[{"name":"Borrow","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":true}]}]`
	contract, err := registry.NewContract("PORRIDGE", common.HexToAddress(testAddresses.Porridge), registry.PorridgeABI)
	require.NoError(t, err)
	parsed, err := abi.JSON(strings.NewReader(indexedABI))
	require.NoError(t, err)
	contract.ABI = parsed

	shape, err := contract.EventShape("Borrow", "amount")
	require.NoError(t, err)
	log := &types.Log{
		Address: contract.Address,
		Topics:  []common.Hash{shape.Topic, common.BytesToHash(testUser.Bytes()), common.BigToHash(big.NewInt(500))},
	}
	res := ResolveAmount(&types.Receipt{Logs: []*types.Log{log}}, shape, big.NewInt(1))
	assert.Equal(t, AmountFromEvent, res.Source)
	assert.Equal(t, int64(500), res.Amount.Int64())
}

func TestSubmitThenResolveBorrowEvent(t *testing.T) {
	backend := newFakeBackend()
	contracts := testContracts(t)
	shape := contracts.Porridge.MustEventShape("Borrow")
	backend.logsFor = func(*types.Transaction) []*types.Log {
		return []*types.Log{amountLog(t, shape, contracts.Porridge.Address, big.NewInt(123))}
	}
	client := newTestClient(t, backend)

	sub, err := client.Submit(context.Background(), Call{Contract: contracts.Porridge, Method: "borrow", Args: []any{big.NewInt(200)}})
	require.NoError(t, err)
	res := client.Resolve(sub.Receipt, shape, big.NewInt(200))
	assert.Equal(t, int64(123), res.Amount.Int64())
}
