package execution

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution/signer"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

var testAddresses = registry.Addresses{
	Honey:    "0x1111111111111111111111111111111111111111",
	Locks:    "0x2222222222222222222222222222222222222222",
	Porridge: "0x3333333333333333333333333333333333333333",
}

// fakeBackend is an in-memory chain: sent transactions are mined on the
// first receipt poll unless configured otherwise.
type fakeBackend struct {
	mu sync.Mutex

	chainID     *big.Int
	chainIDErr  error
	nonce       uint64
	gasPrice    *big.Int
	estimate    uint64
	estimateErr error
	sendErr     error

	receiptStatus uint64
	receiptErrs   []error
	neverMined    bool
	logsFor       func(tx *types.Transaction) []*types.Log

	call func(msg ethereum.CallMsg) ([]byte, error)

	sent  []*types.Transaction
	polls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:       big.NewInt(80094),
		gasPrice:      big.NewInt(1_000_000_000),
		estimate:      100_000,
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	if f.chainIDErr != nil {
		return nil, f.chainIDErr
	}
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce + uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.neverMined {
		return nil, ethereum.NotFound
	}
	if len(f.receiptErrs) > 0 {
		err := f.receiptErrs[0]
		f.receiptErrs = f.receiptErrs[1:]
		return nil, err
	}
	for _, tx := range f.sent {
		if tx.Hash() != hash {
			continue
		}
		receipt := &types.Receipt{Status: f.receiptStatus, TxHash: hash, GasUsed: 21_000}
		if f.logsFor != nil {
			receipt.Logs = f.logsFor(tx)
		}
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.call == nil {
		return nil, ethereum.NotFound
	}
	return f.call(msg)
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSigner(signer.LocalSignerConfig{PrivateKeyHex: testPrivateKey})
	require.NoError(t, err)
	return s
}

func testContracts(t *testing.T) registry.Contracts {
	t.Helper()
	contracts, err := registry.Bind(testAddresses, "")
	require.NoError(t, err)
	return contracts
}

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.PollInterval = time.Millisecond
	opts.Timeout = time.Second
	client, err := NewClient(context.Background(), backend, testSigner(t), opts)
	require.NoError(t, err)
	return client
}

// packOutput encodes values as the return data of contract.method.
func packOutput(t *testing.T, contract *registry.Contract, method string, values ...any) []byte {
	t.Helper()
	def, ok := contract.Method(method)
	require.True(t, ok, "unknown method %s", method)
	out, err := def.Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}
