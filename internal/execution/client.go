package execution

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution/signer"
	"github.com/ggonzalez94/goldilocks-keeper/internal/metrics"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/rs/zerolog"
)

// Backend is the part of *ethclient.Client the keeper talks to.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	FallbackGas  uint64
}

func DefaultOptions() Options {
	return Options{
		PollInterval: time.Second,
		Timeout:      120 * time.Second,
		FallbackGas:  DefaultFallbackGas,
	}
}

// Client submits transactions for a single account and waits for them to
// be mined. It is not safe for concurrent use: nonces come from the node's
// pending count.
type Client struct {
	backend Backend
	signer  signer.Signer
	chainID *big.Int
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient reads the chain id from backend once; it is used to sign every
// transaction afterwards.
func NewClient(ctx context.Context, backend Backend, txSigner signer.Signer, opts Options, options ...Option) (*Client, error) {
	if backend == nil {
		return nil, clierr.New(clierr.CodeInternal, "missing chain backend")
	}
	if txSigner == nil {
		return nil, clierr.New(clierr.CodeSigner, "missing signer")
	}
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.FallbackGas == 0 {
		opts.FallbackGas = defaults.FallbackGas
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConnection, "read chain id", err)
	}
	c := &Client{
		backend: backend,
		signer:  txSigner,
		chainID: chainID,
		opts:    opts,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) Address() common.Address { return c.signer.Address() }

func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// Call is one state-changing contract call.
type Call struct {
	Contract *registry.Contract
	Method   string
	Args     []any
	Value    *big.Int
	// FallbackGas overrides the client default when estimation fails.
	FallbackGas uint64
}

// Submission describes a mined, successful transaction.
type Submission struct {
	Method      string
	TxHash      common.Hash
	ExplorerURL string
	Receipt     *types.Receipt
	Gas         GasDecision
	Encoding    Encoding
}

// Submit encodes, signs and broadcasts call, then blocks until the receipt
// is available. A failed receipt is returned as CodeReverted and is never
// retried.
func (c *Client) Submit(ctx context.Context, call Call) (*Submission, error) {
	if call.Contract == nil {
		return nil, clierr.New(clierr.CodeTxBuild, fmt.Sprintf("missing contract for %s", call.Method))
	}
	label := call.Contract.Name + "." + call.Method
	data, encoding, err := EncodeCall(call.Contract, call.Method, call.Args...)
	if err != nil {
		return nil, err
	}
	if encoding == EncodingManual {
		c.logger.Warn().Str("method", label).Msg("abi encoding failed, using canonical method encoding")
		c.metrics.RecordEncodingFallback(call.Method)
	}

	from := c.signer.Address()
	to := call.Contract.Address
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConnection, "fetch nonce", err)
	}
	quote, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConnection, "fetch gas price", err)
	}
	gasPrice := PadGasPrice(quote)

	fallback := call.FallbackGas
	if fallback == 0 {
		fallback = c.opts.FallbackGas
	}
	gas := c.decideGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}, fallback)
	if gas.Source == GasFallback {
		c.logger.Warn().Str("method", label).Str("reason", gas.Reason).Uint64("gas", gas.Limit).Msg("gas estimation failed, using fallback limit")
		c.metrics.RecordGasFallback(call.Method)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas.Limit,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := c.signer.SignTx(c.chainID, tx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		c.metrics.RecordTransaction(call.Method, "send_failed")
		return nil, clierr.Wrap(clierr.CodeConnection, fmt.Sprintf("broadcast %s", label), err)
	}
	hash := signed.Hash()
	c.logger.Info().
		Str("method", label).
		Str("tx_hash", hash.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gas.Limit).
		Str("gas_source", string(gas.Source)).
		Str("gas_price", gasPrice.String()).
		Msg("transaction sent")

	receipt, err := c.WaitForReceipt(ctx, hash)
	if err != nil {
		switch {
		case clierr.Is(err, clierr.CodeReverted):
			c.metrics.RecordTransaction(call.Method, "reverted")
		case clierr.Is(err, clierr.CodeReceiptTimeout):
			c.metrics.RecordTransaction(call.Method, "timeout")
		}
		return nil, err
	}
	c.metrics.RecordTransaction(call.Method, "confirmed")
	c.logger.Info().
		Str("method", label).
		Str("tx_hash", hash.Hex()).
		Uint64("gas_used", receipt.GasUsed).
		Msg("transaction confirmed")

	return &Submission{
		Method:      call.Method,
		TxHash:      hash,
		ExplorerURL: registry.ExplorerTxURL(c.chainID.Int64(), hash),
		Receipt:     receipt,
		Gas:         gas,
		Encoding:    encoding,
	}, nil
}

// Call runs a view method at the latest block and returns its decoded
// outputs.
func (c *Client) Call(ctx context.Context, contract *registry.Contract, method string, args ...any) ([]any, error) {
	if contract == nil {
		return nil, clierr.New(clierr.CodeContractCall, fmt.Sprintf("missing contract for %s", method))
	}
	label := contract.Name + "." + method
	def, ok := contract.Method(method)
	if !ok {
		return nil, clierr.New(clierr.CodeContractCall, fmt.Sprintf("%s: method not found in abi", label))
	}
	data, _, err := EncodeCall(contract, method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeContractCall, fmt.Sprintf("encode %s", label), err)
	}
	to := contract.Address
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.signer.Address(), To: &to, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeContractCall, fmt.Sprintf("call %s", label), err)
	}
	values, err := def.Outputs.Unpack(out)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeContractCall, fmt.Sprintf("decode %s result", label), err)
	}
	return values, nil
}

// CallBig is Call for methods returning a single uint256.
func (c *Client) CallBig(ctx context.Context, contract *registry.Contract, method string, args ...any) (*big.Int, error) {
	values, err := c.Call(ctx, contract, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, clierr.New(clierr.CodeContractCall, fmt.Sprintf("%s.%s returned no values", contract.Name, method))
	}
	switch v := values[0].(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, clierr.New(clierr.CodeContractCall, fmt.Sprintf("%s.%s returned %T, expected integer", contract.Name, method, values[0]))
	}
}

// CallString is Call for methods returning a single string, such as symbol().
func (c *Client) CallString(ctx context.Context, contract *registry.Contract, method string, args ...any) (string, error) {
	values, err := c.Call(ctx, contract, method, args...)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", clierr.New(clierr.CodeContractCall, fmt.Sprintf("%s.%s returned no values", contract.Name, method))
	}
	s, ok := values[0].(string)
	if !ok {
		return "", clierr.New(clierr.CodeContractCall, fmt.Sprintf("%s.%s returned %T, expected string", contract.Name, method, values[0]))
	}
	return s, nil
}
