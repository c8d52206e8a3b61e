package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
)

// WaitForReceipt polls every PollInterval until the receipt is available or
// Timeout elapses. NotFound and transient RPC errors lead to another poll.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return receipt, nil
			}
			return receipt, clierr.New(clierr.CodeReverted, fmt.Sprintf("transaction %s reverted on-chain", hash.Hex()))
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug().Err(err).Str("tx_hash", hash.Hex()).Msg("receipt poll failed, retrying")
		}
		select {
		case <-waitCtx.Done():
			return nil, c.waitError(ctx, hash)
		case <-ticker.C:
		}
	}
}

func (c *Client) waitError(parent context.Context, hash common.Hash) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return clierr.New(clierr.CodeReceiptTimeout, fmt.Sprintf("timed out after %s waiting for receipt of %s", c.opts.Timeout, hash.Hex()))
}
