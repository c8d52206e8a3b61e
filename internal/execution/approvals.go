package execution

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
)

// EnsureAllowance approves exactly required for spender when the current
// allowance is below it. It reports whether an approval was sent.
func (c *Client) EnsureAllowance(ctx context.Context, token *registry.Contract, spender common.Address, required *big.Int) (bool, error) {
	if token == nil {
		return false, clierr.New(clierr.CodeInternal, "missing token for allowance check")
	}
	if required == nil {
		required = new(big.Int)
	}
	current, err := c.CallBig(ctx, token, "allowance", c.Address(), spender)
	if err != nil {
		return false, err
	}
	if current.Cmp(required) >= 0 {
		c.logger.Debug().
			Str("token", token.Name).
			Str("spender", spender.Hex()).
			Str("allowance", current.String()).
			Msg("allowance sufficient")
		return false, nil
	}
	c.logger.Info().
		Str("token", token.Name).
		Str("spender", spender.Hex()).
		Str("allowance", current.String()).
		Str("required", required.String()).
		Msg("approving allowance")
	if _, err := c.Submit(ctx, Call{
		Contract: token,
		Method:   "approve",
		Args:     []any{spender, new(big.Int).Set(required)},
	}); err != nil {
		return true, fmt.Errorf("approve %s: %w", token.Name, err)
	}
	return true, nil
}
