package execution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

const (
	DefaultFallbackGas uint64 = 500_000
	// GasPaddingPct pads both the node gas price quote and the gas estimate.
	GasPaddingPct = 120
)

type GasSource string

const (
	GasEstimated GasSource = "estimated"
	GasFallback  GasSource = "fallback"
)

// GasDecision is the gas limit used for a transaction and where it came
// from. A failed estimation is not an error; it yields a fallback decision.
type GasDecision struct {
	Limit  uint64    `json:"limit"`
	Source GasSource `json:"source"`
	// Estimate is the raw node estimate, zero on fallback.
	Estimate uint64 `json:"estimate,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (c *Client) decideGas(ctx context.Context, msg ethereum.CallMsg, fallback uint64) GasDecision {
	estimate, err := c.backend.EstimateGas(ctx, msg)
	if err != nil || estimate == 0 {
		reason := "estimate returned zero"
		if err != nil {
			reason = err.Error()
		}
		return GasDecision{Limit: fallback, Source: GasFallback, Reason: reason}
	}
	return GasDecision{Limit: PadGas(estimate), Source: GasEstimated, Estimate: estimate}
}

func PadGas(estimate uint64) uint64 {
	return estimate * GasPaddingPct / 100
}

func PadGasPrice(quote *big.Int) *big.Int {
	if quote == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(quote, big.NewInt(GasPaddingPct))
	return out.Quo(out, big.NewInt(100))
}
