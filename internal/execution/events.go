package execution

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
)

type AmountSource string

const (
	AmountFromEvent    AmountSource = "event"
	AmountFromFallback AmountSource = "fallback"
)

// Resolution is the amount a transaction effected and whether it was read
// from the receipt or substituted.
type Resolution struct {
	Amount *big.Int
	Source AmountSource
}

// Estimated reports whether Amount is a substituted value.
func (r Resolution) Estimated() bool { return r.Source == AmountFromFallback }

// ResolveAmount returns the shape's amount field from the first log emitted
// by the shape's contract with the shape's topic. Other logs are never
// decoded. Without a decodable log the fallback is returned.
func ResolveAmount(receipt *types.Receipt, shape registry.EventShape, fallback *big.Int) Resolution {
	if receipt != nil {
		for _, log := range receipt.Logs {
			if log == nil || len(log.Topics) == 0 {
				continue
			}
			if log.Topics[0] != shape.Topic || log.Address != shape.Address {
				continue
			}
			amount, err := decodeAmount(log, shape)
			if err != nil {
				continue
			}
			return Resolution{Amount: amount, Source: AmountFromEvent}
		}
	}
	out := new(big.Int)
	if fallback != nil {
		out.Set(fallback)
	}
	return Resolution{Amount: out, Source: AmountFromFallback}
}

// Resolve is ResolveAmount with logging and metrics.
func (c *Client) Resolve(receipt *types.Receipt, shape registry.EventShape, fallback *big.Int) Resolution {
	res := ResolveAmount(receipt, shape, fallback)
	if res.Estimated() {
		c.logger.Warn().
			Str("event", shape.Event.Name).
			Str("fallback", res.Amount.String()).
			Msg("no matching event in receipt, using fallback amount")
		c.metrics.RecordAmountFallback(shape.Event.Name)
	}
	return res
}

func decodeAmount(log *types.Log, shape registry.EventShape) (*big.Int, error) {
	values := map[string]any{}
	if err := shape.Event.Inputs.UnpackIntoMap(values, log.Data); err != nil {
		return nil, err
	}
	var indexed abi.Arguments
	for _, input := range shape.Event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
			return nil, err
		}
	}
	raw, ok := values[shape.Field]
	if !ok {
		return nil, fmt.Errorf("event %s has no %s field", shape.Event.Name, shape.Field)
	}
	amount, ok := raw.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("event %s field %s is %T", shape.Event.Name, shape.Field, raw)
	}
	return new(big.Int).Set(amount), nil
}
