package execution

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
)

type Encoding string

const (
	EncodingABI    Encoding = "abi"
	EncodingManual Encoding = "manual"
)

// EncodeCall packs method against the contract's bound ABI. When that fails
// the canonical built-in definition is used: keccak256(signature)[:4]
// followed by the packed arguments. Both failing is CodeTxBuild.
func EncodeCall(contract *registry.Contract, method string, args ...any) ([]byte, Encoding, error) {
	data, abiErr := contract.ABI.Pack(method, args...)
	if abiErr == nil {
		return data, EncodingABI, nil
	}
	manual, manualErr := encodeCanonical(contract, method, args...)
	if manualErr != nil {
		return nil, "", clierr.Wrap(clierr.CodeTxBuild, fmt.Sprintf("encode %s.%s", contract.Name, method), errors.Join(abiErr, manualErr))
	}
	return manual, EncodingManual, nil
}

func encodeCanonical(contract *registry.Contract, method string, args ...any) ([]byte, error) {
	def, ok := contract.CanonicalMethod(method)
	if !ok {
		return nil, fmt.Errorf("no canonical definition for %s", method)
	}
	packed, err := def.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s arguments: %w", def.Sig, err)
	}
	selector := crypto.Keccak256([]byte(def.Sig))[:4]
	return append(selector, packed...), nil
}
