// Package signer loads the keeper's account key and signs its transactions.
// The account is fixed for the life of the process; every read is addressed
// from it and every transaction is signed by it.
package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is what the chain client needs from an account.
type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
}

var _ Signer = (*LocalSigner)(nil)
