package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Block explorer transaction URL prefixes by chain ID.
var explorerTxURLByChainID = map[int64]string{
	1:     "https://etherscan.io/tx/",
	80084: "https://bartio.beratrail.io/tx/",
	80094: "https://beratrail.io/tx/",
	80069: "https://bepolia.beratrail.io/tx/",
}

// ExplorerTxURL returns a link to hash on the chain's explorer, or "" when the
// chain is unknown.
func ExplorerTxURL(chainID int64, hash common.Hash) string {
	prefix, ok := explorerTxURLByChainID[chainID]
	if !ok {
		return ""
	}
	return prefix + strings.ToLower(hash.Hex())
}
