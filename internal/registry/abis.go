package registry

// Built-in ABI fragments for the three protocol contracts. They double as the
// canonical method definitions used for manual calldata encoding when a
// user-supplied ABI cannot pack a call.
const (
	erc20Fragment = `
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}`

	HoneyABI = `[` + erc20Fragment + `
	]`

	LocksABI = `[` + erc20Fragment + `,
		{"name":"floorPrice","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"marketPrice","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"buy","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"maxAmount","type":"uint256"}],"outputs":[]},
		{"name":"Buy","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
	]`

	PorridgeABI = `[` + erc20Fragment + `,
		{"name":"userBorrowLimit","type":"function","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"userBorrowedHoney","type":"function","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"userClaimablePrg","type":"function","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"userStakedLocks","type":"function","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"borrow","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
		{"name":"claim","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[]},
		{"name":"stir","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
		{"name":"stake","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
		{"name":"Borrow","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
		{"name":"Claim","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
		{"name":"Stir","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
		{"name":"Stake","type":"event","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
	]`
)

// AssumedEventSignature is the parameter list the built-in Borrow, Claim,
// Stir, Stake and Buy events are declared with. A deployment emitting a
// different signature needs its ABI files in ABI_DIR, otherwise no log
// matches the event topic.
const AssumedEventSignature = "(address indexed user, uint256 amount)"

// ABI file names looked up inside a configured ABI directory.
const (
	HoneyABIFile    = "abi_honey.json"
	LocksABIFile    = "abi_locks.json"
	PorridgeABIFile = "abi_porridge.json"
)
