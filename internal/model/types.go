package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Account   string    `json:"account,omitempty"`
	ChainID   int64     `json:"chain_id,omitempty"`
}

// Amounts below are decimal token strings with 18 decimals resolved.

type TokenView struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Address     string `json:"address"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Balance     string `json:"balance"`
}

type StatusView struct {
	Account       string      `json:"account"`
	ChainID       int64       `json:"chain_id"`
	Tokens        []TokenView `json:"tokens"`
	BorrowLimit   string      `json:"borrow_limit"`
	BorrowedHoney string      `json:"borrowed_honey"`
	ClaimablePrg  string      `json:"claimable_prg"`
	StakedLocks   string      `json:"staked_locks"`
	FloorPrice    string      `json:"floor_price"`
	MarketPrice   string      `json:"market_price"`
}

type StirPlanView struct {
	Mode            string `json:"mode"`
	StirAmount      string `json:"stir_amount"`
	HoneyUsed       string `json:"honey_used"`
	HoneyRequired   string `json:"honey_required"`
	Percentage      int64  `json:"percentage"`
	UsesWalletHoney bool   `json:"uses_wallet_honey"`
}

type SwapPlanView struct {
	Enabled        bool   `json:"enabled"`
	SwapAll        bool   `json:"swap_all"`
	HoneyToSwap    string `json:"honey_to_swap"`
	MarketPrice    string `json:"market_price"`
	EstimatedLocks string `json:"estimated_locks"`
}

type PlanView struct {
	Account         string       `json:"account"`
	BorrowLimit     string       `json:"borrow_limit"`
	BorrowThreshold string       `json:"borrow_threshold"`
	WouldSkip       bool         `json:"would_skip"`
	ClaimablePrg    string       `json:"claimable_prg"`
	PrgAfterClaim   string       `json:"prg_after_claim"`
	FloorPrice      string       `json:"floor_price"`
	HoneyBalance    string       `json:"honey_balance"`
	Stir            StirPlanView `json:"stir"`
	Swap            SwapPlanView `json:"swap"`
}
