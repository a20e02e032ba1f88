package model

// SwapEventData is the decoded Swap event payload.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// SwapRecord is the JSON line format consumed by replay: one observed
// swap with the fields the tier engine needs.
type SwapRecord struct {
	ChainID      uint64 `json:"chain_id"`
	BlockNumber  uint64 `json:"block_number"`
	TxHash       string `json:"tx_hash"`
	LogIndex     uint64 `json:"log_index"`
	Pool         string `json:"pool"`
	Timestamp    uint64 `json:"timestamp"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Amount0      string `json:"amount0"`
	Liquidity    string `json:"liquidity"`
}
