package ingest

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"velocityFee/internal/model"
)

func TestFromRecord(t *testing.T) {
	record := model.SwapRecord{
		Pool:         "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		Timestamp:    1700000000,
		SqrtPriceX96: "123456789",
		Amount0:      "-1000",
		Liquidity:    "987654321",
	}

	inputs, err := FromRecord(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs.Pool != model.PoolKey("0xabcdef0123456789abcdef0123456789abcdef01") {
		t.Errorf("pool not normalized: %s", inputs.Pool)
	}
	if inputs.Reference.String() != "123456789" {
		t.Errorf("reference mismatch: %s", inputs.Reference)
	}
	if inputs.Amount.String() != "-1000" {
		t.Errorf("amount mismatch: %s", inputs.Amount)
	}
	if inputs.Liquidity.String() != "987654321" {
		t.Errorf("liquidity mismatch: %s", inputs.Liquidity)
	}
	if inputs.Timestamp != 1700000000 {
		t.Errorf("timestamp mismatch: %d", inputs.Timestamp)
	}
}

func TestFromRecordMissingPool(t *testing.T) {
	if _, err := FromRecord(model.SwapRecord{Timestamp: 1}); err == nil {
		t.Fatalf("expected error for missing pool")
	}
}

func TestFromRecordInvalidNumber(t *testing.T) {
	record := model.SwapRecord{
		Pool:         "0xabcdef0123456789abcdef0123456789abcdef01",
		SqrtPriceX96: "not-a-number",
	}
	if _, err := FromRecord(record); err == nil {
		t.Fatalf("expected error for invalid sqrt price")
	}
}

func TestFromRecordEmptyFieldsDefaultToZero(t *testing.T) {
	record := model.SwapRecord{Pool: "0xabcdef0123456789abcdef0123456789abcdef01", Timestamp: 5}
	inputs, err := FromRecord(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs.Reference.Sign() != 0 || inputs.Amount.Sign() != 0 || inputs.Liquidity.Sign() != 0 {
		t.Fatalf("empty numeric fields should parse as zero")
	}
}

func TestFromSwapEvent(t *testing.T) {
	pool := common.HexToAddress("0xABCDEF0123456789abcdef0123456789ABCDEF01")
	swap := model.SwapEventData{
		Amount0:      "2000",
		SqrtPriceX96: "555",
		Liquidity:    "777",
	}

	inputs, err := FromSwapEvent(pool, swap, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs.Pool != model.PoolKey("0xabcdef0123456789abcdef0123456789abcdef01") {
		t.Errorf("pool mismatch: %s", inputs.Pool)
	}
	if inputs.Reference.String() != "555" || inputs.Amount.String() != "2000" || inputs.Liquidity.String() != "777" {
		t.Errorf("field mismatch: %+v", inputs)
	}
	if inputs.Timestamp != 42 {
		t.Errorf("timestamp mismatch: %d", inputs.Timestamp)
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0xabcdef0123456789abcdef0123456789abcdef01 ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one address, got %d", len(got))
	}

	if _, err := ParseAddresses([]string{"nope"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
