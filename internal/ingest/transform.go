package ingest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"velocityFee/internal/model"
)

// SwapInputs are the parsed engine inputs for one observed swap.
type SwapInputs struct {
	Pool      model.PoolKey
	Reference *big.Int
	Amount    *big.Int
	Liquidity *big.Int
	Timestamp uint64
}

// FromRecord parses a replayed swap record. The sqrtPriceX96 field
// serves as the reference price; relative moves of the square root
// track relative price moves closely enough for the linear signal.
func FromRecord(record model.SwapRecord) (SwapInputs, error) {
	if record.Pool == "" {
		return SwapInputs{}, fmt.Errorf("missing pool")
	}
	reference, err := parseBigInt(record.SqrtPriceX96)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("sqrt_price_x96: %w", err)
	}
	amount, err := parseBigInt(record.Amount0)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("amount0: %w", err)
	}
	liquidity, err := parseBigInt(record.Liquidity)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("liquidity: %w", err)
	}
	return SwapInputs{
		Pool:      model.NormalizePoolKey(record.Pool),
		Reference: reference,
		Amount:    amount,
		Liquidity: liquidity,
		Timestamp: record.Timestamp,
	}, nil
}

// FromSwapEvent parses a decoded on-chain Swap event.
func FromSwapEvent(pool common.Address, swap model.SwapEventData, blockTime uint64) (SwapInputs, error) {
	reference, err := parseBigInt(swap.SqrtPriceX96)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("sqrt_price_x96: %w", err)
	}
	amount, err := parseBigInt(swap.Amount0)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("amount0: %w", err)
	}
	liquidity, err := parseBigInt(swap.Liquidity)
	if err != nil {
		return SwapInputs{}, fmt.Errorf("liquidity: %w", err)
	}
	return SwapInputs{
		Pool:      model.PoolKeyFromAddress(pool),
		Reference: reference,
		Amount:    amount,
		Liquidity: liquidity,
		Timestamp: blockTime,
	}, nil
}

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
