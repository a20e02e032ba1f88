package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"velocityFee/internal/model"
)

// SwapDecoder decodes Uniswap V3 style Swap logs into the fields the
// tier engine consumes.
type SwapDecoder struct {
	event abi.Event
}

// NewSwapDecoder builds a Swap decoder from the embedded pool ABI.
func NewSwapDecoder() (*SwapDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	event, ok := parsed.Events["Swap"]
	if !ok {
		return nil, fmt.Errorf("pool abi is missing the Swap event")
	}
	return &SwapDecoder{event: event}, nil
}

// Topic0 returns the Swap event signature hash for log filtering.
func (d *SwapDecoder) Topic0() common.Hash {
	return d.event.ID
}

// Matches reports whether the log is a Swap event.
func (d *SwapDecoder) Matches(log types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == d.event.ID
}

// Decode unpacks a Swap log.
func (d *SwapDecoder) Decode(log types.Log) (model.SwapEventData, error) {
	if !d.Matches(log) {
		return model.SwapEventData{}, fmt.Errorf("not a swap log")
	}
	if len(log.Topics) != 3 {
		return model.SwapEventData{}, fmt.Errorf("expected 3 topics, got %d", len(log.Topics))
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(d.event.Inputs), log.Topics[1:]); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapEventData{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEventData{}, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return model.SwapEventData{}, err
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SqrtPriceX96: sqrtPrice.String(),
		Liquidity:    liquidity.String(),
		Tick:         tick,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asBigInt(value interface{}) (*big.Int, error) {
	out, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int, got %T", value)
	}
	return out, nil
}

func int24FromBig(value *big.Int) (int32, error) {
	if value == nil {
		return 0, fmt.Errorf("nil tick")
	}
	if !value.IsInt64() {
		return 0, fmt.Errorf("tick out of range: %s", value)
	}
	tick := value.Int64()
	if tick < -8388608 || tick > 8388607 {
		return 0, fmt.Errorf("tick out of int24 range: %d", tick)
	}
	return int32(tick), nil
}
