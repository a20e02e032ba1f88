package config

import (
	"fmt"
	"math/big"

	"github.com/spf13/viper"

	"velocityFee/internal/model"
)

// PoolParams pairs a pool key with its fee curve parameters.
type PoolParams struct {
	Pool   model.PoolKey
	Params model.Params
}

type paramsSpec struct {
	Mode            string `mapstructure:"mode"`
	BaseBps         uint32 `mapstructure:"base_bps"`
	MinBps          uint32 `mapstructure:"min_bps"`
	MaxBps          uint32 `mapstructure:"max_bps"`
	HalfLifeSeconds uint64 `mapstructure:"half_life_seconds"`
	Target          string `mapstructure:"target"`
	Slope           string `mapstructure:"slope"`
	CapMultiplier   uint64 `mapstructure:"cap_multiplier"`
}

type paramsFile struct {
	Defaults paramsSpec            `mapstructure:"defaults"`
	Pools    map[string]paramsSpec `mapstructure:"pools"`
}

// LoadPoolParams reads a pool parameters file (YAML or JSON). Each pool
// entry starts from the mode defaults; only the fields it sets are
// overridden, and the result must validate.
func LoadPoolParams(path string) ([]PoolParams, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}

	var file paramsFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse params file: %w", err)
	}

	records := make([]PoolParams, 0, len(file.Pools))
	for pool, spec := range file.Pools {
		merged := mergeSpec(file.Defaults, spec)
		params, err := specToParams(merged)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool, err)
		}
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool, err)
		}
		records = append(records, PoolParams{
			Pool:   model.NormalizePoolKey(pool),
			Params: params,
		})
	}

	return records, nil
}

// mergeSpec fills unset pool fields from the file defaults.
func mergeSpec(defaults, spec paramsSpec) paramsSpec {
	if spec.Mode == "" {
		spec.Mode = defaults.Mode
	}
	if spec.BaseBps == 0 {
		spec.BaseBps = defaults.BaseBps
	}
	if spec.MinBps == 0 {
		spec.MinBps = defaults.MinBps
	}
	if spec.MaxBps == 0 {
		spec.MaxBps = defaults.MaxBps
	}
	if spec.HalfLifeSeconds == 0 {
		spec.HalfLifeSeconds = defaults.HalfLifeSeconds
	}
	if spec.Target == "" {
		spec.Target = defaults.Target
	}
	if spec.Slope == "" {
		spec.Slope = defaults.Slope
	}
	if spec.CapMultiplier == 0 {
		spec.CapMultiplier = defaults.CapMultiplier
	}
	return spec
}

func specToParams(spec paramsSpec) (model.Params, error) {
	mode, err := model.ParseMode(spec.Mode)
	if err != nil {
		return model.Params{}, err
	}

	params := model.DefaultParams(mode)
	if spec.BaseBps != 0 {
		params.BaseBps = spec.BaseBps
	}
	if spec.MinBps != 0 {
		params.MinBps = spec.MinBps
	}
	if spec.MaxBps != 0 {
		params.MaxBps = spec.MaxBps
	}
	if spec.HalfLifeSeconds != 0 {
		params.DecayHalfLifeSeconds = spec.HalfLifeSeconds
	}
	if spec.Target != "" {
		target, ok := new(big.Int).SetString(spec.Target, 10)
		if !ok {
			return model.Params{}, fmt.Errorf("invalid target: %s", spec.Target)
		}
		params.Target = target
	}
	if spec.Slope != "" {
		slope, ok := new(big.Int).SetString(spec.Slope, 10)
		if !ok {
			return model.Params{}, fmt.Errorf("invalid slope: %s", spec.Slope)
		}
		params.Slope = slope
	}
	if spec.CapMultiplier != 0 {
		params.CapMultiplier = spec.CapMultiplier
	}

	return params, nil
}
