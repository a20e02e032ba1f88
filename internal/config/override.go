package config

import (
	"github.com/spf13/pflag"
)

// OverrideConfig holds configuration for the override command.
type OverrideConfig struct {
	Engine       EngineConfig
	Pools        []string
	Tiers        []uint
	At           string
	Reset        bool
	NewAuthority string
}

// LoadOverride merges config file, environment variables, and flags into OverrideConfig.
func LoadOverride(cfgFile string, flags *pflag.FlagSet) (OverrideConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return OverrideConfig{}, err
	}

	tiers := make([]uint, 0)
	for _, raw := range v.GetIntSlice("tier") {
		if raw >= 0 {
			tiers = append(tiers, uint(raw))
		}
	}

	cfg := OverrideConfig{
		Engine:       engineConfig(v),
		Pools:        getStringSlice(v, "pool"),
		Tiers:        tiers,
		At:           v.GetString("at"),
		Reset:        v.GetBool("reset"),
		NewAuthority: v.GetString("new-authority"),
	}

	return cfg, nil
}
