// Package config binds the simulation's runtime flags/environment
// through viper and layers a static airline-roster override file (TOML)
// over the compiled-in roster, grounded on the pack's
// billglover-go-adsb-console (viper) and stignarnia-co-atc (BurntSushi/
// toml) dependency choices.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/atcsim/atcsim/internal/airline"
)

// Config is the fully-resolved runtime configuration (spec §6 Simulation
// duration, §9 master seed).
type Config struct {
	Duration      time.Duration
	Seed          int64
	IPCAddr       string
	LogLevel      string
	DashboardAddr string
	RosterFile    string
}

// Load builds a Config from defaults and environment variables prefixed
// ATCSIM_ (e.g. ATCSIM_DURATION). A value set directly on v with v.Set
// takes precedence over both. No config file is read and no command-line
// flags are bound.
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("duration", "300s")
	v.SetDefault("seed", int64(1))
	v.SetDefault("ipc_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("dashboard_addr", "")
	v.SetDefault("roster_file", "")

	v.SetEnvPrefix("ATCSIM")
	v.AutomaticEnv()

	durationStr := v.GetString("duration")
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid duration %q: %w", durationStr, err)
	}

	return Config{
		Duration:      duration,
		Seed:          v.GetInt64("seed"),
		IPCAddr:       v.GetString("ipc_addr"),
		LogLevel:      v.GetString("log_level"),
		DashboardAddr: v.GetString("dashboard_addr"),
		RosterFile:    v.GetString("roster_file"),
	}, nil
}

// rosterOverrideFile is the decoded shape of an optional TOML file
// layered over the compiled-in roster (spec §3's roster is otherwise
// fixed and bit-exact; overrides exist only for local experimentation,
// never for the core's defaults).
type rosterOverrideFile struct {
	Airline []rosterOverrideEntry `toml:"airline"`
}

type rosterOverrideEntry struct {
	Name      string `toml:"name"`
	FleetSize int    `toml:"fleet_size"`
	ActiveCap int    `toml:"active_cap"`
}

// LoadRosterOverrides reads a TOML file of fleet-size/active-cap overrides
// keyed by airline name and applies them over base, returning a new
// roster slice. base is never mutated.
func LoadRosterOverrides(path string, base []airline.RosterEntry) ([]airline.RosterEntry, error) {
	if path == "" {
		return base, nil
	}

	var overrides rosterOverrideFile
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		return nil, fmt.Errorf("config: decoding roster overrides %q: %w", path, err)
	}

	byName := make(map[string]rosterOverrideEntry, len(overrides.Airline))
	for _, o := range overrides.Airline {
		byName[o.Name] = o
	}

	out := make([]airline.RosterEntry, len(base))
	copy(out, base)
	for i, entry := range out {
		if o, ok := byName[entry.Name]; ok {
			if o.FleetSize > 0 {
				out[i].FleetSize = o.FleetSize
			}
			if o.ActiveCap > 0 {
				out[i].ActiveCap = o.ActiveCap
			}
		}
	}
	return out, nil
}
