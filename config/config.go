// Package config loads venomd's multi-channel TOML configuration.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/AlephTX/venom/shm"
)

// Config is the top-level venomd configuration: one shared-memory channel
// per named entry.
type Config struct {
	Channels map[string]ChannelConfig `toml:"channels"`
}

// ChannelConfig mirrors shm.ChannelConfig with the TOML defaults named in
// the channel's external configuration contract, generalized from the
// teacher's Config.Exchanges map[string]ExchangeConfig (one entry per
// exchange feeder) to one entry per shared-memory channel.
type ChannelConfig struct {
	Enabled    bool   `toml:"enabled"`
	DataSize   uint64 `toml:"data_size"`
	CmdSlots   uint64 `toml:"cmd_slots"`
	MaxClients uint64 `toml:"max_clients"`
}

const (
	defaultDataSize   = 65536
	defaultCmdSlots   = 32
	maxCmdSlots       = 64
	defaultMaxClients = 16
)

// ShmConfig returns the shm.ChannelConfig this entry describes, filling in
// defaults for any zero field.
func (c ChannelConfig) ShmConfig() shm.ChannelConfig {
	out := shm.ChannelConfig{
		DataSize:   c.DataSize,
		CmdSlots:   c.CmdSlots,
		MaxClients: c.MaxClients,
	}
	if out.DataSize == 0 {
		out.DataSize = defaultDataSize
	}
	if out.CmdSlots == 0 {
		out.CmdSlots = defaultCmdSlots
	}
	if out.CmdSlots > maxCmdSlots {
		out.CmdSlots = maxCmdSlots
	}
	if out.MaxClients == 0 {
		out.MaxClients = defaultMaxClients
	}
	return out
}

// Load reads and parses a venom.toml file at path. A .env file in the
// current working directory is loaded first, if present, so environment
// overrides read after Load (such as venomd's VENOM_SHM_NAME_<channel>) can
// be supplied without editing the TOML (mirrors the teacher's ALEPH_FEEDER_CONFIG/ALEPH_SHM
// env-override pattern in main.go).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}
