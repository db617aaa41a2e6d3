package fusiond

import (
	"github.com/waxfusion/fusiond/src/fusion"
	"github.com/waxfusion/fusiond/src/waxapi"
)

type Config struct {
	PromPort        string `yaml:"prom_port"`
	APIPort         string `yaml:"api_port"`
	HealthCheckPort string `yaml:"health_check_port"`
	PostgresConfig  string `yaml:"postgres"`
	RedisAddress    string `yaml:"redis"`
	LogLevel        string `yaml:"log_level"`

	// GenesisTime anchors the epoch and farm grids on a fresh database.
	// Ignored once a snapshot exists.
	GenesisTime uint64 `yaml:"genesis_time"`

	Chain    waxapi.ChainConfig `yaml:"chain"`
	Protocol fusion.Settings    `yaml:"protocol"`
}
