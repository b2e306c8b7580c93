package status

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Address string
	Port    string
	Enabled bool
}

func DefaultConfig() Config {
	return Config{
		Address: "0.0.0.0",
		Port:    "26660",
		Enabled: false,
	}
}

func (cfg *Config) Validate() error {
	if ip := net.ParseIP(cfg.Address); ip == nil {
		return fmt.Errorf("nodebuilder/status: invalid listen address format: %s", cfg.Address)
	}
	_, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return fmt.Errorf("nodebuilder/status: invalid port: %s", err.Error())
	}
	return nil
}
