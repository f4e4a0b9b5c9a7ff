package server

import (
	"fmt"
	"strconv"
)

// Config holds configuration for the optional HTTP status server.
type Config struct {
	// Enabled starts the status server next to the pollers.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
}

// Validate checks the listen port when the server is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Port)
	}
	return nil
}

// Address returns the listen address.
func (c Config) Address() string {
	return ":" + c.Port
}
