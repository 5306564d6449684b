package device

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-avif/internal/stream"
)

// Config holds tunables for container reading.
type Config struct {
	BufferSize int  `mapstructure:"buffer_size"`
	ChunkSize  int  `mapstructure:"chunk_size"`
	Strict     bool `mapstructure:"strict"`
}

// LoadConfig loads reader configuration using Viper.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("avif-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.avif")
	viper.AddConfigPath("/etc/avif")

	// Set defaults
	viper.SetDefault("buffer_size", stream.DefaultBufferSize)
	viper.SetDefault("chunk_size", stream.DefaultChunkSize)
	viper.SetDefault("strict", true)

	// Allow environment variables
	viper.SetEnvPrefix("AVIF")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
