package main

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAPIHost  = "0.0.0.0"
	defaultAPIPort  = 9090
	defaultLogLevel = "info"
	defaultLogOutput = "stdout"
	defaultLogDisableAPI = false
	defaultUserDBName = "deck-agent"
)

// Version is the build version, set at build time with -ldflags.
var Version = "dev"

// Config holds the coordinator's application configuration.
type Config struct {
	API    APIConfig
	Log    LogConfig
	UserDB UserDBConfig
}

// APIConfig holds the HTTP server configuration.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"`
	DisableAPI bool   `mapstructure:"disableAPI"` // disable API request/response debug logging
}

// UserDBConfig selects the account collaborator backing userdb.Repository.
// When URI is empty the coordinator falls back to an in-memory repository.
type UserDBConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// loadConfig loads configuration from flags, environment variables, and
// defaults, following the teacher's viper+pflag layering.
func loadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("log.disableAPI", defaultLogDisableAPI)
	v.SetDefault("userdb.name", defaultUserDBName)

	flag.StringP("api.host", "h", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.Bool("log.disableAPI", defaultLogDisableAPI, "disable API request/response debug logging")
	flag.String("userdb.uri", "", "mongodb connection URI for the user account collaborator (empty uses an in-memory store)")
	flag.String("userdb.name", defaultUserDBName, "mongodb database name for the user account collaborator")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "deck-agent v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: deck-agent [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, DECKAGENT_API_PORT or DECKAGENT_USERDB_URI\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("DECKAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}
