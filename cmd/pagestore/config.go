package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/pnathan/pagestore/bufferpool"
)

// config holds the settings a demo pool run needs. Values come from (in
// increasing priority) built-in defaults, a config file named by --config,
// and PAGESTORE_-prefixed environment variables.
type config struct {
	NumPages int    `mapstructure:"numpages"`
	Strategy string `mapstructure:"strategy"`
}

func loadConfig(cfgFile string) (config, error) {
	v := viper.New()
	v.SetDefault("numpages", 10)
	v.SetDefault("strategy", "LRU")

	v.SetEnvPrefix("pagestore")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config{}, err
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func parseStrategy(name string) (bufferpool.Strategy, bool) {
	switch strings.ToUpper(name) {
	case "FIFO":
		return bufferpool.FIFO, true
	case "LRU":
		return bufferpool.LRU, true
	case "LFU":
		return bufferpool.LFU, true
	case "LRU-K", "LRUK":
		return bufferpool.LRUK, true
	case "CLOCK":
		return bufferpool.Clock, true
	default:
		return 0, false
	}
}
