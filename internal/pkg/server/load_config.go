package server

import (
	"strings"

	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/spf13/viper"
)

// LoadConfig loads a named config file (searched as "<name>.yaml" across the
// standard echoryn config locations) into viper's global instance. A
// missing file is not an error: callers run on defaults + flags + env.
func LoadConfig(cfgFile, name string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(name)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./conf")
		viper.AddConfigPath("/etc/echoryn")
	}

	viper.SetEnvPrefix(strings.ToUpper(name))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Warn("[config] failed to read config %q: %v", name, err)
		}
	}
}
