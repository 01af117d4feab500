package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSizes are the tree sizes exercised when none are configured.
var DefaultSizes = []int{65536, 262144, 1048576, 4194304, 16777216}

// Load initializes configuration from file and environment variables.
func Load(cfgFile string) {
	// explicit .env loading; a missing .env is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("treebench")
	}

	viper.SetEnvPrefix("TREEBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("bench.binary", "build/bench_compare")
	viper.SetDefault("bench.sizes", DefaultSizes)
	viper.SetDefault("bench.timeout", 300)
	viper.SetDefault("probe.timeout", 10)
	viper.SetDefault("perf.enabled", true)
	viper.SetDefault("perf.stat_timeout", 600)
	viper.SetDefault("perf.record_timeout", 600)
	viper.SetDefault("perf.report_timeout", 60)
	viper.SetDefault("history.path", ".treebench/history.db")
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("verbose", false)

	// Config file is optional; env and flags cover everything.
	_ = viper.ReadInConfig()
}
