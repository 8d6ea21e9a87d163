// Package main is the bin2ir CLI: decode a raw binary image into a CFG and
// reconstructed stack variables, and inspect the decode cache. Persistent
// flags are bound by cobra; config is loaded through viper in
// cobra.OnInitialize before any subcommand runs.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bin2ir",
	Short: "Lift a binary image into a typed IR with reconstructed stack variables",
	Long: `bin2ir drives an incremental control-flow decode of a raw binary image,
growing a CFG and IR module from a worklist of jump targets, then reconstructs
per-function stack-local variables from constant stack-pointer-relative
accesses.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .bin2ir.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "decode cache directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: crit|error|warn|info|debug|trace (overrides config)")
	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bin2ir")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BIN2IR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		log.Info("using config file", "path", viper.ConfigFileUsed())
	}
}

// setupLogging wires go-ethereum's structured logger to a terminal handler
// on stderr at the configured verbosity.
func setupLogging(levelName string) {
	level := log.LevelInfo
	switch strings.ToLower(levelName) {
	case "crit":
		level = log.LevelCrit
	case "error":
		level = log.LevelError
	case "warn":
		level = log.LevelWarn
	case "debug":
		level = log.LevelDebug
	case "trace":
		level = log.LevelTrace
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, true)
	log.SetDefault(log.NewLogger(handler))
}
