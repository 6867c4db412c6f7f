package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gelfship",
	Short: "Ship log lines to a GELF collector over UDP",
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default gelfship.{yaml,json,toml} in . or /etc/gelfship)")

	rootCmd.AddCommand(shipCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig initializes the configuration using Viper. It reads from the
// specified config file or defaults to gelfship.{yaml,json,toml} in the
// working directory or /etc/gelfship. Environment variables with the prefix
// GELFSHIP_ can override config values.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gelfship")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/gelfship/")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GELFSHIP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFile != "" {
				cobra.CheckErr(fmt.Errorf("config file not found: %w", err))
			}
		} else {
			cobra.CheckErr(fmt.Errorf("error reading config file: %w", err))
		}
	}
}
