// Package cmd implements the usiorchd command-line surface: it wires
// cobra commands onto pkg/orchestrator, bootstrapping an Engine
// Orchestrator's catalog and saved preferences around each invocation.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	flagEnginesRoot string
	flagPrefsFile   string
	flagLogLevel    string
)

// RootCmd is the base usiorchd command.
var RootCmd = &cobra.Command{
	Use:   "usiorchd",
	Short: "Discover, assign, and drive USI shogi engines",
	Long: `
usiorchd discovers USI-speaking shogi engines on disk, assigns them to
the black, white, and analysis roles, and drives position updates, move
requests, and one-off analysis against them.
`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return fmt.Errorf("parsing log level: %w", err)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.usiorchd.yaml)")
	RootCmd.PersistentFlags().StringVar(&flagEnginesRoot, "engines-root", "./engines", "root directory containing one subdirectory per engine")
	RootCmd.PersistentFlags().StringVar(&flagPrefsFile, "prefs-file", "./usiorchd-prefs.json", "path to the role preference file")
	RootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlags(RootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".usiorchd")
	}

	viper.SetEnvPrefix("USIORCHD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

func enginesRoot() string {
	root := viper.GetString("engines-root")
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}

func prefsFile() string {
	return viper.GetString("prefs-file")
}
