// main.go sets up the command-line interface for keyops using the Cobra
// library. It defines the root command, its subcommands (invoke, token),
// configuration loading, and the entry point for execution.
package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexadamm/keyops-vault-go/internal/logging"
)

var version = "dev" // this will be set by the linker
var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd = newRootCmd()

	// Defaults, overridable by config file, environment, and flags.
	viper.SetDefault("vault.address", "http://127.0.0.1:8200")
	viper.SetDefault("timeout", "30s")
}

// newRootCmd creates and configures a new root cobra command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyops",
		Short: "keyops performs cryptographic key operations against a remote key service.",
		Long: `keyops builds, validates, and dispatches key operation requests
(encrypt, decrypt, wrap, unwrap) against a key named within a standard
vault or a dedicated hardware-backed cluster. The backend performs the
cryptography; keyops only decides what bytes go to which operation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetDebug(viper.GetBool("debug"))
		},
	}

	cmd.AddCommand(invokeCmd)
	cmd.AddCommand(tokenCmd)

	cmd.Version = version

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.keyops.yaml or ./keyops.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	return cmd
}

// initConfig reads in a configuration file and environment variables.
// Viper searches for .keyops.yaml in the home and current directories and
// binds environment variables prefixed with KEYOPS.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".keyops")
	}

	viper.SetEnvPrefix("KEYOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logging.Warnf("failed to read config: %v", err)
		}
	}
}
