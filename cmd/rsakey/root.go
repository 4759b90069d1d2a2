package main

import (
	"os"
	"path/filepath"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	configPath   string
	passwordList string
	passwordFile string

	// profile holds config file defaults, loaded before any subcommand runs.
	profile = internal.DefaultProfile()
)

var rootCmd = &cobra.Command{
	Use:   "rsakey",
	Short: "SSH RSA key tool",
	Long:  "Generate, inspect, re-encrypt and catalog SSH RSA keys, and sign or verify files with them.",
	// Errors are printed once by main.
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetupLogger(logLevel)
		path, optional := configPath, false
		if path == "" {
			path, optional = defaultConfigPath(), true
		}
		p, err := internal.LoadProfile(path, optional)
		if err != nil {
			return err
		}
		profile = p
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML profile (default: $XDG_CONFIG_HOME/rsakey/config.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&passwordList, "passwords", "p", "", "Comma-separated passphrases to try on encrypted keys")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passphrases, one per line")

	registerCompletion(rootCmd, completionInput{flagName: "log-level", completeFunc: fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{flagName: "config", completeFunc: extensionCompletion("yaml", "yml")})
	registerCompletion(rootCmd, completionInput{flagName: "password-file", completeFunc: fileCompletion})

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(scanCmd)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rsakey", "config.yaml")
}
