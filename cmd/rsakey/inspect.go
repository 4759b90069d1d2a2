package main

import (
	"fmt"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display RSA key information",
	Long:  "Show the size, exponent, encryption and fingerprints of an RSA private key file or of every ssh-rsa entry in an authorized_keys file.",
	Example: `  rsakey inspect ~/.ssh/id_rsa
  rsakey inspect ~/.ssh/authorized_keys
  rsakey inspect id_rsa --passwords secret --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
	registerCompletion(inspectCmd, completionInput{flagName: "format", completeFunc: fixedCompletion("text", "json")})
}

func runInspect(cmd *cobra.Command, args []string) error {
	passwords, err := loadPasswords()
	if err != nil {
		return err
	}

	results, err := internal.InspectFile(args[0], passwords)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, inspectFormat)
	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}
