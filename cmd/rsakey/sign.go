package main

import (
	"fmt"
	"os"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	signKeyPath string
	signOutPath string
	signBase64  bool
)

var signCmd = &cobra.Command{
	Use:   "sign <file>",
	Short: "Sign a file with an RSA private key",
	Long: `Sign the contents of a file with ssh-rsa (PKCS#1 v1.5, SHA-1) and write the SSH signature blob.

The blob is written as base64 text when --base64 is set or stdout is a terminal, and as raw bytes otherwise.`,
	Example: `  rsakey sign --key ~/.ssh/id_rsa release.tar.gz > release.sig
  rsakey sign --key id_rsa --base64 -o release.sig.txt release.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVarP(&signKeyPath, "key", "k", "", "Private key file")
	signCmd.Flags().StringVarP(&signOutPath, "out", "o", "", "Write the signature to a file (default: stdout)")
	signCmd.Flags().BoolVar(&signBase64, "base64", false, "Write the signature as base64 text")
	_ = signCmd.MarkFlagRequired("key")

	registerCompletion(signCmd, completionInput{flagName: "key", completeFunc: fileCompletion})
	registerCompletion(signCmd, completionInput{flagName: "out", completeFunc: fileCompletion})
}

func runSign(cmd *cobra.Command, args []string) error {
	key, err := loadKey(signKeyPath)
	if err != nil {
		return err
	}
	sig, err := internal.SignFile(key, args[0])
	if err != nil {
		return err
	}

	if signOutPath != "" {
		if signBase64 {
			sig = internal.EncodeSignatureText(sig)
		}
		if err := os.WriteFile(signOutPath, sig, 0644); err != nil {
			return fmt.Errorf("writing signature: %w", err)
		}
		return nil
	}

	if signBase64 || internal.IsTerminal(os.Stdout) {
		sig = internal.EncodeSignatureText(sig)
	}
	_, err = os.Stdout.Write(sig)
	return err
}
