package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	verifyPubPath string
	verifySigPath string
	verifyFormat  string
)

var errBadSignature = errors.New("signature verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify an ssh-rsa signature over a file",
	Long:  "Verify a signature produced by 'rsakey sign' (raw or base64) against a public key. The public key may be an authorized_keys line or a private key file. Exits non-zero when the signature does not verify.",
	Example: `  rsakey verify --pub ~/.ssh/id_rsa.pub --sig release.sig release.tar.gz
  rsakey verify --pub id_rsa.pub --sig release.sig release.tar.gz --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPubPath, "pub", "", "Public key file (authorized_keys line or private key)")
	verifyCmd.Flags().StringVar(&verifySigPath, "sig", "", "Signature file")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")
	_ = verifyCmd.MarkFlagRequired("pub")
	_ = verifyCmd.MarkFlagRequired("sig")

	registerCompletion(verifyCmd, completionInput{flagName: "pub", completeFunc: fileCompletion})
	registerCompletion(verifyCmd, completionInput{flagName: "sig", completeFunc: fileCompletion})
	registerCompletion(verifyCmd, completionInput{flagName: "format", completeFunc: fixedCompletion("text", "json")})
}

func runVerify(cmd *cobra.Command, args []string) error {
	passwords, err := loadPasswords()
	if err != nil {
		return err
	}
	pub, _, err := internal.LoadPublicKeyFile(verifyPubPath, passwords)
	if err != nil {
		return withPassphraseHint(err)
	}
	sigData, err := os.ReadFile(verifySigPath)
	if err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}

	result, err := internal.VerifyFile(pub, sigData, args[0])
	if err != nil {
		return err
	}

	switch verifyFormat {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(data))
	case "text":
		if result.Valid {
			fmt.Printf("Signature OK (%s)\n", result.Fingerprint)
		}
	default:
		return fmt.Errorf("unsupported output format %q (use text or json)", verifyFormat)
	}

	if !result.Valid {
		return errBadSignature
	}
	return nil
}
