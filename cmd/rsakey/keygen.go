package main

import (
	"fmt"
	"os"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	keygenBits           int
	keygenOutPath        string
	keygenName           string
	keygenComment        string
	keygenEncrypt        bool
	keygenPassphraseFile string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an SSH RSA key pair",
	Long: `Generate a new RSA key pair as a PKCS#1 key file and an authorized_keys line.

Output is printed to stdout by default. Use -o to write <name> and <name>.pub to a directory instead.
With --encrypt or --passphrase-file the key file is encrypted with DES-EDE3-CBC.`,
	Example: `  rsakey keygen
  rsakey keygen --bits 4096 -o ~/.ssh --name id_deploy --encrypt
  rsakey keygen --comment ci@example --passphrase-file pass.txt -o ./keys`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().IntVarP(&keygenBits, "bits", "b", 0, fmt.Sprintf("RSA key size in bits (default: profile or %d)", internal.DefaultBits))
	keygenCmd.Flags().StringVarP(&keygenOutPath, "out-path", "o", "", "Output directory (default: profile keyDir, else stdout)")
	keygenCmd.Flags().StringVarP(&keygenName, "name", "n", "", "Key file name (default: profile keyName or id_rsa)")
	keygenCmd.Flags().StringVarP(&keygenComment, "comment", "C", "", "Comment for the public key line")
	keygenCmd.Flags().BoolVarP(&keygenEncrypt, "encrypt", "e", false, "Prompt for a passphrase to encrypt the key file")
	keygenCmd.Flags().StringVar(&keygenPassphraseFile, "passphrase-file", "", "Read the new passphrase from the first line of a file")

	registerCompletion(keygenCmd, completionInput{flagName: "bits", completeFunc: fixedCompletion("2048", "3072", "4096")})
	registerCompletion(keygenCmd, completionInput{flagName: "out-path", completeFunc: directoryCompletion})
	registerCompletion(keygenCmd, completionInput{flagName: "passphrase-file", completeFunc: fileCompletion})
}

func runKeygen(cmd *cobra.Command, args []string) error {
	opts := internal.KeygenOptions{
		Bits:    firstNonZero(keygenBits, profile.Bits),
		Comment: firstNonEmpty(keygenComment, profile.Comment),
		OutPath: firstNonEmpty(keygenOutPath, profile.KeyDir),
		KeyName: firstNonEmpty(keygenName, profile.KeyName),
	}
	passphrase, err := newPassphrase(keygenPassphraseFile, keygenEncrypt)
	if err != nil {
		return err
	}
	opts.Passphrase = passphrase

	result, err := internal.GenerateKeyFiles(opts)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	if opts.OutPath == "" {
		fmt.Print(result.KeyPEM)
		fmt.Print(result.PubLine)
	} else {
		fmt.Fprintf(os.Stderr, "Private key: %s\n", result.KeyFile)
		fmt.Fprintf(os.Stderr, "Public key:  %s\n", result.PubFile)
	}
	fmt.Fprintf(os.Stderr, "Fingerprint: %s\n", result.Fingerprint)
	return nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
