package main

import (
	"fmt"
	"os"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	passwdNewPassphraseFile string
	passwdDecrypt           bool
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <keyfile>",
	Short: "Change or remove the passphrase of a key file",
	Long:  "Load an RSA key file with the current passphrase and rewrite it in place under a new passphrase, or unencrypted with --decrypt.",
	Example: `  rsakey passwd ~/.ssh/id_rsa
  rsakey passwd id_rsa --passwords old --new-passphrase-file new.txt
  rsakey passwd id_rsa --passwords old --decrypt`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswd,
}

func init() {
	passwdCmd.Flags().StringVar(&passwdNewPassphraseFile, "new-passphrase-file", "", "Read the new passphrase from the first line of a file")
	passwdCmd.Flags().BoolVar(&passwdDecrypt, "decrypt", false, "Write the key file without encryption")
	passwdCmd.MarkFlagsMutuallyExclusive("new-passphrase-file", "decrypt")

	registerCompletion(passwdCmd, completionInput{flagName: "new-passphrase-file", completeFunc: fileCompletion})
}

func runPasswd(cmd *cobra.Command, args []string) error {
	path := args[0]
	key, err := loadKey(path)
	if err != nil {
		return err
	}

	var passphrase []byte
	if !passwdDecrypt {
		passphrase, err = newPassphrase(passwdNewPassphraseFile, true)
		if err != nil {
			return err
		}
	}

	if err := internal.RewriteKeyFile(path, key, passphrase); err != nil {
		return err
	}
	if len(passphrase) == 0 {
		fmt.Fprintf(os.Stderr, "Key file %s is now unencrypted\n", path)
	} else {
		fmt.Fprintf(os.Stderr, "Passphrase changed for %s\n", path)
	}
	return nil
}
