package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/sensiblebit/rsakey/internal"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	scanList bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan and catalog SSH RSA keys",
	Long:  "Walk a file or directory for RSA private key files and authorized_keys entries, catalog them in SQLite, and print a summary. Encrypted keys no passphrase opens are recorded as locked.",
	Example: `  rsakey scan ~
  rsakey scan /etc/ssh --db keys.db --list`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path to merge into and save (default: in-memory)")
	scanCmd.Flags().BoolVar(&scanList, "list", false, "Print every catalogued key")

	registerCompletion(scanCmd, completionInput{flagName: "db", completeFunc: extensionCompletion("db", "sqlite")})
}

func runScan(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input path %s: %w", inputPath, err)
	}

	catalog, err := internal.NewCatalog()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer catalog.Close()

	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			if err := catalog.LoadFromDisk(dbPath); err != nil {
				return err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("database %s: %w", dbPath, err)
		}
	}

	passwords, err := loadPasswords()
	if err != nil {
		return err
	}

	n, err := internal.ScanPath(cmd.Context(), internal.ScanInput{
		Root:      inputPath,
		Passwords: passwords,
		Catalog:   catalog,
		Skip:      profile.Skip,
	})
	if err != nil {
		return err
	}
	slog.Debug("scan complete", "records", n)

	if scanList {
		keys, err := catalog.GetAllKeys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.Kind == internal.KindLocked {
				fmt.Printf("%-8s %-50s %s\n", k.Kind, "-", k.Path)
				continue
			}
			fmt.Printf("%-8s %-50s %s\n", k.Kind, fmt.Sprintf("%s (%d)", k.Fingerprint, k.BitLength), k.Path)
		}
	}

	summary, err := catalog.GetScanSummary()
	if err != nil {
		return fmt.Errorf("generating summary: %w", err)
	}
	fmt.Print(internal.FormatScanSummary(summary))

	if dbPath != "" {
		return saveCatalog(catalog, dbPath)
	}
	return nil
}

// saveCatalog replaces path with the catalog. VACUUM INTO refuses to
// overwrite, so the copy is written beside it and renamed.
func saveCatalog(catalog *internal.Catalog, path string) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale %s: %w", tmp, err)
	}
	if err := catalog.SaveToDisk(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
