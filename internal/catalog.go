package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/sensiblebit/rsakey"
	_ "modernc.org/sqlite"
)

// Catalog is an SQLite record of the RSA keys found by a scan.
type Catalog struct {
	*sqlx.DB
}

// KeyRecord is one catalogued key. Only public material is stored.
type KeyRecord struct {
	Fingerprint    string `db:"fingerprint"`
	MD5            string `db:"md5_fingerprint"`
	BitLength      int    `db:"bit_length"`
	PublicExponent string `db:"public_exponent"`
	Kind           string `db:"kind"`
	Encrypted      bool   `db:"encrypted"`
	Comment        string `db:"comment"`
	Path           string `db:"path"`
	PublicBlob     []byte `db:"public_blob"`
}

// Key kinds stored in KeyRecord.Kind.
const (
	KindPrivate = "private"
	KindPublic  = "public"
	// KindLocked is an encrypted private key none of the passphrase
	// candidates opened. Only the path is known.
	KindLocked = "locked"
)

// NewKeyRecord builds a record for pub found at path.
func NewKeyRecord(pub *rsakey.PublicKey, kind, path, comment string, encrypted bool) KeyRecord {
	return KeyRecord{
		Fingerprint:    pub.FingerprintSHA256(),
		MD5:            pub.Fingerprint(),
		BitLength:      pub.BitLen(),
		PublicExponent: pub.E().String(),
		Kind:           kind,
		Encrypted:      encrypted,
		Comment:        comment,
		Path:           path,
		PublicBlob:     pub.Marshal(),
	}
}

// NewLockedRecord builds a record for an encrypted key file that could not
// be opened.
func NewLockedRecord(path string) KeyRecord {
	return KeyRecord{Kind: KindLocked, Encrypted: true, Path: path}
}

// NewCatalog creates an in-memory catalog. Use SaveToDisk and LoadFromDisk
// to persist or restore it.
func NewCatalog() (*Catalog, error) {
	// Each :memory: connection is a separate database, so the pool is pinned
	// to one connection. PRAGMAs in the DSN apply on reconnect.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{DB: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	slog.Debug("catalog initialized")
	return c, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.Exec(`
		CREATE TABLE IF NOT EXISTS keys (
			fingerprint     TEXT NOT NULL,
			md5_fingerprint TEXT NOT NULL,
			bit_length      INTEGER NOT NULL,
			public_exponent TEXT NOT NULL,
			kind            TEXT NOT NULL,
			encrypted       BOOLEAN NOT NULL,
			comment         TEXT NOT NULL,
			path            TEXT NOT NULL,
			public_blob     BLOB,
			PRIMARY KEY(fingerprint, path)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating keys table: %w", err)
	}

	_, err = c.Exec(`CREATE INDEX IF NOT EXISTS idx_keys_fingerprint ON keys (fingerprint);`)
	if err != nil {
		return fmt.Errorf("creating fingerprint index on keys table: %w", err)
	}
	return nil
}

// InsertKey records a key, ignoring a repeat of the same key at the same path.
func (c *Catalog) InsertKey(key KeyRecord) error {
	_, err := c.NamedExec(`
		INSERT OR IGNORE INTO keys (fingerprint, md5_fingerprint, bit_length, public_exponent, kind, encrypted, comment, path, public_blob)
		VALUES (:fingerprint, :md5_fingerprint, :bit_length, :public_exponent, :kind, :encrypted, :comment, :path, :public_blob)
	`, key)
	if err != nil {
		return fmt.Errorf("inserting key: %w", err)
	}
	return nil
}

// GetKey returns the first record with the given SHA-256 fingerprint, or nil
// when there is none.
func (c *Catalog) GetKey(fingerprint string) (*KeyRecord, error) {
	var key KeyRecord
	err := c.Get(&key, "SELECT * FROM keys WHERE fingerprint = ? ORDER BY path LIMIT 1", fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting key: %w", err)
	}
	return &key, nil
}

// GetKeyPaths returns every path a key with the given fingerprint was found at.
func (c *Catalog) GetKeyPaths(fingerprint string) ([]string, error) {
	var paths []string
	if err := c.Select(&paths, "SELECT path FROM keys WHERE fingerprint = ? ORDER BY path", fingerprint); err != nil {
		return nil, fmt.Errorf("getting key paths: %w", err)
	}
	return paths, nil
}

// GetAllKeys returns all records ordered by path.
func (c *Catalog) GetAllKeys() ([]KeyRecord, error) {
	var keys []KeyRecord
	if err := c.Select(&keys, "SELECT * FROM keys ORDER BY path"); err != nil {
		return nil, fmt.Errorf("getting all keys: %w", err)
	}
	return keys, nil
}

// SaveToDisk writes the in-memory catalog to path with VACUUM INTO.
func (c *Catalog) SaveToDisk(path string) error {
	if _, err := c.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	slog.Info("catalog saved to disk", "path", path)
	return nil
}

// LoadFromDisk merges the keys of an on-disk catalog into this one.
func (c *Catalog) LoadFromDisk(path string) error {
	if _, err := c.Exec("ATTACH DATABASE ? AS diskdb", path); err != nil {
		return fmt.Errorf("attaching database %s: %w", path, err)
	}
	defer func() {
		if _, err := c.Exec("DETACH DATABASE diskdb"); err != nil {
			slog.Warn("detaching database", "path", path, "error", err)
		}
	}()

	if _, err := c.Exec("INSERT OR IGNORE INTO keys SELECT * FROM diskdb.keys"); err != nil {
		return fmt.Errorf("loading keys from %s: %w", path, err)
	}
	slog.Info("catalog loaded from disk", "path", path)
	return nil
}

// SizeCount is the number of distinct keys of one modulus size.
type SizeCount struct {
	BitLength int `db:"bit_length"`
	Count     int `db:"count"`
}

// ScanSummary holds aggregate counts over the catalog.
type ScanSummary struct {
	Files     int
	Distinct  int
	Private   int
	Public    int
	Locked    int
	Encrypted int
	Sizes     []SizeCount
}

// GetScanSummary counts catalogued files and distinct keys. Locked files
// have no fingerprint and are counted separately.
func (c *Catalog) GetScanSummary() (*ScanSummary, error) {
	var counts struct {
		Files     int `db:"files"`
		Distinct  int `db:"distinct_keys"`
		Private   int `db:"private"`
		Public    int `db:"public"`
		Locked    int `db:"locked"`
		Encrypted int `db:"encrypted"`
	}
	err := c.Get(&counts, `
		SELECT
			COUNT(*) AS files,
			COUNT(DISTINCT CASE WHEN kind != 'locked' THEN fingerprint END) AS distinct_keys,
			COALESCE(SUM(kind = 'private'), 0) AS private,
			COALESCE(SUM(kind = 'public'), 0) AS public,
			COALESCE(SUM(kind = 'locked'), 0) AS locked,
			COALESCE(SUM(encrypted), 0) AS encrypted
		FROM keys
	`)
	if err != nil {
		return nil, fmt.Errorf("counting keys: %w", err)
	}

	s := &ScanSummary{
		Files:     counts.Files,
		Distinct:  counts.Distinct,
		Private:   counts.Private,
		Public:    counts.Public,
		Locked:    counts.Locked,
		Encrypted: counts.Encrypted,
	}
	err = c.Select(&s.Sizes, `
		SELECT bit_length, COUNT(DISTINCT fingerprint) AS count
		FROM keys WHERE kind != 'locked'
		GROUP BY bit_length ORDER BY bit_length
	`)
	if err != nil {
		return nil, fmt.Errorf("counting key sizes: %w", err)
	}
	return s, nil
}
