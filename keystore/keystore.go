// Package keystore keeps named key pairs in a SQLite database.
//
// Integers are stored as decimal text so that keys of any size round trip
// exactly and the rows stay readable with the sqlite3 shell.
package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/internal/logging"
)

var (
	// ErrNotFound is returned when no key has the requested name.
	ErrNotFound = errors.New("key not found")

	// ErrCorrupt is returned when a stored row cannot be turned back into a key.
	ErrCorrupt = errors.New("corrupt key record")
)

// KeyModel maps the rsa_keys table.
type KeyModel struct {
	bun.BaseModel   `bun:"table:rsa_keys"`
	ID              string    `bun:"id,pk"`
	Name            string    `bun:"name,unique,notnull"`
	PublicExponent  string    `bun:"public_exponent,notnull"`
	PrivateExponent string    `bun:"private_exponent,notnull"`
	Modulus         string    `bun:"modulus,notnull"`
	Bits            int       `bun:"bits,notnull"`
	Fingerprint     string    `bun:"fingerprint,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

// Entry is a stored key pair with its metadata.
type Entry struct {
	ID          string
	Name        string
	Bits        int // modulus bit length
	Fingerprint string
	CreatedAt   time.Time
	KeyPair     *rsatext.KeyPair
}

// Store is a key store backed by a *bun.DB.
type Store struct {
	db *bun.DB
}

// Open opens (creating if needed) the SQLite database at dsn and makes sure
// the schema exists. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty key store path", rsatext.ErrInvalidArgument)
	}
	start := time.Now()
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open key store: %w", err)
	}
	// Every connection to ":memory:" gets its own database, so keep one.
	if dsn == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if _, err := db.NewCreateTable().Model((*KeyModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create key table: %w", err)
	}
	logging.Debugf("keystore: opened %s in %s", dsn, time.Since(start))
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores kp under name, replacing any key already stored under it.
func (s *Store) Save(ctx context.Context, name string, kp *rsatext.KeyPair) (*Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: key name is empty", rsatext.ErrInvalidArgument)
	}
	if kp == nil || kp.PublicExponent == nil || kp.PrivateExponent == nil || kp.Modulus == nil {
		return nil, fmt.Errorf("%w: incomplete key pair", rsatext.ErrInvalidArgument)
	}

	row := &KeyModel{
		ID:              uuid.NewString(),
		Name:            name,
		PublicExponent:  kp.PublicExponent.String(),
		PrivateExponent: kp.PrivateExponent.String(),
		Modulus:         kp.Modulus.String(),
		Bits:            kp.Modulus.BitLen(),
		Fingerprint:     kp.Fingerprint(),
		CreatedAt:       time.Now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*KeyModel)(nil)).Where("name = ?", name).Exec(ctx); err != nil {
			return fmt.Errorf("failed to replace key %q: %w", name, err)
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert key %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Debugf("keystore: saved %q (%s)", name, row.Fingerprint)
	return toEntry(*row)
}

// Get returns the key stored under name.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	var row KeyModel
	err := s.db.NewSelect().Model(&row).Where("name = ?", strings.TrimSpace(name)).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, err
	}
	return toEntry(row)
}

// List returns every stored key ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var rows []KeyModel
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := toEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// Delete removes the key stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.NewDelete().Model((*KeyModel)(nil)).Where("name = ?", strings.TrimSpace(name)).Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	logging.Debugf("keystore: deleted %q", name)
	return nil
}

func toEntry(row KeyModel) (*Entry, error) {
	e, err := parseDecimal(row.PublicExponent)
	if err != nil {
		return nil, fmt.Errorf("%w: %q public exponent: %v", ErrCorrupt, row.Name, err)
	}
	d, err := parseDecimal(row.PrivateExponent)
	if err != nil {
		return nil, fmt.Errorf("%w: %q private exponent: %v", ErrCorrupt, row.Name, err)
	}
	n, err := parseDecimal(row.Modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: %q modulus: %v", ErrCorrupt, row.Name, err)
	}
	return &Entry{
		ID:          row.ID,
		Name:        row.Name,
		Bits:        row.Bits,
		Fingerprint: row.Fingerprint,
		CreatedAt:   row.CreatedAt,
		KeyPair: &rsatext.KeyPair{
			PublicExponent:  e,
			PrivateExponent: d,
			Modulus:         n,
		},
	}, nil
}

func parseDecimal(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("not a positive decimal integer")
	}
	return v, nil
}
