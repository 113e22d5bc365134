package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/uuid/v5"
	safecommon "github.com/quorumlabs/safekit/common"
)

//go:embed schema.sql
var SCHEMA string

const DefaultSafeKey = "default-safe"

// SQLite3Store is the local registry of Safes the CLI operates on, keyed by
// a user chosen alias per wallet.
type SQLite3Store struct {
	db    *sql.DB
	mutex *sync.Mutex
}

// Safe is one registry row.
type Safe struct {
	ID        string
	Alias     string
	Address   common.Address
	ChainID   int64
	CreatedAt time.Time
}

func OpenSQLite3Store(path string) (*SQLite3Store, error) {
	db, err := safecommon.OpenSQLite3Store(path, SCHEMA)
	if err != nil {
		return nil, err
	}
	return &SQLite3Store{
		db:    db,
		mutex: new(sync.Mutex),
	}, nil
}

func (s *SQLite3Store) Close() error {
	return s.db.Close()
}

func (s *SQLite3Store) WriteSafe(ctx context.Context, alias string, address common.Address, chainID int64) (*Safe, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer safecommon.Rollback(tx)

	existed, err := s.checkExistence(ctx, tx, "SELECT safe_id FROM safes WHERE alias=?", alias)
	if err != nil {
		return nil, err
	}
	if existed {
		return nil, fmt.Errorf("alias %s already registered", alias)
	}

	entry := &Safe{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Alias:     alias,
		Address:   address,
		ChainID:   chainID,
		CreatedAt: time.Now().UTC(),
	}
	cols := []string{"safe_id", "alias", "address", "chain_id", "created_at"}
	err = s.execOne(ctx, tx, buildInsertionSQL("safes", cols),
		entry.ID, entry.Alias, entry.Address.Hex(), entry.ChainID, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("INSERT safes %v", err)
	}
	return entry, tx.Commit()
}

func (s *SQLite3Store) ReadSafe(ctx context.Context, alias string) (*Safe, error) {
	row := s.db.QueryRowContext(ctx, "SELECT safe_id,alias,address,chain_id,created_at FROM safes WHERE alias=?", alias)
	return safeFromRow(row)
}

func (s *SQLite3Store) ListSafes(ctx context.Context) ([]*Safe, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT safe_id,alias,address,chain_id,created_at FROM safes ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var safes []*Safe
	for rows.Next() {
		entry, err := safeFromRow(rows)
		if err != nil {
			return nil, err
		}
		safes = append(safes, entry)
	}
	return safes, rows.Err()
}

func (s *SQLite3Store) DeleteSafe(ctx context.Context, alias string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer safecommon.Rollback(tx)

	err = s.execOne(ctx, tx, "DELETE FROM safes WHERE alias=?", alias)
	if err != nil {
		return fmt.Errorf("DELETE safes %v", err)
	}
	return tx.Commit()
}

func (s *SQLite3Store) ReadProperty(ctx context.Context, k string) (string, error) {
	row := s.db.QueryRowContext(ctx, "SELECT value FROM properties WHERE key=?", k)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLite3Store) WriteOrUpdateProperty(ctx context.Context, k, v string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer safecommon.Rollback(tx)

	existed, err := s.checkExistence(ctx, tx, "SELECT value FROM properties WHERE key=?", k)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if existed {
		err = s.execOne(ctx, tx, "UPDATE properties SET value=?,updated_at=? WHERE key=?", v, now, k)
		if err != nil {
			return fmt.Errorf("UPDATE properties %v", err)
		}
	} else {
		cols := []string{"key", "value", "created_at", "updated_at"}
		err = s.execOne(ctx, tx, buildInsertionSQL("properties", cols), k, v, now, now)
		if err != nil {
			return fmt.Errorf("INSERT properties %v", err)
		}
	}

	return tx.Commit()
}

type row interface {
	Scan(dest ...any) error
}

func safeFromRow(r row) (*Safe, error) {
	var entry Safe
	var address string
	err := r.Scan(&entry.ID, &entry.Alias, &address, &entry.ChainID, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Address = common.HexToAddress(address)
	return &entry, nil
}

func (s *SQLite3Store) execOne(ctx context.Context, tx *sql.Tx, sql string, params ...any) error {
	res, err := tx.ExecContext(ctx, sql, params...)
	logger.Verbosef("SQLite3Store.ExecContext(%s, %v) => %v %v", sql, params, res, err)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil || rows != 1 {
		return fmt.Errorf("exec(%s) => %d %v", sql, rows, err)
	}
	return nil
}

func buildInsertionSQL(table string, cols []string) string {
	vals := strings.Repeat("?, ", len(cols))
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ","), vals[:len(vals)-2])
}

func (s *SQLite3Store) checkExistence(ctx context.Context, tx *sql.Tx, sql string, params ...any) (bool, error) {
	rows, err := tx.QueryContext(ctx, sql, params...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	return rows.Next(), nil
}
