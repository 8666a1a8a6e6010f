package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	bucketUser          = "user"
	bucketSession       = "session"
	bucketItems         = "items"
	bucketVariances     = "variances"
	bucketConflicts     = "conflicts"
	bucketNotifications = "notifications"
	bucketQueue         = "queue"
	bucketToken         = "auth_token"
)

// Open opens (creating if needed) the SQLite file at path and ensures the
// state table exists.
func Open(path string) (*sqlx.DB, error) {
	if path == "" {
		path = "stockagent.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return db, nil
}

// SQLiteRepository keeps the recovery snapshot as one JSON payload per bucket.
type SQLiteRepository struct {
	DB *sqlx.DB
}

func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{DB: db}
}

var _ stocktake.SnapshotRepository = (*SQLiteRepository)(nil)

type bucketRow struct {
	Bucket  string `db:"bucket"`
	Payload []byte `db:"payload"`
}

// Load reads the snapshot as it was saved, or nil when nothing is stored.
func (r *SQLiteRepository) Load(ctx context.Context) (*model.State, error) {
	var rows []bucketRow
	if err := r.DB.SelectContext(ctx, &rows, `SELECT bucket, payload FROM state WHERE bucket != ?`, bucketToken); err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var st model.State
	for _, row := range rows {
		var dst any
		switch row.Bucket {
		case bucketUser:
			dst = &st.User
		case bucketSession:
			dst = &st.ActiveSession
		case bucketItems:
			dst = &st.Items
		case bucketVariances:
			dst = &st.Variances
		case bucketConflicts:
			dst = &st.Conflicts
		case bucketNotifications:
			dst = &st.Notifications
		case bucketQueue:
			dst = &st.Queue
		default:
			continue
		}
		if err := json.Unmarshal(row.Payload, dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", row.Bucket, err)
		}
	}
	return &st, nil
}

// Save writes every bucket in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, st *model.State) (retErr error) {
	buckets := []struct {
		name string
		v    any
	}{
		{bucketUser, st.User},
		{bucketSession, st.ActiveSession},
		{bucketItems, st.Items},
		{bucketVariances, st.Variances},
		{bucketConflicts, st.Conflicts},
		{bucketNotifications, st.Notifications},
		{bucketQueue, st.Queue},
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, b := range buckets {
		data, err := json.Marshal(b.v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.name, err)
		}
		if err := upsert(ctx, tx, b.name, data); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LoadToken(ctx context.Context) (string, error) {
	var rows []bucketRow
	if err := r.DB.SelectContext(ctx, &rows, `SELECT bucket, payload FROM state WHERE bucket = ?`, bucketToken); err != nil {
		return "", fmt.Errorf("select token: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	var token string
	if err := json.Unmarshal(rows[0].Payload, &token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}

func (r *SQLiteRepository) SaveToken(ctx context.Context, token string) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return upsert(ctx, r.DB, bucketToken, data)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM state`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

func upsert(ctx context.Context, db sqlx.ExecerContext, bucket string, data []byte) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload) VALUES(?, ?) ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		bucket, data,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	return nil
}
