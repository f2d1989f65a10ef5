package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	silerrors "github.com/Aman-CERP/silo/internal/errors"
	"github.com/Aman-CERP/silo/internal/lockfile"
)

// DBFileName is the database file under the data directory.
const DBFileName = "silo.db"

// LockedReason is the disabled reason when another process holds the data
// directory.
const LockedReason = "data directory locked by another process"

const schemaVersion = 1

// sqliteStore is the Enabled state. mu serializes every access to db and
// ann, reads included.
type sqliteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	ann    *annIndex
	lock   *lockfile.FileLock
	path   string
	dims   int
	closed bool
}

// validateIntegrity checks an existing database before it is opened for
// writing. A missing file is valid.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// openSQLite opens (or creates) the database under dataDir, takes the data
// directory lock and rebuilds the graph from stored vectors.
func openSQLite(ctx context.Context, opts Options) (*sqliteStore, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageOpen,
			fmt.Sprintf("failed to create data directory %s", opts.DataDir), err)
	}

	lock := lockfile.New(opts.DataDir, lockfile.StoreLockName)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageOpen, "failed to lock data directory", err)
	}
	if !acquired {
		return nil, silerrors.New(silerrors.ErrCodeStoreLocked, LockedReason, nil).
			WithDetail("lock", lock.Path())
	}

	s, err := openLocked(ctx, opts)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	s.lock = lock
	return s, nil
}

func openLocked(ctx context.Context, opts Options) (*sqliteStore, error) {
	path := filepath.Join(opts.DataDir, DBFileName)

	if validErr := validateIntegrity(path); validErr != nil {
		slog.Warn("store_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, silerrors.New(silerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("index corrupted at %s and cannot be removed", path), err)
			}
		}
		slog.Info("store_cleared", slog.String("path", path), slog.String("reason", "corruption detected, reindex required"))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageOpen, "failed to open database", err)
	}

	// One connection: the store mutex already serializes access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN parameters are not reliably honoured by modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, silerrors.New(silerrors.ErrCodeStorageOpen, "failed to set pragma", err)
		}
	}

	s := &sqliteStore{
		db:   db,
		path: path,
		dims: opts.Dimensions,
		ann:  newANNIndex(opts.Dimensions),
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, silerrors.New(silerrors.ErrCodeStorageOpen, "failed to initialize schema", err)
	}
	if opts.Reset {
		if err := s.reset(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := s.checkDimensions(ctx, opts.Model); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.rebuildGraph(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_token INTEGER NOT NULL,
		end_token   INTEGER NOT NULL,
		file_mtime  INTEGER NOT NULL,
		file_size   INTEGER NOT NULL,
		file_hash   TEXT NOT NULL,
		text        TEXT NOT NULL,
		vector      BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);

	-- Keyword index over chunk text; chunk_id is stored but not searchable.
	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		text,
		tokenize='unicode61'
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

func (s *sqliteStore) reset(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM chunks_fts`, `DELETE FROM store_meta`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return silerrors.StorageError("failed to reset index", err)
		}
	}
	slog.Info("store_reset", slog.String("path", s.path))
	return nil
}

// checkDimensions compares the recorded embedding width with the configured
// one. A fresh index records it; a populated index with a different width
// cannot be searched and is refused.
func (s *sqliteStore) checkDimensions(ctx context.Context, model string) error {
	recorded, err := s.getMeta(ctx, metaKeyDimensions)
	if err != nil {
		return silerrors.New(silerrors.ErrCodeStorageQuery, "failed to read index metadata", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return silerrors.New(silerrors.ErrCodeStorageQuery, "failed to count chunks", err)
	}

	if recorded != "" && count > 0 {
		dims, _ := strconv.Atoi(recorded)
		if dims != s.dims {
			return silerrors.New(silerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("index was built with %d-dimensional vectors but the embedder produces %d", dims, s.dims), nil).
				WithSuggestion("run `silo index --reset` to rebuild the index")
		}
		if prev, _ := s.getMeta(ctx, metaKeyModel); prev != "" && model != "" && prev != model {
			slog.Warn("store_model_changed",
				slog.String("previous", prev),
				slog.String("current", model))
		}
	}

	if err := s.setMeta(ctx, metaKeyDimensions, strconv.Itoa(s.dims)); err != nil {
		return silerrors.StorageError("failed to record index metadata", err)
	}
	if model != "" {
		if err := s.setMeta(ctx, metaKeyModel, model); err != nil {
			return silerrors.StorageError("failed to record index metadata", err)
		}
	}
	return nil
}

func (s *sqliteStore) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *sqliteStore) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// rebuildGraph loads every stored vector into a fresh graph.
func (s *sqliteStore) rebuildGraph(ctx context.Context) error {
	start := time.Now()
	ann := newANNIndex(s.dims)

	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM chunks`)
	if err != nil {
		return silerrors.New(silerrors.ErrCodeStorageQuery, "failed to load vectors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return silerrors.New(silerrors.ErrCodeStorageQuery, "failed to scan vector", err)
		}
		vec, err := decodeVector(blob)
		if err != nil || len(vec) != s.dims {
			slog.Warn("store_vector_skipped", slog.String("id", id), slog.Int("dims", len(vec)))
			continue
		}
		ann.add(id, vec)
	}
	if err := rows.Err(); err != nil {
		return silerrors.New(silerrors.ErrCodeStorageQuery, "failed to load vectors", err)
	}

	s.ann = ann
	slog.Debug("store_graph_rebuilt",
		slog.Int("nodes", ann.count()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *sqliteStore) checkRow(row ChunkRow) error {
	if len(row.Vector) != s.dims {
		return silerrors.New(silerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("chunk %d of %s has %d-dimensional vector, expected %d", row.ChunkIndex, row.Path, len(row.Vector), s.dims), nil)
	}
	return nil
}

const insertChunkSQL = `INSERT OR REPLACE INTO chunks
	(id, path, chunk_index, start_token, end_token, file_mtime, file_size, file_hash, text, vector)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *sqliteStore) addChunk(ctx context.Context, row ChunkRow) error {
	if err := s.checkRow(row); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return silerrors.StorageError("store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return silerrors.StorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, row.ID); err != nil {
		return silerrors.StorageError("failed to replace keyword entry", err)
	}
	if err := insertRow(ctx, tx, row); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return silerrors.StorageError("failed to commit chunk", err)
	}

	s.ann.add(row.ID, row.Vector)
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, row ChunkRow) error {
	if _, err := tx.ExecContext(ctx, insertChunkSQL, rowArgs(row)...); err != nil {
		return silerrors.StorageError(fmt.Sprintf("failed to insert chunk %d of %s", row.ChunkIndex, row.Path), err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)`, row.ID, row.Text); err != nil {
		return silerrors.StorageError("failed to index chunk text", err)
	}
	return nil
}

func rowArgs(row ChunkRow) []any {
	var mtime int64
	if !row.ModTime.IsZero() {
		mtime = row.ModTime.UnixNano()
	}
	return []any{
		row.ID, row.Path, row.ChunkIndex, row.StartToken, row.EndToken,
		mtime, row.Size, row.ContentHash, row.Text, encodeVector(row.Vector),
	}
}

// replaceFileChunks deletes every row for path and inserts rows in one
// transaction, then applies the same change to the graph. On failure the
// transaction is rolled back and the graph is untouched.
func (s *sqliteStore) replaceFileChunks(ctx context.Context, path string, meta FileMeta, rows []ChunkRow) error {
	for i := range rows {
		rows[i].Path = path
		rows[i].FileMeta = meta
		if err := s.checkRow(rows[i]); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return silerrors.StorageError("store is closed", nil)
	}

	oldIDs, err := s.idsForPath(ctx, path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return silerrors.StorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE path = ?)`, path); err != nil {
		return silerrors.StorageError(fmt.Sprintf("failed to delete keyword entries for %s", path), err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return silerrors.StorageError(fmt.Sprintf("failed to delete chunks for %s", path), err)
	}

	insertStmt, err := tx.PrepareContext(ctx, insertChunkSQL)
	if err != nil {
		return silerrors.StorageError("failed to prepare insert", err)
	}
	defer insertStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)`)
	if err != nil {
		return silerrors.StorageError("failed to prepare keyword insert", err)
	}
	defer ftsStmt.Close()

	for _, row := range rows {
		if _, err := insertStmt.ExecContext(ctx, rowArgs(row)...); err != nil {
			return silerrors.StorageError(fmt.Sprintf("failed to insert chunk %d of %s", row.ChunkIndex, path), err)
		}
		if _, err := ftsStmt.ExecContext(ctx, row.ID, row.Text); err != nil {
			return silerrors.StorageError(fmt.Sprintf("failed to index chunk %d of %s", row.ChunkIndex, path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return silerrors.StorageError(fmt.Sprintf("failed to commit chunks for %s", path), err)
	}

	for _, id := range oldIDs {
		s.ann.remove(id)
	}
	for _, row := range rows {
		s.ann.add(row.ID, row.Vector)
	}

	if s.ann.needsCompaction() {
		if err := s.rebuildGraph(ctx); err != nil {
			slog.Warn("store_compaction_failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *sqliteStore) idsForPath(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE path = ? ORDER BY chunk_index`, path)
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to list chunk ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) chunkIDsForPath(ctx context.Context, path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return []string{}, nil
	}
	return s.idsForPath(ctx, path)
}

func (s *sqliteStore) searchByVector(ctx context.Context, query []float32, k int) ([]SearchHit, error) {
	if len(query) != s.dims {
		return nil, silerrors.New(silerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, expected %d", len(query), s.dims), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return []SearchHit{}, nil
	}

	matches := s.ann.search(query, k)
	hits := make([]SearchHit, 0, len(matches))
	if len(matches) == 0 {
		return hits, nil
	}

	stmt, err := s.db.PrepareContext(ctx, `SELECT path, chunk_index, text FROM chunks WHERE id = ?`)
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to prepare lookup", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		hit := SearchHit{ChunkID: m.ID, Score: m.Distance}
		var text string
		err := stmt.QueryRowContext(ctx, m.ID).Scan(&hit.Path, &hit.ChunkIndex, &text)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to load chunk", err)
		}
		hit.ContentPreview = Preview(text)
		hits = append(hits, hit)
	}
	return hits, nil
}

// ftsQuery turns free text into an FTS5 query matching any term. Terms are
// quoted so that FTS5 operators in user input are taken literally.
func ftsQuery(text string) string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func (s *sqliteStore) searchByKeyword(ctx context.Context, text string, k int) ([]SearchHit, error) {
	match := ftsQuery(text)
	if match == "" || k <= 0 {
		return []SearchHit{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return []SearchHit{}, nil
	}

	// bm25() is negative; lower is a better match.
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.path, c.chunk_index, c.text, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.chunk_id
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, k)
	if err != nil {
		return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "keyword search failed", err)
	}
	defer rows.Close()

	hits := []SearchHit{}
	for rows.Next() {
		var hit SearchHit
		var text string
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &hit.Path, &hit.ChunkIndex, &text, &rank); err != nil {
			return nil, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to scan keyword hit", err)
		}
		hit.Score = -rank
		hit.ContentPreview = Preview(text)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *sqliteStore) countChunks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, silerrors.New(silerrors.ErrCodeStorageQuery, "failed to count chunks", err)
	}
	return count, nil
}

func (s *sqliteStore) stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Enabled: true, Path: s.path, Dimensions: s.dims}
	if s.closed {
		return st
	}
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT path) FROM chunks`).Scan(&st.Chunks, &st.Files)
	st.GraphNodes = s.ann.count()
	st.Orphans = s.ann.orphans()
	return st
}

// close checkpoints the WAL, closes the database and releases the lock.
func (s *sqliteStore) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
