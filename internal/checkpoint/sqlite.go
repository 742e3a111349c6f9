package checkpoint

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite checkpoint store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite for concurrent access
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=2000&_foreign_keys=on&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings for concurrent access
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{
		db:     db,
		closed: false,
	}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS uploads (
		source TEXT NOT NULL,
		folder_id TEXT NOT NULL,
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		file_id TEXT,
		status TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		last_error TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (source, folder_id)
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
	CREATE INDEX IF NOT EXISTS idx_uploads_updated_at ON uploads(updated_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// GetUpload retrieves an upload record with retry mechanism
func (s *SQLiteStore) GetUpload(source, folderID string) (*UploadRecord, error) {
	// Check if store is closed
	if s.closed {
		return nil, fmt.Errorf("database store is closed")
	}

	// Check if database is still open
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("database connection is not available: %w", err)
	}

	var result *UploadRecord
	err := s.retryOnBusy(func() error {
		var err error
		result, err = s.getUploadInternal(source, folderID)
		return err
	})
	return result, err
}

// getUploadInternal performs the actual get operation
func (s *SQLiteStore) getUploadInternal(source, folderID string) (*UploadRecord, error) {
	query := `
	SELECT source, folder_id, name, size, file_id, status, attempts, last_error, updated_at
	FROM uploads WHERE source = ? AND folder_id = ?
	`

	row := s.db.QueryRow(query, source, folderID)

	var record UploadRecord
	var fileID, lastError sql.NullString

	err := row.Scan(
		&record.Source,
		&record.FolderID,
		&record.Name,
		&record.Size,
		&fileID,
		&record.Status,
		&record.Attempts,
		&lastError,
		&record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if fileID.Valid {
		record.FileID = fileID.String
	}
	if lastError.Valid {
		record.LastError = lastError.String
	}

	return &record, nil
}

// SaveUpload saves or updates an upload record with retry mechanism
func (s *SQLiteStore) SaveUpload(record *UploadRecord) error {
	// Check if store is closed
	if s.closed {
		return fmt.Errorf("database store is closed")
	}

	// Check if database is still open
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("database connection is not available: %w", err)
	}

	// Serialize writes to avoid SQLITE_BUSY from multiple concurrent writers
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		return s.saveUploadWithTransaction(record)
	})
}

// saveUploadWithTransaction performs the actual save operation in a transaction
func (s *SQLiteStore) saveUploadWithTransaction(record *UploadRecord) error {
	record.UpdatedAt = time.Now()

	// Use a transaction for better concurrency
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // This will be ignored if Commit() succeeds

	// Use UPSERT to avoid DELETE+INSERT of REPLACE which increases lock contention
	query := `
    INSERT INTO uploads
    (source, folder_id, name, size, file_id, status, attempts, last_error, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(source, folder_id) DO UPDATE SET
        name = excluded.name,
        size = excluded.size,
        file_id = excluded.file_id,
        status = excluded.status,
        attempts = excluded.attempts,
        last_error = excluded.last_error,
        updated_at = excluded.updated_at
    `

	_, err = tx.Exec(query,
		record.Source,
		record.FolderID,
		record.Name,
		record.Size,
		record.FileID,
		record.Status,
		record.Attempts,
		record.LastError,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to execute insert: %w", err)
	}

	return tx.Commit()
}

// retryOnBusy retries the operation if SQLite is busy
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	maxRetries := 10
	baseDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		// Check if this is a busy error
		if isSQLiteBusyError(err) {
			if attempt < maxRetries-1 {
				// Wait with exponential backoff + jitter
				delay := baseDelay * time.Duration(1<<uint(attempt))
				jitter := time.Duration(attempt*10) * time.Millisecond
				time.Sleep(delay + jitter)
				continue
			}
		}

		// Return the error if it's not a busy error or we've exhausted retries
		return err
	}

	return nil
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY") ||
		strings.Contains(errorStr, "database is closed")
}

// ListPendingUploads returns all pending uploads
func (s *SQLiteStore) ListPendingUploads() ([]*UploadRecord, error) {
	return s.listUploadsByStatus(StatusPending)
}

// ListFailedUploads returns all failed uploads
func (s *SQLiteStore) ListFailedUploads() ([]*UploadRecord, error) {
	return s.listUploadsByStatus(StatusFailed)
}

func (s *SQLiteStore) listUploadsByStatus(status UploadStatus) ([]*UploadRecord, error) {
	query := `
	SELECT source, folder_id, name, size, file_id, status, attempts, last_error, updated_at
	FROM uploads WHERE status = ?
	ORDER BY updated_at ASC
	`

	rows, err := s.db.Query(query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*UploadRecord

	for rows.Next() {
		var record UploadRecord
		var fileID, lastError sql.NullString

		err := rows.Scan(
			&record.Source,
			&record.FolderID,
			&record.Name,
			&record.Size,
			&fileID,
			&record.Status,
			&record.Attempts,
			&lastError,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if fileID.Valid {
			record.FileID = fileID.String
		}
		if lastError.Valid {
			record.LastError = lastError.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.closed = true
	return s.db.Close()
}
