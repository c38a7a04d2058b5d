// Package storage provides the SQLite-backed persistence layer for
// observed frames: every frame sent or received by the daemon, plus a
// rolling per-peer summary used to answer PEERS queries.
package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/acoumesh/acoumesh/pkg/protocol"
	_ "github.com/mattn/go-sqlite3"
)

// FrameStore handles persistent storage of observed frames.
type FrameStore struct {
	db       *sql.DB
	dbPath   string
	maxFrames int
}

// NewFrameStore creates a new frame store with a SQLite backend.
func NewFrameStore(dbPath string, maxFrames int) (*FrameStore, error) {
	store := &FrameStore{
		dbPath:    dbPath,
		maxFrames: maxFrames,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize frame store: %w", err)
	}

	return store, nil
}

func (fs *FrameStore) initialize() error {
	if err := os.MkdirAll(filepath.Dir(fs.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if fs.dbPath == "" {
		fs.dbPath = "./acoumesh.db"
	}

	connectionString := fs.dbPath + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	fs.db = db

	if err := fs.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := fs.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("Frame store initialized: %s (max %d frames)", fs.dbPath, fs.maxFrames)
	return nil
}

func (fs *FrameStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		peer TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		slot INTEGER NOT NULL DEFAULT 0,
		corrected INTEGER NOT NULL DEFAULT 0,
		direction TEXT NOT NULL CHECK (direction IN ('rx', 'tx')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS peers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		peer TEXT NOT NULL UNIQUE,
		last_frame_id INTEGER,
		last_seen DATETIME,
		frame_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (last_frame_id) REFERENCES frames(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS frame_stats (
		id INTEGER PRIMARY KEY,
		total_frames INTEGER NOT NULL DEFAULT 0,
		total_rx INTEGER NOT NULL DEFAULT 0,
		total_tx INTEGER NOT NULL DEFAULT 0,
		total_corrected INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO frame_stats (id, total_frames, total_rx, total_tx, total_corrected)
	VALUES (1, 0, 0, 0, 0);
	`

	_, err := fs.db.Exec(schema)
	return err
}

func (fs *FrameStore) createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_frames_timestamp ON frames(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_frames_peer ON frames(peer)",
		"CREATE INDEX IF NOT EXISTS idx_frames_direction ON frames(direction)",
		"CREATE INDEX IF NOT EXISTS idx_peers_peer ON peers(peer)",
		"CREATE INDEX IF NOT EXISTS idx_peers_last_seen ON peers(last_seen DESC)",
	}

	for _, indexSQL := range indexes {
		if _, err := fs.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// StoreFrame records an observed frame and updates the peer summary
// and running statistics in the same transaction.
func (fs *FrameStore) StoreFrame(rec protocol.FrameRecord, direction string) error {
	tx, err := fs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO frames (
			timestamp, peer, payload, priority, slot, corrected, direction
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.Exec(query,
		rec.Timestamp, rec.Peer, rec.Payload, rec.Priority, rec.Slot, rec.Corrected, direction,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}

	frameID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get frame ID: %w", err)
	}

	if err := fs.updatePeer(tx, rec.Peer, frameID, rec.Timestamp); err != nil {
		return fmt.Errorf("failed to update peer: %w", err)
	}

	if err := fs.updateStats(tx, direction, rec.Corrected); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	if err := fs.cleanupOldFrames(tx); err != nil {
		log.Printf("Warning: failed to cleanup old frames: %v", err)
	}

	return tx.Commit()
}

func (fs *FrameStore) updatePeer(tx *sql.Tx, peer string, frameID int64, timestamp time.Time) error {
	if peer == "" {
		return nil
	}

	query := `
		INSERT INTO peers (peer, last_frame_id, last_seen, frame_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(peer) DO UPDATE SET
			last_frame_id = excluded.last_frame_id,
			last_seen = excluded.last_seen,
			frame_count = frame_count + 1,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := tx.Exec(query, peer, frameID, timestamp)
	return err
}

func (fs *FrameStore) updateStats(tx *sql.Tx, direction string, corrected int) error {
	query := `
		UPDATE frame_stats SET
			total_frames = total_frames + 1,
			total_rx = CASE WHEN ? = 'rx' THEN total_rx + 1 ELSE total_rx END,
			total_tx = CASE WHEN ? = 'tx' THEN total_tx + 1 ELSE total_tx END,
			total_corrected = total_corrected + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`

	_, err := tx.Exec(query, direction, direction, corrected)
	return err
}

// CleanupOldFrames removes frames beyond the configured maximum.
func (fs *FrameStore) CleanupOldFrames() error {
	tx, err := fs.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fs.cleanupOldFrames(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (fs *FrameStore) cleanupOldFrames(tx *sql.Tx) error {
	if fs.maxFrames <= 0 {
		return nil
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM frames").Scan(&count); err != nil {
		return err
	}

	if count <= fs.maxFrames {
		return nil
	}

	deleteCount := count - fs.maxFrames
	query := `
		DELETE FROM frames
		WHERE id IN (
			SELECT id FROM frames
			ORDER BY timestamp ASC
			LIMIT ?
		)
	`

	if _, err := tx.Exec(query, deleteCount); err != nil {
		return err
	}

	_, err := tx.Exec("UPDATE frame_stats SET last_cleanup = CURRENT_TIMESTAMP WHERE id = 1")
	return err
}

// Close closes the database connection.
func (fs *FrameStore) Close() error {
	if fs.db != nil {
		return fs.db.Close()
	}
	return nil
}
