package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/acoumesh/acoumesh/pkg/protocol"
)

// FrameQuery represents query parameters for retrieving stored frames.
type FrameQuery struct {
	Limit     int
	Offset    int
	Since     *time.Time
	Until     *time.Time
	Peer      string
	Direction string // "rx", "tx", or "" for both
}

// PeerSummary describes a peer's most recent activity.
type PeerSummary struct {
	Peer          string    `json:"peer"`
	LastFrameID   int       `json:"last_frame_id"`
	LastSeen      time.Time `json:"last_seen"`
	LastPayload   string    `json:"last_payload"`
	FrameCount    int       `json:"frame_count"`
	TotalFrames   int       `json:"total_frames"`
}

// FrameStats represents database-wide counters.
type FrameStats struct {
	TotalFrames    int       `json:"total_frames"`
	TotalRX        int       `json:"total_rx"`
	TotalTX        int       `json:"total_tx"`
	TotalCorrected int       `json:"total_corrected"`
	LastCleanup    time.Time `json:"last_cleanup"`
}

// GetFrames retrieves frames matching the query parameters, newest first.
func (fs *FrameStore) GetFrames(query FrameQuery) ([]protocol.FrameRecord, error) {
	var args []interface{}
	var conditions []string

	sqlQuery := `
		SELECT id, timestamp, peer, payload, priority, slot, corrected, direction
		FROM frames
		WHERE 1=1
	`

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since)
	}

	if query.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.Until)
	}

	if query.Peer != "" {
		conditions = append(conditions, "peer = ?")
		args = append(args, query.Peer)
	}

	if query.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, query.Direction)
	}

	for _, condition := range conditions {
		sqlQuery += " AND " + condition
	}

	sqlQuery += " ORDER BY timestamp DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)

		if query.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := fs.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var records []protocol.FrameRecord
	for rows.Next() {
		var rec protocol.FrameRecord
		var direction string
		err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.Peer, &rec.Payload,
			&rec.Priority, &rec.Slot, &rec.Corrected, &direction,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		rec.Direction = direction
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetPeers retrieves peer summaries, most recently heard from first.
func (fs *FrameStore) GetPeers(limit int) ([]PeerSummary, error) {
	query := `
		SELECT p.peer, p.last_frame_id, p.last_seen, p.frame_count, f.payload,
			   (SELECT COUNT(*) FROM frames WHERE peer = p.peer) as total_frames
		FROM peers p
		LEFT JOIN frames f ON p.last_frame_id = f.id
		ORDER BY p.last_seen DESC
	`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := fs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query peers: %w", err)
	}
	defer rows.Close()

	var peers []PeerSummary
	for rows.Next() {
		var p PeerSummary
		var lastPayload sql.NullString

		err := rows.Scan(
			&p.Peer, &p.LastFrameID, &p.LastSeen, &p.FrameCount,
			&lastPayload, &p.TotalFrames,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan peer: %w", err)
		}

		if lastPayload.Valid {
			p.LastPayload = lastPayload.String
		}

		peers = append(peers, p)
	}

	return peers, rows.Err()
}

// GetFramesByPeer retrieves all frames exchanged with a specific peer.
func (fs *FrameStore) GetFramesByPeer(peer string, limit int, offset int) ([]protocol.FrameRecord, error) {
	query := FrameQuery{
		Peer:   peer,
		Limit:  limit,
		Offset: offset,
	}
	return fs.GetFrames(query)
}

// GetRecentFrames retrieves the most recently observed frames.
func (fs *FrameStore) GetRecentFrames(limit int) ([]protocol.FrameRecord, error) {
	query := FrameQuery{Limit: limit}
	return fs.GetFrames(query)
}

// GetFrameStats retrieves database-wide frame statistics.
func (fs *FrameStore) GetFrameStats() (*FrameStats, error) {
	var stats FrameStats
	var lastCleanup sql.NullTime

	err := fs.db.QueryRow(`
		SELECT total_frames, total_rx, total_tx, total_corrected, last_cleanup
		FROM frame_stats WHERE id = 1
	`).Scan(&stats.TotalFrames, &stats.TotalRX, &stats.TotalTX, &stats.TotalCorrected, &lastCleanup)

	if err != nil {
		return nil, fmt.Errorf("failed to get frame stats: %w", err)
	}

	if lastCleanup.Valid {
		stats.LastCleanup = lastCleanup.Time
	}

	return &stats, nil
}

// SearchFrames performs a substring search on frame payload text.
func (fs *FrameStore) SearchFrames(searchTerm string, limit int) ([]protocol.FrameRecord, error) {
	query := `
		SELECT id, timestamp, peer, payload, priority, slot, corrected, direction
		FROM frames
		WHERE payload LIKE ?
		ORDER BY timestamp DESC
	`

	args := []interface{}{"%" + searchTerm + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := fs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search frames: %w", err)
	}
	defer rows.Close()

	var records []protocol.FrameRecord
	for rows.Next() {
		var rec protocol.FrameRecord
		var direction string
		err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.Peer, &rec.Payload,
			&rec.Priority, &rec.Slot, &rec.Corrected, &direction,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		rec.Direction = direction
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetFrameCount returns the total number of stored frames.
func (fs *FrameStore) GetFrameCount() (int, error) {
	var count int
	err := fs.db.QueryRow("SELECT COUNT(*) FROM frames").Scan(&count)
	return count, err
}
