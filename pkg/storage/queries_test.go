package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/acoumesh/acoumesh/pkg/protocol"
)

func setupTestStore(t *testing.T) (*FrameStore, func()) {
	tempDir, err := os.MkdirTemp("", "acoumesh-queries-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "queries_test.db")
	store, err := NewFrameStore(dbPath, 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tempDir)
	}

	return store, cleanup
}

func seedTestFrames(t *testing.T, store *FrameStore) {
	baseTime := time.Now().Add(-10 * time.Minute)
	records := []struct {
		rec       protocol.FrameRecord
		direction string
	}{
		{
			rec: protocol.FrameRecord{
				Timestamp: baseTime.Add(1 * time.Minute),
				Peer:      "node-b",
				Payload:   "beacon from node-a",
				Priority:  1,
			},
			direction: "tx",
		},
		{
			rec: protocol.FrameRecord{
				Timestamp: baseTime.Add(2 * time.Minute),
				Peer:      "node-b",
				Payload:   "ack from node-b",
				Priority:  1,
			},
			direction: "rx",
		},
		{
			rec: protocol.FrameRecord{
				Timestamp: baseTime.Add(3 * time.Minute),
				Peer:      "node-b",
				Payload:   "thanks for the contact",
				Priority:  5,
			},
			direction: "tx",
		},
		{
			rec: protocol.FrameRecord{
				Timestamp: baseTime.Add(4 * time.Minute),
				Peer:      "node-c",
				Payload:   "beacon from node-c",
				Priority:  1,
			},
			direction: "rx",
		},
		{
			rec: protocol.FrameRecord{
				Timestamp: baseTime.Add(5 * time.Minute),
				Peer:      "node-b",
				Payload:   "73 node-b",
				Priority:  0,
			},
			direction: "rx",
		},
	}

	for i, data := range records {
		err := store.StoreFrame(data.rec, data.direction)
		if err != nil {
			t.Fatalf("Failed to seed frame %d: %v", i+1, err)
		}
	}
}

func TestGetFrames(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Get All Frames", func(t *testing.T) {
		query := FrameQuery{}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get frames: %v", err)
		}

		if len(records) != 5 {
			t.Errorf("Expected 5 frames, got %d", len(records))
		}

		for i := 1; i < len(records); i++ {
			if records[i].Timestamp.After(records[i-1].Timestamp) {
				t.Error("Frames not ordered by timestamp DESC")
			}
		}
	})

	t.Run("Get Frames with Limit", func(t *testing.T) {
		query := FrameQuery{Limit: 3}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get frames: %v", err)
		}

		if len(records) != 3 {
			t.Errorf("Expected 3 frames, got %d", len(records))
		}
	})

	t.Run("Get Frames with Limit and Offset", func(t *testing.T) {
		query := FrameQuery{Limit: 2, Offset: 2}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get frames: %v", err)
		}

		if len(records) != 2 {
			t.Errorf("Expected 2 frames, got %d", len(records))
		}
	})

	t.Run("Get Frames Since Time", func(t *testing.T) {
		since := time.Now().Add(-7 * time.Minute)
		query := FrameQuery{Since: &since}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get frames since: %v", err)
		}

		if len(records) < 2 {
			t.Errorf("Expected at least 2 frames since time, got %d", len(records))
		}

		for _, rec := range records {
			if rec.Timestamp.Before(since) {
				t.Errorf("Frame timestamp %v is before since time %v", rec.Timestamp, since)
			}
		}
	})

	t.Run("Get Frames by Peer", func(t *testing.T) {
		query := FrameQuery{Peer: "node-b"}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get frames by peer: %v", err)
		}

		if len(records) != 4 {
			t.Errorf("Expected 4 frames for node-b, got %d", len(records))
		}

		for _, rec := range records {
			if rec.Peer != "node-b" {
				t.Errorf("Frame doesn't involve node-b: peer=%s", rec.Peer)
			}
		}
	})

	t.Run("Get Frames by Direction", func(t *testing.T) {
		query := FrameQuery{Direction: "rx"}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get rx frames: %v", err)
		}

		if len(records) != 3 {
			t.Errorf("Expected 3 rx frames, got %d", len(records))
		}
	})

	t.Run("Complex Query", func(t *testing.T) {
		since := time.Now().Add(-8 * time.Minute)
		query := FrameQuery{
			Since:     &since,
			Direction: "tx",
			Limit:     10,
		}
		records, err := store.GetFrames(query)
		if err != nil {
			t.Fatalf("Failed to get complex query: %v", err)
		}

		if len(records) != 1 {
			t.Errorf("Expected 1 frame for complex query, got %d", len(records))
		}

		if records[0].Peer != "node-b" {
			t.Errorf("Expected frame for node-b, got %s", records[0].Peer)
		}
	})
}

func TestGetPeers(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Get All Peers", func(t *testing.T) {
		peers, err := store.GetPeers(0)
		if err != nil {
			t.Fatalf("Failed to get peers: %v", err)
		}

		if len(peers) != 2 {
			t.Errorf("Expected 2 peers, got %d", len(peers))
		}

		for i := 1; i < len(peers); i++ {
			if peers[i].LastSeen.After(peers[i-1].LastSeen) {
				t.Error("Peers not ordered by last seen DESC")
			}
		}
	})

	t.Run("Get Limited Peers", func(t *testing.T) {
		peers, err := store.GetPeers(1)
		if err != nil {
			t.Fatalf("Failed to get limited peers: %v", err)
		}

		if len(peers) != 1 {
			t.Errorf("Expected 1 peer, got %d", len(peers))
		}
	})

	t.Run("Peer Content", func(t *testing.T) {
		peers, err := store.GetPeers(0)
		if err != nil {
			t.Fatalf("Failed to get peers: %v", err)
		}

		var nodeB *PeerSummary
		for i := range peers {
			if peers[i].Peer == "node-b" {
				nodeB = &peers[i]
				break
			}
		}

		if nodeB == nil {
			t.Fatal("node-b peer not found")
		}

		if nodeB.TotalFrames != 4 {
			t.Errorf("Expected 4 total frames for node-b, got %d", nodeB.TotalFrames)
		}

		if !strings.Contains(nodeB.LastPayload, "73") {
			t.Errorf("Expected last payload to contain '73', got: %s", nodeB.LastPayload)
		}
	})
}

func TestFramesByPeer(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Get Frames for Specific Peer", func(t *testing.T) {
		records, err := store.GetFramesByPeer("node-b", 10, 0)
		if err != nil {
			t.Fatalf("Failed to get frames for node-b: %v", err)
		}

		if len(records) != 4 {
			t.Errorf("Expected 4 frames for node-b, got %d", len(records))
		}
	})

	t.Run("Get Frames with Pagination", func(t *testing.T) {
		records, err := store.GetFramesByPeer("node-b", 2, 1)
		if err != nil {
			t.Fatalf("Failed to get paginated frames: %v", err)
		}

		if len(records) != 2 {
			t.Errorf("Expected 2 frames with pagination, got %d", len(records))
		}
	})
}

func TestRecentFrames(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	records, err := store.GetRecentFrames(3)
	if err != nil {
		t.Fatalf("Failed to get recent frames: %v", err)
	}

	if len(records) != 3 {
		t.Errorf("Expected 3 recent frames, got %d", len(records))
	}
}

func TestSearchFrames(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Search by Payload Content", func(t *testing.T) {
		records, err := store.SearchFrames("beacon", 10)
		if err != nil {
			t.Fatalf("Failed to search frames: %v", err)
		}

		if len(records) != 2 {
			t.Errorf("Expected 2 frames containing 'beacon', got %d", len(records))
		}
	})

	t.Run("Search with Limit", func(t *testing.T) {
		records, err := store.SearchFrames("node", 2)
		if err != nil {
			t.Fatalf("Failed to search with limit: %v", err)
		}

		if len(records) != 2 {
			t.Errorf("Expected 2 frames with limit, got %d", len(records))
		}
	})

	t.Run("Search No Results", func(t *testing.T) {
		records, err := store.SearchFrames("nonexistent", 10)
		if err != nil {
			t.Fatalf("Failed to search for nonexistent term: %v", err)
		}

		if len(records) != 0 {
			t.Errorf("Expected 0 frames for nonexistent search, got %d", len(records))
		}
	})

	t.Run("Search for Thanks", func(t *testing.T) {
		records, err := store.SearchFrames("thanks", 10)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}

		if len(records) != 1 {
			t.Errorf("Expected 1 frame containing 'thanks', got %d", len(records))
		}
	})
}

func TestFrameStats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	stats, err := store.GetFrameStats()
	if err != nil {
		t.Fatalf("Failed to get frame stats: %v", err)
	}

	if stats.TotalFrames != 5 {
		t.Errorf("Expected total frames 5, got %d", stats.TotalFrames)
	}

	if stats.TotalRX != 3 {
		t.Errorf("Expected total RX 3, got %d", stats.TotalRX)
	}

	if stats.TotalTX != 2 {
		t.Errorf("Expected total TX 2, got %d", stats.TotalTX)
	}
}

func TestFrameCounts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Get Total Frame Count", func(t *testing.T) {
		count, err := store.GetFrameCount()
		if err != nil {
			t.Fatalf("Failed to get frame count: %v", err)
		}

		if count != 5 {
			t.Errorf("Expected frame count 5, got %d", count)
		}
	})
}

func TestQueryIntegration(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedTestFrames(t, store)

	t.Run("Complete Query Workflow", func(t *testing.T) {
		peers, err := store.GetPeers(0)
		if err != nil {
			t.Fatalf("Failed to get peers: %v", err)
		}

		if len(peers) != 2 {
			t.Errorf("Expected 2 peers, got %d", len(peers))
		}

		mostActive := peers[0]
		records, err := store.GetFramesByPeer(mostActive.Peer, 10, 0)
		if err != nil {
			t.Fatalf("Failed to get frames for most active: %v", err)
		}

		if len(records) < 1 {
			t.Error("Expected at least 1 frame for most active peer")
		}

		searchResults, err := store.SearchFrames("73", 10)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}

		if len(searchResults) != 1 {
			t.Errorf("Expected 1 search result for '73', got %d", len(searchResults))
		}
	})
}
