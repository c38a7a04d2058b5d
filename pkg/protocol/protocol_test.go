package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	t.Run("STATUS Command", func(t *testing.T) {
		cmd, err := ParseCommand("STATUS")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "STATUS" {
			t.Errorf("Expected type STATUS, got %s", cmd.Type)
		}
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for STATUS, got %d", len(cmd.Args))
		}
	})

	t.Run("SEND Command with To and Message", func(t *testing.T) {
		cmd, err := ParseCommand("SEND:node-b Hello mesh test")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "SEND" {
			t.Errorf("Expected type SEND, got %s", cmd.Type)
		}
		if cmd.Args["to"] != "node-b" {
			t.Errorf("Expected to node-b, got %v", cmd.Args["to"])
		}
		if cmd.Args["message"] != "Hello mesh test" {
			t.Errorf("Expected message 'Hello mesh test', got %v", cmd.Args["message"])
		}
	})

	t.Run("SEND Command to Broadcast", func(t *testing.T) {
		cmd, err := ParseCommand("SEND:broadcast beacon")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["to"] != "broadcast" {
			t.Errorf("Expected to field 'broadcast', got %v", cmd.Args["to"])
		}
		if cmd.Args["message"] != "beacon" {
			t.Errorf("Expected message 'beacon', got %v", cmd.Args["message"])
		}
	})

	t.Run("PRIORITY Command", func(t *testing.T) {
		cmd, err := ParseCommand("PRIORITY:node-b:urgent payload:9")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["to"] != "node-b" {
			t.Errorf("Expected to node-b, got %v", cmd.Args["to"])
		}
		if cmd.Args["message"] != "urgent payload" {
			t.Errorf("Expected message 'urgent payload', got %v", cmd.Args["message"])
		}
		if cmd.Args["priority"] != 9 {
			t.Errorf("Expected priority 9, got %v", cmd.Args["priority"])
		}
	})

	t.Run("FRAMES Command with Limit", func(t *testing.T) {
		cmd, err := ParseCommand("FRAMES:20")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["limit"] != "20" {
			t.Errorf("Expected limit 20, got %v", cmd.Args["limit"])
		}
	})

	t.Run("FRAMES Command with Since", func(t *testing.T) {
		cmd, err := ParseCommand("FRAMES:since:123456789")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["since"] != "123456789" {
			t.Errorf("Expected since 123456789, got %v", cmd.Args["since"])
		}
	})

	t.Run("CONFIG Command Set", func(t *testing.T) {
		cmd, err := ParseCommand("CONFIG:set:band:audible")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["action"] != "set" {
			t.Errorf("Expected action set, got %v", cmd.Args["action"])
		}
		if cmd.Args["key"] != "band" {
			t.Errorf("Expected key band, got %v", cmd.Args["key"])
		}
		if cmd.Args["value"] != "audible" {
			t.Errorf("Expected value audible, got %v", cmd.Args["value"])
		}
	})

	t.Run("CONFIG Command Get", func(t *testing.T) {
		cmd, err := ParseCommand("CONFIG:get:band")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Args["action"] != "get" {
			t.Errorf("Expected action get, got %v", cmd.Args["action"])
		}
		if _, exists := cmd.Args["value"]; exists {
			t.Errorf("Expected no value for get command, got %v", cmd.Args["value"])
		}
	})

	t.Run("Simple Commands", func(t *testing.T) {
		commands := []string{"QUIT", "PING", "PEERS", "BAND"}
		for _, cmdText := range commands {
			t.Run(cmdText, func(t *testing.T) {
				cmd, err := ParseCommand(cmdText)
				if err != nil {
					t.Fatalf("Expected no error for %s, got: %v", cmdText, err)
				}
				if cmd.Type != cmdText {
					t.Errorf("Expected type %s, got %s", cmdText, cmd.Type)
				}
			})
		}
	})

	t.Run("Case Insensitive", func(t *testing.T) {
		cmd, err := ParseCommand("status")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "STATUS" {
			t.Errorf("Expected uppercase STATUS, got %s", cmd.Type)
		}
	})

	t.Run("Whitespace Handling", func(t *testing.T) {
		cmd, err := ParseCommand("  PING  ")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "PING" {
			t.Errorf("Expected type PING, got %s", cmd.Type)
		}
	})

	t.Run("Unknown Command", func(t *testing.T) {
		cmd, err := ParseCommand("UNKNOWN:test")
		if err != nil {
			t.Fatalf("Expected no error for unknown command, got: %v", err)
		}
		if cmd.Type != "UNKNOWN" {
			t.Errorf("Expected type UNKNOWN, got %s", cmd.Type)
		}
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for unknown command, got %d", len(cmd.Args))
		}
	})

	t.Run("Empty Command", func(t *testing.T) {
		cmd, err := ParseCommand("")
		if err != nil {
			t.Fatalf("Expected no error for empty command, got: %v", err)
		}
		if cmd.Type != "" {
			t.Errorf("Expected empty type, got %s", cmd.Type)
		}
	})
}

func TestResponse(t *testing.T) {
	t.Run("Success Response JSON", func(t *testing.T) {
		data := map[string]interface{}{
			"device_id": "node-a",
			"connected": true,
		}
		resp := NewSuccessResponse(data)

		if !resp.Success {
			t.Error("Expected success to be true")
		}
		if resp.Error != "" {
			t.Errorf("Expected no error, got %s", resp.Error)
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}
		if parsed["success"] != true {
			t.Error("Expected success true in JSON")
		}
	})

	t.Run("Error Response JSON", func(t *testing.T) {
		resp := NewErrorResponse("invalid command")
		if resp.Success {
			t.Error("Expected success to be false")
		}
		if resp.Error != "invalid command" {
			t.Errorf("Expected error 'invalid command', got %s", resp.Error)
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}
		if parsed["error"] != "invalid command" {
			t.Errorf("Expected error in JSON, got %v", parsed["error"])
		}
	})
}

func TestFrameRecordJSONRoundTrip(t *testing.T) {
	rec := FrameRecord{
		ID:        123,
		Timestamp: time.Now(),
		Peer:      "node-b",
		Direction: "rx",
		Payload:   "hello mesh",
		Priority:  5,
		Slot:      3,
		Corrected: 1,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal FrameRecord: %v", err)
	}

	var parsed FrameRecord
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal FrameRecord: %v", err)
	}
	if parsed.Peer != "node-b" || parsed.Payload != "hello mesh" || parsed.Priority != 5 {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	startTime := time.Now()
	status := Status{
		DeviceID:    "node-a",
		Band:        "ultrasonic",
		MACMode:     "contention",
		Slots:       []int{2, 9},
		Utilization: 0.1,
		PeerCount:   3,
		Uptime:      "1h30m",
		StartTime:   startTime,
		Version:     "0.1.0",
	}

	data, err := json.Marshal(status)
	if err != nil {
		t.Fatalf("Failed to marshal status: %v", err)
	}

	var parsed Status
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal status: %v", err)
	}
	if parsed.DeviceID != "node-a" || parsed.PeerCount != 3 || len(parsed.Slots) != 2 {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestConstants(t *testing.T) {
	constants := map[string]string{
		"STATUS":   CmdStatus,
		"FRAMES":   CmdFrames,
		"SEND":     CmdSend,
		"PRIORITY": CmdPriority,
		"PEERS":    CmdPeers,
		"BAND":     CmdBand,
		"CONFIG":   CmdConfig,
		"QUIT":     CmdQuit,
		"PING":     CmdPing,
	}

	for expected, constant := range constants {
		if constant != expected {
			t.Errorf("Expected constant %s to equal %s, got %s", expected, expected, constant)
		}
	}
}

func TestProtocolIntegration(t *testing.T) {
	t.Run("Complete Flow", func(t *testing.T) {
		cmd, err := ParseCommand("SEND:node-b Test message from integration test")
		if err != nil {
			t.Fatalf("Failed to parse command: %v", err)
		}

		responseData := map[string]interface{}{
			"status": "queued",
			"frame": map[string]interface{}{
				"to":      cmd.Args["to"],
				"message": cmd.Args["message"],
			},
		}
		resp := NewSuccessResponse(responseData)
		jsonStr := resp.String()

		if !strings.Contains(jsonStr, "queued") {
			t.Error("Expected 'queued' in response JSON")
		}
		if !strings.Contains(jsonStr, "node-b") {
			t.Error("Expected 'node-b' in response JSON")
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Response is not valid JSON: %v", err)
		}
	})

	t.Run("Error Flow", func(t *testing.T) {
		resp := NewErrorResponse("command parsing failed: invalid syntax")
		jsonStr := resp.String()

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Error response is not valid JSON: %v", err)
		}
		if parsed["success"] != false {
			t.Error("Expected success false for error response")
		}
	})
}
