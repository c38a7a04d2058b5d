package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Command represents a command sent to the daemon over the control socket.
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the daemon.
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// FrameRecord describes a frame observed by the daemon, sent or received.
type FrameRecord struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Peer      string    `json:"peer"`
	Direction string    `json:"direction"` // "tx" or "rx"
	Payload   string    `json:"payload"`
	Priority  int       `json:"priority"`
	Slot      int       `json:"slot"`
	Corrected int       `json:"corrected"`
}

// Status represents the current daemon status.
type Status struct {
	DeviceID   string    `json:"device_id"`
	Band       string    `json:"band"`
	MACMode    string    `json:"mac_mode"`
	Slots      []int     `json:"slots"`
	Utilization float64  `json:"utilization"`
	PeerCount  int       `json:"peer_count"`
	Uptime     string    `json:"uptime"`
	StartTime  time.Time `json:"start_time"`
	Version    string    `json:"version"`
}

// ParseCommand parses a text command into a Command struct.
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) > 1 {
		args := parts[1]

		switch cmd.Type {
		case CmdSend:
			// SEND:<peer> <message>
			sendParts := strings.SplitN(args, " ", 2)
			if len(sendParts) >= 2 {
				cmd.Args["to"] = sendParts[0]
				cmd.Args["message"] = sendParts[1]
			} else {
				cmd.Args["to"] = ""
				cmd.Args["message"] = args
			}

		case CmdPriority:
			// PRIORITY:<peer>:<message>:<priority>
			priorityParts := strings.SplitN(args, ":", 3)
			if len(priorityParts) == 3 {
				cmd.Args["to"] = priorityParts[0]
				cmd.Args["message"] = priorityParts[1]
				if p, err := strconv.Atoi(priorityParts[2]); err == nil {
					cmd.Args["priority"] = p
				}
			}

		case CmdFrames:
			// FRAMES:10 or FRAMES:since:123
			if strings.Contains(args, "since:") {
				sinceParts := strings.Split(args, "since:")
				if len(sinceParts) > 1 {
					cmd.Args["since"] = sinceParts[1]
				}
			} else {
				cmd.Args["limit"] = args
			}

		case CmdConfig:
			// CONFIG:set:key:value or CONFIG:get:key
			configParts := strings.SplitN(args, ":", 3)
			if len(configParts) >= 1 {
				cmd.Args["action"] = configParts[0]
			}
			if len(configParts) >= 2 {
				cmd.Args["key"] = configParts[1]
			}
			if len(configParts) >= 3 {
				cmd.Args["value"] = configParts[2]
			}
		}
	}

	return cmd, nil
}

// String converts a Response to its wire JSON representation.
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(err string) *Response {
	return &Response{Success: false, Error: err}
}

// Protocol commands.
const (
	CmdStatus   = "STATUS"
	CmdFrames   = "FRAMES"
	CmdSend     = "SEND"
	CmdPriority = "PRIORITY"
	CmdPeers    = "PEERS"
	CmdBand     = "BAND"
	CmdConfig   = "CONFIG"
	CmdQuit     = "QUIT"
	CmdPing     = "PING"
)
