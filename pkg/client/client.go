// Package client implements a Unix-socket control client for talking
// to the acoustic mesh daemon's line-oriented command protocol.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/acoumesh/acoumesh/pkg/protocol"
)

// SocketClient is a client connection to the daemon's control socket.
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends a raw command line and returns the parsed response.
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return nil, fmt.Errorf("no response received")
	}

	responseText := scanner.Text()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var response protocol.Response
	if err := json.Unmarshal([]byte(responseText), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// GetStatus retrieves the daemon's current status.
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.SendCommand(protocol.CmdStatus)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("status error: %s", resp.Error)
	}

	statusData, ok := resp.Data["status"]
	if !ok {
		return nil, fmt.Errorf("status not found in response")
	}

	statusJSON, _ := json.Marshal(statusData)
	var status protocol.Status
	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	return &status, nil
}

// GetFrames retrieves up to limit recently observed frames (0 for the
// daemon's default).
func (c *SocketClient) GetFrames(limit int) ([]protocol.FrameRecord, error) {
	cmd := protocol.CmdFrames
	if limit > 0 {
		cmd = fmt.Sprintf("%s:%d", protocol.CmdFrames, limit)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("frames error: %s", resp.Error)
	}

	framesData, ok := resp.Data["frames"]
	if !ok {
		return []protocol.FrameRecord{}, nil
	}

	framesJSON, _ := json.Marshal(framesData)
	var records []protocol.FrameRecord
	if err := json.Unmarshal(framesJSON, &records); err != nil {
		return nil, fmt.Errorf("failed to parse frames: %w", err)
	}

	return records, nil
}

// SendFrame queues a payload for transmission to the given peer
// (empty peer means broadcast) at the default priority.
func (c *SocketClient) SendFrame(to, payload string) error {
	cmd := fmt.Sprintf("%s:%s %s", protocol.CmdSend, to, payload)
	if to == "" {
		cmd = fmt.Sprintf("%s:%s", protocol.CmdSend, payload)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("send error: %s", resp.Error)
	}

	return nil
}

// SendPriorityFrame queues a payload for transmission at an explicit
// priority (0-10, higher serviced first).
func (c *SocketClient) SendPriorityFrame(to, payload string, priority int) error {
	cmd := fmt.Sprintf("%s:%s:%s:%d", protocol.CmdPriority, to, payload, priority)

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("priority send error: %s", resp.Error)
	}

	return nil
}

// GetPeers retrieves the daemon's current peer table.
func (c *SocketClient) GetPeers() (map[string]interface{}, error) {
	resp, err := c.SendCommand(protocol.CmdPeers)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("peers error: %s", resp.Error)
	}

	return resp.Data, nil
}

// Ping tests whether the daemon is reachable.
func (c *SocketClient) Ping() error {
	resp, err := c.SendCommand(protocol.CmdPing)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("ping error: %s", resp.Error)
	}

	return nil
}

// IsConnected reports whether the daemon responds to a PING.
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
