package main

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleGetStatus returns daemon status via the control socket.
func (d *Daemon) handleGetStatus(c *gin.Context) {
	status, err := d.socketClient.GetStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleGetFrames returns recently observed frames via the control socket.
func (d *Daemon) handleGetFrames(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 50
	}

	frames, err := d.socketClient.GetFrames(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frames": frames,
		"count":  len(frames),
	})
}

// handleSendFrame queues a payload for transmission via the control socket.
func (d *Daemon) handleSendFrame(c *gin.Context) {
	var req struct {
		To       string `json:"to"`
		Message  string `json:"message" binding:"required"`
		Priority int    `json:"priority"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if req.Priority > 0 {
		err = d.socketClient.SendPriorityFrame(req.To, req.Message, req.Priority)
	} else {
		err = d.socketClient.SendFrame(req.To, req.Message)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

// handleGetPeers returns the daemon's current peer table via the control socket.
func (d *Daemon) handleGetPeers(c *gin.Context) {
	peers, err := d.socketClient.GetPeers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, peers)
}

// handleGetAudioStats returns the engine's live input level/spectrum
// snapshot and monitor counters directly from the engine, since audio
// monitoring isn't part of the text control protocol.
func (d *Daemon) handleGetAudioStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"visualization": d.eng.AudioVisualization(),
		"statistics":    d.eng.AudioStatistics(),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleFrameWebSocket streams each frame the engine observes (transmitted
// or received) to the client as it happens, using the engine's own
// subscriber feed rather than polling the control socket.
func (d *Daemon) handleFrameWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	feed, unsubscribe := d.eng.Subscribe()
	defer unsubscribe()

	log.Printf("Frame WebSocket client connected")

	for {
		select {
		case rec, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(rec); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}
