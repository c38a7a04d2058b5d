package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acoumesh/acoumesh/pkg/client"
	"github.com/acoumesh/acoumesh/pkg/config"
	"github.com/acoumesh/acoumesh/pkg/engine"
	"github.com/acoumesh/acoumesh/pkg/verbose"
)

// Version is the daemon's reported version, kept in lockstep with the
// engine's own version constant.
var Version = engine.Version

// Daemon wires the acoustic mesh engine to a browser-facing HTTP API.
// It talks to the engine through the engine's Unix-socket control
// protocol, except for the metrics, audio and live-frame-feed routes,
// which hold a direct engine reference.
type Daemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	eng          *engine.Engine
	socketClient *client.SocketClient
	webServer    *http.Server
}

// NewDaemon creates a new daemon instance.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socketPath := cfg.API.UnixSocket
	if socketPath == "" {
		socketPath = "/tmp/acoumeshd.sock"
	}

	eng, err := engine.NewEngine(cfg, socketPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	d := &Daemon{
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		eng:          eng,
		socketClient: client.NewSocketClient(socketPath),
	}

	if err := d.setupWebServer(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup web server: %w", err)
	}

	return d, nil
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	log.Printf("Starting acoumeshd daemon...")
	verbose.Printf("device id=%s band=%s mac=%s", d.config.Device.ID, d.config.Band.Mode, d.config.MAC.Mode)

	if err := d.eng.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	verbose.Println("engine started, control socket ready")

	time.Sleep(100 * time.Millisecond)

	if !d.socketClient.IsConnected() {
		return fmt.Errorf("failed to connect to engine socket")
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
		log.Printf("Starting web server on %s", addr)
		verbose.Printf("routes mounted: /api/v1/status, /api/v1/send, /api/v1/peers, /api/v1/frames, /api/v1/audio, /metrics, /ws/frames")
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	log.Printf("Stopping daemon...")

	d.cancel()

	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}

	if d.eng != nil {
		if err := d.eng.Stop(); err != nil {
			log.Printf("Engine shutdown error: %v", err)
		}
	}

	d.wg.Wait()

	log.Printf("Daemon stopped")
	return nil
}

// setupWebServer initializes the web server and routes.
func (d *Daemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/frames", d.handleGetFrames)
		api.POST("/send", d.handleSendFrame)
		api.GET("/peers", d.handleGetPeers)
		api.GET("/audio", d.handleGetAudioStats)
	}

	router.GET("/metrics", gin.WrapH(d.eng.Metrics().Handler()))
	router.GET("/ws/frames", d.handleFrameWebSocket)

	addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
	d.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}
