// Package engine wires the physical, signal-conditioning, encoding and
// MAC layers together into a running acoustic mesh node: it owns the
// audio source/sink, runs the producer and scheduler tasks described
// for the acoustic link layer, and exposes a Unix-socket control
// protocol for the command-line and HTTP front ends to drive it.
package engine

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/acoumesh/acoumesh/pkg/audio"
	"github.com/acoumesh/acoumesh/pkg/config"
	"github.com/acoumesh/acoumesh/pkg/mac"
	"github.com/acoumesh/acoumesh/pkg/mesh"
	"github.com/acoumesh/acoumesh/pkg/metrics"
	"github.com/acoumesh/acoumesh/pkg/physical"
	"github.com/acoumesh/acoumesh/pkg/protocol"
	"github.com/acoumesh/acoumesh/pkg/signalcond"
	"github.com/acoumesh/acoumesh/pkg/storage"
)

// Version is reported in STATUS responses.
const Version = "0.1.0-dev"

const (
	// ackWindow is how long a unicast DATA send waits for an ACK before
	// a retry is queued.
	ackWindow = 2 * time.Second
	// maxRetries bounds how many times an unacknowledged send is requeued
	// before it is abandoned and logged as mac.ErrAckTimeout.
	maxRetries = 3

	beaconPriority = 5
	ackPriority    = 10
)

// pendingSend tracks a unicast DATA send awaiting acknowledgement.
type pendingSend struct {
	frames   [][]byte
	priority int
	peer     uuid.UUID
	deadline time.Time
	retries  int
}

// reassemblyState accumulates fragments of one in-flight multi-fragment
// message. The producer task is its sole owner: the TDMA schedule
// guarantees at most one device's transmission is being demodulated at
// a time in the collision-free case, so a single in-flight buffer
// (rather than a per-sender table keyed off bytes the wire format does
// not carry until the first fragment is fully reassembled) is
// sufficient. A FirstFragment frame arriving while one is already open
// discards the old one.
type reassemblyState struct {
	msgType   byte
	fragments []fragmentRef
	corrected int
}

// Engine runs one acoustic mesh node: audio I/O, the DSP chain, and the
// TDMA scheduler, plus the control socket used by acoumeshctl and the
// daemon's HTTP API.
type Engine struct {
	config     *config.Config
	socketPath string
	deviceID   uuid.UUID
	deviceName string

	band   physical.BandConfig
	timing physical.TimingConfig

	listener net.Listener

	mutex     sync.RWMutex
	running   bool
	startTime time.Time

	currentSlot int32 // atomic; see getCurrentSlot/setCurrentSlot

	pipeline    *signalcond.Pipeline
	scheduler   *mac.Scheduler
	queueMu     sync.Mutex // guards every Tick/Enqueue/Dequeue/Requeue on scheduler.Queue()
	source      audio.AudioSource
	sink        audio.AudioSink
	collisionCh chan struct{}
	monitor     *audio.LevelMonitor

	discovery *mesh.Discovery
	router    *mesh.DirectRouter
	store     *storage.FrameStore
	metrics   *metrics.Registry

	beaconSeq uint32
	msgSeq    uint32

	pending map[uint32]*pendingSend
	pendMu  sync.Mutex

	reassembling *reassemblyState

	subMu       sync.RWMutex
	subscribers map[chan protocol.FrameRecord]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewEngine constructs an Engine from cfg, ready for Start. socketPath
// overrides cfg.API.UnixSocket when non-empty (used by tests to avoid
// colliding on a shared default path).
func NewEngine(cfg *config.Config, socketPath string) (*Engine, error) {
	deviceID, err := uuid.Parse(cfg.Device.ID)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid device id: %w", err)
	}

	if socketPath == "" {
		socketPath = cfg.API.UnixSocket
	}

	band := physical.AudibleBand()
	if cfg.Band.Mode == "ultrasonic" {
		band = physical.UltrasonicBand()
	}

	timing := physical.TimingConfig{
		SampleRate:       cfg.Timing.SampleRate,
		SymbolDuration:   cfg.Timing.SymbolDurationMs / 1000,
		GuardInterval:    cfg.Timing.GuardIntervalMs / 1000,
		PreambleDuration: cfg.Timing.PreambleDurationMs / 1000,
	}

	macCfg := mac.Config{
		FrameDuration: time.Duration(cfg.MAC.FrameDurationMs) * time.Millisecond,
		SlotDuration:  time.Duration(cfg.MAC.SlotDurationMs) * time.Millisecond,
	}
	mode := mac.ModeContention
	if cfg.MAC.Mode == "coordinator" {
		mode = mac.ModeCoordinator
	}
	scheduler := mac.NewScheduler(macCfg, mode, deviceID, cfg.MAC.RequestedSlots, cfg.MAC.DefaultPriority, time.Now())

	audioCfg := audio.Config{Device: cfg.Audio.InputDevice, SampleRate: timing.SampleRate, BufferSize: cfg.Audio.BufferSize}
	source, err := audio.NewSource(cfg.Audio.Backend, audioCfg)
	if err != nil {
		return nil, fmt.Errorf("engine: audio source: %w", err)
	}
	sinkCfg := audio.Config{Device: cfg.Audio.OutputDevice, SampleRate: timing.SampleRate, BufferSize: cfg.Audio.BufferSize}
	sink, err := audio.NewSink(cfg.Audio.Backend, sinkCfg)
	if err != nil {
		return nil, fmt.Errorf("engine: audio sink: %w", err)
	}

	store, err := storage.NewFrameStore(cfg.Storage.DatabasePath, cfg.Storage.MaxFrames)
	if err != nil {
		return nil, fmt.Errorf("engine: frame store: %w", err)
	}

	discovery := mesh.NewDiscovery(time.Duration(cfg.Mesh.PeerTimeoutMs) * time.Millisecond)

	return &Engine{
		config:      cfg,
		socketPath:  socketPath,
		deviceID:    deviceID,
		deviceName:  cfg.Device.Name,
		band:        band,
		timing:      timing,
		pipeline:    signalcond.NewPipeline(band, timing.SampleRate),
		scheduler:   scheduler,
		source:      source,
		sink:        sink,
		collisionCh: make(chan struct{}, 1),
		monitor:     audio.NewLevelMonitor(timing.SampleRate, 1024),
		discovery:   discovery,
		router:      mesh.NewDirectRouter(discovery),
		store:       store,
		metrics:     metrics.NewRegistry(),
		pending:     make(map[uint32]*pendingSend),
		subscribers: make(map[chan protocol.FrameRecord]struct{}),
		stopCh:      make(chan struct{}),
	}, nil
}

// Metrics exposes the engine's prometheus registry, e.g. for mounting
// its handler on the daemon's HTTP router.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// AudioVisualization returns the most recent input level/spectrum
// snapshot, for the daemon's audio-monitoring UI.
func (e *Engine) AudioVisualization() audio.VisualizationData { return e.monitor.VisualizationData() }

// AudioStatistics returns level-monitor counters (sample/clip counts).
func (e *Engine) AudioStatistics() map[string]interface{} { return e.monitor.Statistics() }

// DeviceID reports the local device identifier.
func (e *Engine) DeviceID() uuid.UUID { return e.deviceID }

// Subscribe registers for a live feed of every frame the engine stores
// (sent or received). The returned cancel func must be called when the
// caller is done to release the channel.
func (e *Engine) Subscribe() (<-chan protocol.FrameRecord, func()) {
	ch := make(chan protocol.FrameRecord, 16)
	e.subMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.subMu.Unlock()

	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
	}
}

func (e *Engine) publish(rec protocol.FrameRecord) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for ch := range e.subscribers {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (e *Engine) getCurrentSlot() int {
	return int(atomic.LoadInt32(&e.currentSlot))
}

func (e *Engine) setCurrentSlot(slot int) {
	atomic.StoreInt32(&e.currentSlot, int32(slot))
}

// Start opens the control socket and launches the producer and
// scheduler tasks.
func (e *Engine) Start() error {
	e.mutex.Lock()
	e.running = true
	e.startTime = time.Now()
	e.mutex.Unlock()

	if err := e.source.Start(); err != nil {
		return fmt.Errorf("engine: start audio source: %w", err)
	}
	if err := e.sink.Start(); err != nil {
		return fmt.Errorf("engine: start audio sink: %w", err)
	}
	e.monitor.Start()

	os.Remove(e.socketPath)
	listener, err := net.Listen("unix", e.socketPath)
	if err != nil {
		return fmt.Errorf("engine: listen on control socket: %w", err)
	}
	e.listener = listener
	if err := os.Chmod(e.socketPath, 0660); err != nil {
		log.Printf("engine: warning: failed to set socket permissions: %v", err)
	}

	log.Printf("engine: listening on %s (device=%s band=%s mac=%s)", e.socketPath, e.deviceID, e.config.Band.Mode, e.config.MAC.Mode)

	e.wg.Add(3)
	go e.producerTask()
	go e.schedulerTask()
	go e.acceptConnections()

	return nil
}

// Stop signals every task to exit, closes the control socket, blocks
// until the producer and scheduler tasks have both returned, and then
// empties the transmit queue.
func (e *Engine) Stop() error {
	e.mutex.Lock()
	e.running = false
	e.mutex.Unlock()

	close(e.stopCh)

	if e.listener != nil {
		e.listener.Close()
	}
	if err := e.source.Stop(); err != nil {
		log.Printf("engine: warning: audio source stop: %v", err)
	}
	if err := e.sink.Stop(); err != nil {
		log.Printf("engine: warning: audio sink stop: %v", err)
	}
	e.monitor.Stop()

	e.wg.Wait()

	e.queueMu.Lock()
	for e.scheduler.Queue().Dequeue() != nil {
	}
	e.queueMu.Unlock()

	if e.store != nil {
		e.store.Close()
	}
	os.Remove(e.socketPath)
	return nil
}

func (e *Engine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

func (e *Engine) acceptConnections() {
	defer e.wg.Done()
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			if !e.isRunning() {
				return
			}
			select {
			case <-e.stopCh:
				return
			default:
				log.Printf("engine: accept error: %v", err)
				continue
			}
		}
		go e.handleConnection(conn)
	}
}

func (e *Engine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			writeResponse(writer, protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err)))
			continue
		}

		resp := e.handleCommand(cmd)
		writeResponse(writer, resp)

		if cmd.Type == protocol.CmdQuit {
			return
		}
	}
}

func writeResponse(w *bufio.Writer, resp *protocol.Response) {
	fmt.Fprintln(w, resp.String())
	w.Flush()
}

func (e *Engine) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return e.handleStatus()
	case protocol.CmdFrames:
		return e.handleFrames(cmd)
	case protocol.CmdSend:
		return e.handleSend(cmd)
	case protocol.CmdPriority:
		return e.handlePriority(cmd)
	case protocol.CmdPeers:
		return e.handlePeers()
	case protocol.CmdBand:
		return e.handleBand()
	case protocol.CmdConfig:
		return e.handleConfig(cmd)
	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{"pong": time.Now().Unix()})
	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{"message": "goodbye"})
	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

func (e *Engine) handleStatus() *protocol.Response {
	status := protocol.Status{
		DeviceID:    e.deviceID.String(),
		Band:        e.config.Band.Mode,
		MACMode:     e.config.MAC.Mode,
		Slots:       e.scheduler.Table().LocalSlots(),
		Utilization: e.scheduler.Utilization(),
		PeerCount:   e.discovery.Count(),
		Uptime:      time.Since(e.startTime).String(),
		StartTime:   e.startTime,
		Version:     Version,
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": status})
}

func (e *Engine) handleFrames(cmd *protocol.Command) *protocol.Response {
	query := storage.FrameQuery{Limit: 50}
	if l, ok := cmd.Args["limit"].(string); ok {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			query.Limit = n
		}
	}
	if since, ok := cmd.Args["since"].(string); ok {
		if n, err := strconv.ParseInt(since, 10, 64); err == nil {
			t := time.Unix(n, 0)
			query.Since = &t
		}
	}

	records, err := e.store.GetFrames(query)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("frames: %v", err))
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"frames": records, "count": len(records)})
}

func (e *Engine) handleSend(cmd *protocol.Command) *protocol.Response {
	to, _ := cmd.Args["to"].(string)
	message, _ := cmd.Args["message"].(string)
	if message == "" {
		return protocol.NewErrorResponse("message cannot be empty")
	}

	if err := e.SendFrame(to, message, e.config.MAC.DefaultPriority); err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": "queued", "to": to, "message": message})
}

func (e *Engine) handlePriority(cmd *protocol.Command) *protocol.Response {
	to, _ := cmd.Args["to"].(string)
	message, _ := cmd.Args["message"].(string)
	if message == "" {
		return protocol.NewErrorResponse("message cannot be empty")
	}
	priority := e.config.MAC.DefaultPriority
	if p, ok := cmd.Args["priority"].(int); ok {
		priority = p
	}

	if err := e.SendFrame(to, message, priority); err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": "queued", "to": to, "message": message, "priority": priority})
}

func (e *Engine) handlePeers() *protocol.Response {
	peers := e.discovery.Peers()
	out := make([]map[string]interface{}, 0, len(peers))
	for _, p := range peers {
		out = append(out, map[string]interface{}{
			"id":           p.ID.String(),
			"name":         p.Name,
			"last_seen":    p.LastSeen,
			"beacon_count": p.BeaconCount,
		})
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"peers": out, "count": len(out)})
}

func (e *Engine) handleBand() *protocol.Response {
	return protocol.NewSuccessResponse(map[string]interface{}{
		"mode":            e.config.Band.Mode,
		"base_freq":       e.band.BaseFreq,
		"freq_spacing":    e.band.FreqSpacing,
		"num_frequencies": e.band.NumFrequencies,
		"bandwidth":       e.band.Bandwidth,
	})
}

func (e *Engine) handleConfig(cmd *protocol.Command) *protocol.Response {
	action, _ := cmd.Args["action"].(string)
	key, _ := cmd.Args["key"].(string)

	switch action {
	case "get":
		switch key {
		case "band":
			return protocol.NewSuccessResponse(map[string]interface{}{"key": key, "value": e.config.Band.Mode})
		case "mac_mode":
			return protocol.NewSuccessResponse(map[string]interface{}{"key": key, "value": e.config.MAC.Mode})
		case "device_name":
			return protocol.NewSuccessResponse(map[string]interface{}{"key": key, "value": e.deviceName})
		default:
			return protocol.NewErrorResponse(fmt.Sprintf("unknown config key: %s", key))
		}
	case "set":
		return protocol.NewErrorResponse("config changes require a daemon restart")
	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown config action: %q", action))
	}
}
