package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"
)

// Config represents the acoumesh daemon's configuration.
type Config struct {
	Device struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"device"`

	Band struct {
		// Mode selects a named band preset: "audible" or "ultrasonic".
		Mode string `yaml:"mode"`
	} `yaml:"band"`

	Timing struct {
		SampleRate          int     `yaml:"sample_rate"`
		SymbolDurationMs     float64 `yaml:"symbol_duration_ms"`
		GuardIntervalMs      float64 `yaml:"guard_interval_ms"`
		PreambleDurationMs   float64 `yaml:"preamble_duration_ms"`
	} `yaml:"timing"`

	MAC struct {
		Mode             string `yaml:"mode"` // "coordinator" or "contention"
		FrameDurationMs  int    `yaml:"frame_duration_ms"`
		SlotDurationMs   int    `yaml:"slot_duration_ms"`
		RequestedSlots   int    `yaml:"requested_slots"`
		DefaultPriority  int    `yaml:"default_priority"`
	} `yaml:"mac"`

	Audio struct {
		InputDevice  string `yaml:"input_device"`
		OutputDevice string `yaml:"output_device"`
		BufferSize   int    `yaml:"buffer_size"`
		Backend      string `yaml:"backend"` // "portaudio" or "mock"
	} `yaml:"audio"`

	Mesh struct {
		GossipIntervalMs int `yaml:"gossip_interval_ms"`
		PeerTimeoutMs    int `yaml:"peer_timeout_ms"`
	} `yaml:"mesh"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	API struct {
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxFrames    int    `yaml:"max_frames"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`    // megabytes
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"` // days
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file, filling in defaults
// for any field left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Device.ID == "" {
		c.Device.ID = uuid.New().String()
	}
	if c.Device.Name == "" {
		c.Device.Name = "acoumesh-node"
	}
	if c.Band.Mode == "" {
		c.Band.Mode = "ultrasonic"
	}
	if c.Timing.SampleRate == 0 {
		c.Timing.SampleRate = 44100
	}
	if c.Timing.SymbolDurationMs == 0 {
		c.Timing.SymbolDurationMs = 10
	}
	if c.Timing.GuardIntervalMs == 0 {
		c.Timing.GuardIntervalMs = 2
	}
	if c.Timing.PreambleDurationMs == 0 {
		c.Timing.PreambleDurationMs = 100
	}
	if c.MAC.Mode == "" {
		c.MAC.Mode = "contention"
	}
	if c.MAC.FrameDurationMs == 0 {
		c.MAC.FrameDurationMs = 1000
	}
	if c.MAC.SlotDurationMs == 0 {
		c.MAC.SlotDurationMs = 50
	}
	if c.MAC.RequestedSlots == 0 {
		c.MAC.RequestedSlots = 1
	}
	if c.Audio.BufferSize == 0 {
		c.Audio.BufferSize = 2048
	}
	if c.Audio.InputDevice == "" {
		c.Audio.InputDevice = "default"
	}
	if c.Audio.OutputDevice == "" {
		c.Audio.OutputDevice = "default"
	}
	if c.Audio.Backend == "" {
		c.Audio.Backend = "mock"
	}
	if c.Mesh.GossipIntervalMs == 0 {
		c.Mesh.GossipIntervalMs = 5000
	}
	if c.Mesh.PeerTimeoutMs == 0 {
		c.Mesh.PeerTimeoutMs = 30000
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "0.0.0.0"
	}
	if c.API.UnixSocket == "" {
		c.API.UnixSocket = "/tmp/acoumeshd.sock"
	}
	if c.Storage.MaxFrames == 0 {
		c.Storage.MaxFrames = 10000
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "acoumesh.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 30
	}
}

// Validate checks invariants LoadConfig's defaulting cannot fill in on
// its own.
func (c *Config) Validate() error {
	if _, err := uuid.Parse(c.Device.ID); err != nil {
		return fmt.Errorf("device id must be a valid uuid: %w", err)
	}
	if c.Band.Mode != "audible" && c.Band.Mode != "ultrasonic" {
		return fmt.Errorf("band mode must be 'audible' or 'ultrasonic', got %q", c.Band.Mode)
	}
	if c.MAC.Mode != "coordinator" && c.MAC.Mode != "contention" {
		return fmt.Errorf("mac mode must be 'coordinator' or 'contention', got %q", c.MAC.Mode)
	}
	if c.MAC.SlotDurationMs <= 0 || c.MAC.FrameDurationMs <= 0 {
		return fmt.Errorf("mac frame/slot durations must be positive")
	}
	if c.MAC.FrameDurationMs%c.MAC.SlotDurationMs != 0 {
		return fmt.Errorf("mac slot duration must divide evenly into frame duration")
	}
	if c.Audio.Backend != "portaudio" && c.Audio.Backend != "mock" {
		return fmt.Errorf("audio backend must be 'portaudio' or 'mock', got %q", c.Audio.Backend)
	}
	return nil
}
