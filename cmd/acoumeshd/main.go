package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acoumesh/acoumesh/pkg/config"
	"github.com/acoumesh/acoumesh/pkg/logging"
	"github.com/acoumesh/acoumesh/pkg/verbose"
)

var (
	configPath  = flag.String("config", "config.yaml", "Configuration file path")
	version     = flag.Bool("version", false, "Show version information")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose diagnostic logging")
)

const Build = "development"

func main() {
	flag.Parse()
	verbose.SetEnabled(*verboseFlag)

	if *version {
		fmt.Printf("acoumeshd version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitGlobalLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseGlobalLogger()

	logging.Info("main", fmt.Sprintf("acoumeshd version %s starting...", Version))
	logging.Info("main", fmt.Sprintf("device: %s (%s)", cfg.Device.Name, cfg.Device.ID))
	logging.Info("main", fmt.Sprintf("band: %s, mac: %s", cfg.Band.Mode, cfg.MAC.Mode))
	logging.Info("main", fmt.Sprintf("web interface: http://%s:%d", cfg.Web.BindAddress, cfg.Web.Port))

	daemon, err := NewDaemon(cfg)
	if err != nil {
		logging.Error("main", fmt.Sprintf("failed to create daemon: %v", err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Error("main", fmt.Sprintf("failed to start daemon: %v", err))
		os.Exit(1)
	}

	logging.Info("main", "acoumeshd started successfully")

	<-sigChan
	logging.Info("main", "shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Error("main", fmt.Sprintf("error during shutdown: %v", err))
	}

	logging.Info("main", "acoumeshd stopped")
}
