// Command dua-device runs a Thread device's Domain Unicast Address
// manager against a Backbone Router.
//
// Usage:
//
//	dua-device [flags]
//
// Flags:
//
//	-config string     YAML configuration file
//	-network string    Thread network name (default "OpenHouse")
//	-ext-addr string   Device EUI-64 as 16 hex digits (random if empty)
//	-mesh-iid string   Mesh-local IID as 16 hex digits (random if empty)
//	-server string     Backbone Router endpoint host:port (mDNS discovery if empty)
//	-listen string     Local UDP address (default ":0")
//	-settings string   Settings file path (in-memory if empty)
//	-children int      Child table capacity for proxy registration (0 disables)
//	-event-log string  CBOR event capture file
//	-log-level string  Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Register against a known Backbone Router
//	dua-device -server 192.0.2.1:61631 -settings /var/lib/dua/device.json
//
//	# Discover the Backbone Router over mDNS
//	dua-device -network OpenHouse -children 16
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thread-protocol/dua-go/cmd/dua-device/interactive"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/service"
)

// fileConfig is the YAML configuration file layout. Flags override file
// values.
type fileConfig struct {
	NetworkName     string `yaml:"network_name"`
	ExtendedAddress string `yaml:"extended_address"`
	MeshLocalIID    string `yaml:"mesh_local_iid"`
	ServerAddress   string `yaml:"server_address"`
	ListenAddress   string `yaml:"listen_address"`
	SettingsPath    string `yaml:"settings_path"`
	MaxChildren     int    `yaml:"max_children"`
	EventLog        string `yaml:"event_log"`
	LogLevel        string `yaml:"log_level"`
}

func main() {
	var (
		configFile = flag.String("config", "", "YAML configuration file")
		network    = flag.String("network", "", "Thread network name")
		extAddr    = flag.String("ext-addr", "", "device EUI-64 as 16 hex digits")
		meshIID    = flag.String("mesh-iid", "", "mesh-local IID as 16 hex digits")
		server     = flag.String("server", "", "Backbone Router endpoint host:port")
		listen     = flag.String("listen", "", "local UDP address")
		settings   = flag.String("settings", "", "settings file path")
		children   = flag.Int("children", 0, "child table capacity (0 disables proxying)")
		eventLog   = flag.String("event-log", "", "CBOR event capture file")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg := fileConfig{
		NetworkName:   "OpenHouse",
		ListenAddress: ":0",
		LogLevel:      "info",
	}
	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			stdlog.Fatalf("Failed to read config: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			stdlog.Fatalf("Failed to parse config: %v", err)
		}
	}
	applyFlag(&cfg.NetworkName, *network)
	applyFlag(&cfg.ExtendedAddress, *extAddr)
	applyFlag(&cfg.MeshLocalIID, *meshIID)
	applyFlag(&cfg.ServerAddress, *server)
	applyFlag(&cfg.ListenAddress, *listen)
	applyFlag(&cfg.SettingsPath, *settings)
	applyFlag(&cfg.EventLog, *eventLog)
	applyFlag(&cfg.LogLevel, *logLevel)
	if *children > 0 {
		cfg.MaxChildren = *children
	}

	if cfg.ExtendedAddress == "" {
		cfg.ExtendedAddress = randomHex64()
		stdlog.Printf("Generated extended address: %s", cfg.ExtendedAddress)
	}
	if cfg.MeshLocalIID == "" {
		cfg.MeshLocalIID = randomHex64()
		stdlog.Printf("Generated mesh-local IID: %s", cfg.MeshLocalIID)
	}

	logger, closeLogger, err := buildLogger(cfg.LogLevel, cfg.EventLog)
	if err != nil {
		stdlog.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogger()

	svc, err := service.NewDeviceService(service.DeviceConfig{
		ExtendedAddress: cfg.ExtendedAddress,
		NetworkName:     cfg.NetworkName,
		MeshLocalIID:    cfg.MeshLocalIID,
		SettingsPath:    cfg.SettingsPath,
		ListenAddress:   cfg.ListenAddress,
		ServerAddress:   cfg.ServerAddress,
		RequestTimeout:  5 * time.Second,
		MaxChildren:     cfg.MaxChildren,
		Logger:          logger,
	})
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start service: %v", err)
	}
	defer func() { _ = svc.Stop() }()

	stdlog.Printf("DUA device started (network %q)", cfg.NetworkName)
	if cfg.ServerAddress == "" {
		stdlog.Println("Browsing for a Backbone Router via mDNS...")
	}

	dev, err := interactive.New(svc)
	if err != nil {
		stdlog.Fatalf("Failed to start interactive mode: %v", err)
	}
	dev.Run(ctx, cancel)
}

// applyFlag overrides dst when the flag was set.
func applyFlag(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// randomHex64 returns 8 random bytes as 16 hex digits.
func randomHex64() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// buildLogger assembles the console logger plus the optional CBOR event
// capture.
func buildLogger(level, eventLog string) (log.Logger, func(), error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	console := log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})))

	if eventLog == "" {
		return console, func() {}, nil
	}

	capture, err := log.NewFileLogger(eventLog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return log.NewMultiLogger(console, capture), func() { _ = capture.Close() }, nil
}
