package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/usbwatch/usbwatch/hotplug"
	"github.com/usbwatch/usbwatch/internal/config"
	"github.com/usbwatch/usbwatch/internal/ui"
)

var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(versionFlag, "v", false, "Print version and exit (shorthand)")

	configPath := flag.String("config", "", "Path to config file")
	initConfig := flag.Bool("init", false, "Generate example config file")
	noTUI := flag.Bool("no-tui", false, "Headless mode for CI/scripting")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("usbwatch %s\n", version)
		os.Exit(0)
	}

	if *initConfig {
		path, err := config.GenerateExampleConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created config at %s\n", path)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *noTUI {
		if err := runHeadless(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	stream, err := hotplug.NewStreamWithOptions(hotplug.Options{
		ScanInterval: time.Duration(cfg.Watch.ScanInterval),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	// Launch TUI
	model := ui.NewModel(cfg, stream)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runHeadless prints hotplug events as log lines until interrupted
func runHeadless(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := hotplug.NewStreamWithOptions(hotplug.Options{
		ScanInterval: time.Duration(cfg.Watch.ScanInterval),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("open hotplug stream: %w", err)
	}
	defer stream.Close()

	logger.Info("watching for USB devices", "version", version)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case event, ok := <-stream.Events():
			if !ok {
				return nil
			}
			switch event.Type {
			case hotplug.DeviceArrived:
				info := event.Info
				if info == nil {
					continue
				}
				if !cfg.Filter.Match(info.VendorID, info.ProductID) {
					logger.Debug("filtered device", "device", info.String())
					continue
				}
				logger.Info("device connected",
					"vendor_id", fmt.Sprintf("%04x", info.VendorID),
					"product_id", fmt.Sprintf("%04x", info.ProductID),
					"product", info.Product,
					"id", info.ID.String(),
				)
			case hotplug.DeviceLeft:
				logger.Info("device disconnected", "id", event.ID.String())
			}
		}
	}
}
