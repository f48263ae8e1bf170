// Command localcast casts a local video file to a DLNA renderer on the
// same network. It either runs a one-shot cast from the command line or
// serves a local JSON API for frontends to drive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wysentanu/localcast/internal/api"
	"github.com/wysentanu/localcast/internal/config"
	"github.com/wysentanu/localcast/internal/controller"
	"github.com/wysentanu/localcast/internal/dlna"
	"github.com/wysentanu/localcast/internal/library"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "localcast:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	var (
		apiMode  = flag.Bool("api", false, "serve the JSON API instead of casting once")
		apiAddr  = flag.String("api-addr", cfg.APIAddr, "API listen address")
		device   = flag.Int("device", 0, "renderer index to cast to")
		port     = flag.Int("port", cfg.MediaPort, "media server port")
		timeout  = flag.Duration("timeout", cfg.DiscoverTimeout, "SSDP discovery window")
		logLevel = flag.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <video file>\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "       %s -api [flags]\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.APIAddr = *apiAddr
	cfg.MediaPort = *port
	cfg.DiscoverTimeout = *timeout
	cfg.LogLevel = *logLevel

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("create data directories: %w", err)
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl := controller.New(controller.Options{
		Port:        cfg.MediaPort,
		Discoverer:  dlna.NewDiscoverer(cfg.DiscoverTimeout, logger),
		AVTransport: dlna.NewAVTransport(dlna.NewSOAPClient(10*time.Second, logger)),
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *apiMode {
		return runAPI(ctx, cfg, ctrl, logger)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		return errors.New("exactly one video file required")
	}
	return runCast(ctx, ctrl, flag.Arg(0), *device, logger)
}

// newLogger writes structured logs to the configured file, truncated at
// startup, and human readable output to stderr.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}

	file, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	logger := zerolog.New(zerolog.MultiLevelWriter(file, console)).
		Level(level).
		With().Timestamp().Logger()
	return logger, func() { file.Close() }, nil
}

// runAPI serves the JSON API until the context is cancelled.
func runAPI(ctx context.Context, cfg *config.Config, ctrl *controller.Controller, logger zerolog.Logger) error {
	lib, err := library.Open(cfg.DBPath, cfg.MediaPaths, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	srv := &http.Server{
		Addr:        cfg.APIAddr,
		Handler:     api.NewServer(ctrl, lib, logger).Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No WriteTimeout: the SSE status stream is long lived.
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.APIAddr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ctrl.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runCast performs a single cast: select the file, discover renderers, pick
// one, start playback, and stream until it stops or the user interrupts.
func runCast(ctx context.Context, ctrl *controller.Controller, path string, deviceIndex int, logger zerolog.Logger) error {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ctrl.Shutdown(shutdownCtx)
	}()

	if err := ctrl.SelectFile(ctx, path); err != nil {
		return err
	}

	fmt.Println("Searching for renderers...")
	devices, err := ctrl.Discover(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return controller.ErrNoDevices
	}
	for i, d := range devices {
		fmt.Printf("  [%d] %s\n", i, d.FriendlyName)
	}
	if err := ctrl.SelectDevice(deviceIndex); err != nil {
		return err
	}

	updates, cancel := ctrl.Subscribe()
	defer cancel()
	if err := ctrl.Cast(ctx); err != nil {
		return err
	}
	fmt.Printf("Casting %s to %s. Ctrl-C to stop.\n", path, devices[deviceIndex].FriendlyName)

	playing := false
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping playback.")
			return nil
		case st, open := <-updates:
			if !open {
				return nil
			}
			if st.State == string(dlna.StatePlaying) {
				playing = true
				fmt.Printf("\r%s / %s ", st.Elapsed, st.Duration)
			}
			if playing && st.State == string(dlna.StateStopped) {
				fmt.Println("\nPlayback finished.")
				return nil
			}
		}
	}
}
