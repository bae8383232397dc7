package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"theta_preview/native/internal/api"
	"theta_preview/native/internal/config"
	"theta_preview/native/internal/control"
	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"
	"theta_preview/native/internal/relay"
	sigclient "theta_preview/native/internal/signal"
	"theta_preview/native/internal/viewer"
	"theta_preview/native/internal/webrtc"

	"golang.org/x/sync/errgroup"
)

const helpText = `thetapreview - Live preview and still capture for a THETA camera over WebRTC

Usage:
  thetapreview [options]

The raw H264 preview is written to stdout. Pipe to ffplay or ffmpeg for
playback or recording. Shooting and settings are driven through the local
control API.

Environment Variables:
  THETA_HOST                   Camera host name or address (required)
  THETA_HTTP_PORT              Command endpoint port, signaling uses port+1 (default 8888)
  THETA_VIDEO_SIZE             Initial preview size, 2K or 4K (default 2K)
  THETA_CONTROL_LISTEN         Control API address, empty disables (default 127.0.0.1:9000)
  THETA_RELAY_LISTEN           Serve a signaling relay on this address (default off)
  THETA_CAPTURE_TIMEOUT        Bound on the shooting status poll, e.g. 30s (default none)
  THETA_OFFER_POLICY           reject or replace an offer while a session exists (default reject)
  THETA_HANGUP_ON_ICE_FAILURE  Hang up when ICE fails or disconnects (default false)
  THETA_SIGNAL_PING_INTERVAL   Signaling keepalive interval (default 30s)
  LOG_LEVEL                    debug, info, warn, error (default info)

Examples:
  # Live playback
  thetapreview | ffplay -f h264 -

  # Take a picture
  curl -X POST http://127.0.0.1:9000/api/shoot

Options:
  -h, --help  Show this help message
`

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Print(helpText)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "thetapreview: %v\n", err)
		os.Exit(2)
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Output: os.Stderr})
	logger := xlog.WithComponent("main")

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
	logger.Info().Msg("done")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := xlog.WithComponent("main")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	camera := api.NewClient(cfg.CommandURL())
	sink := webrtc.NewSink(os.Stdout)
	v := viewer.New(camera, webrtc.NewFactory(webrtc.Config{}), sink, viewer.Options{
		CaptureTimeout:     cfg.CaptureTimeout,
		OfferPolicy:        viewer.OfferPolicy(cfg.OfferPolicy),
		HangUpOnICEFailure: cfg.HangUpOnICEFailure,
		InitialSize:        domain.VideoSize(cfg.VideoSize),
	})

	// Listeners are bound before dialing so a self-hosted relay is reachable.
	if cfg.RelayListen != "" {
		ln, err := net.Listen("tcp", cfg.RelayListen)
		if err != nil {
			return fmt.Errorf("relay listen: %w", err)
		}
		rl := relay.New()
		g.Go(func() error {
			defer rl.Close()
			return serve(ctx, "relay", ln, rl)
		})
	}
	if cfg.ControlListen != "" {
		ln, err := net.Listen("tcp", cfg.ControlListen)
		if err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("control listen: %w", err)
		}
		router := control.NewRouter(v, control.DefaultConfig())
		g.Go(func() error {
			return serve(ctx, "control", ln, router)
		})
	}

	sc := sigclient.NewClient(cfg.SignalingURL(), v, cfg.SignalPingInterval)
	v.SetSignaler(sc)

	if err := sc.Connect(ctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	logger.Info().Str("url", cfg.SignalingURL()).Msg("signaling connected")

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sc.Done():
			return fmt.Errorf("signaling: %w", domain.ErrTransport)
		}
	})

	g.Go(func() error {
		if err := v.StartPreview(ctx, domain.VideoSizeCurrent); err != nil {
			logger.Warn().Err(err).Msg("initial preview")
		}
		return nil
	})

	err := g.Wait()

	logger.Info().Msg("shutting down")
	v.HangUp()
	sc.Close()
	return err
}

// serve runs an HTTP server on ln until ctx is done.
func serve(ctx context.Context, name string, ln net.Listener, h http.Handler) error {
	logger := xlog.WithComponent(name)
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s server: %w", name, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
		return ctx.Err()
	}
}
