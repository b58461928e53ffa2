package main

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/config"
	"github.com/lox/holdem-lobby/internal/registry"
	"github.com/lox/holdem-lobby/internal/session"
	"github.com/lox/holdem-lobby/internal/store"
	"github.com/lox/holdem-lobby/internal/transport"
)

type CLI struct {
	Config string `kong:"default='holdem-lobby.hcl',help='Path to the server HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Addr   string `kong:"help='Override the listen address from config (host:port)'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("holdem-lobby-server"),
		kong.Description("Multiplayer poker lobby server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	if cli.Addr != "" {
		host, portStr, err := net.SplitHostPort(cli.Addr)
		kctx.FatalIfErrorf(err)
		port, err := strconv.Atoi(portStr)
		kctx.FatalIfErrorf(err)
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	kctx.FatalIfErrorf(cfg.Validate())

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Per-connection transport noise (pump errors, dropped slow clients)
	// goes through its own logger rather than the structured lobby log.
	connLogger := log.New(os.Stderr)
	if cli.Debug {
		connLogger.SetLevel(log.DebugLevel)
	} else {
		connLogger.SetLevel(log.InfoLevel)
	}

	db, err := store.Open(cfg.Server.DatabasePath)
	kctx.FatalIfErrorf(err)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reg := registry.New(db, logger)
	hub := session.NewHub(reg, db, rng, cfg.Server.StartingWallet, logger)

	for _, lc := range cfg.Lobby {
		if _, err := reg.CreateLobby(lc.Name, config.ParseVariant(lc.Variant), rng); err != nil {
			logger.Error().Err(err).Str("lobby", lc.Name).Msg("failed to pre-create configured lobby")
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		conn := transport.New(ws, connLogger)
		sess := session.New(hub, conn, logger)
		go sess.Run(context.Background())
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("database", cfg.Server.DatabasePath).
			Int("starting_wallet", cfg.Server.StartingWallet).
			Int("lobbies", len(cfg.Lobby)).
			Msg("server starting")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited with error")
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited with error")
		} else {
			logger.Info().Msg("server shutdown complete")
		}
	}
}
