package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safe-traveller/internal/chatapi"
	"safe-traveller/internal/config"
	"safe-traveller/internal/location"
	"safe-traveller/internal/logger"
	"safe-traveller/internal/metrics"
	"safe-traveller/internal/notify"
	"safe-traveller/internal/theme"
	"safe-traveller/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "safe-traveller: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	client, err := chatapi.New(chatapi.Options{
		BaseURL:       cfg.BaseURL,
		CSRFToken:     cfg.CSRFToken,
		SessionCookie: cfg.SessionCookie,
		Timeout:       cfg.Timeout,
		Logger:        log.Named("chatapi"),
	})
	if err != nil {
		return err
	}
	primeCtx, cancelPrime := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Prime(primeCtx); err != nil {
		log.Warn("csrf prime failed, continuing", zap.String("base_url", cfg.BaseURL), zap.Error(err))
	}
	cancelPrime()

	store, err := theme.Open(cfg.DBPath, client, log.Named("theme"))
	if err != nil {
		return err
	}
	defer store.Close()
	initial := store.Initial(lipgloss.HasDarkBackground)

	emitter := notify.NewEmitter(notify.ParsePermission(cfg.Notifications))

	var positions <-chan location.Position
	if cfg.HasLocation {
		watcher := location.NewWatcher(location.FixedSource{Pos: location.Position{Lat: cfg.Lat, Lng: cfg.Lng}}, log.Named("location"))
		positions, err = watcher.Start(ctx, cfg.WatchInterval)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error("metrics server stopped", zap.String("addr", cfg.MetricsAddr), zap.Error(err))
			}
		}()
	}

	log.Info("starting",
		zap.String("base_url", cfg.BaseURL),
		zap.String("theme", string(initial)),
		zap.String("notifications", string(emitter.Permission())),
		zap.Bool("location", cfg.HasLocation),
	)

	model := ui.NewModel(ui.Deps{
		Backend:   client,
		Themes:    store,
		Theme:     initial,
		Notifier:  emitter,
		Positions: positions,
		Logger:    log.Named("ui"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}

	if m, ok := final.(ui.Model); ok {
		if id, ok := m.SessionID(); ok {
			endCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := client.End(endCtx, id); err != nil {
				log.Warn("end session failed", zap.String("session_id", id), zap.Error(err))
			} else {
				log.Info("session ended", zap.String("session_id", id))
			}
			cancel()
		}
	}
	return nil
}
