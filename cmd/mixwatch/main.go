package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/export"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/scope"
	"github.com/nixlim/mixwatch/internal/seen"
	"github.com/nixlim/mixwatch/internal/session"
	"github.com/nixlim/mixwatch/internal/storage"
	"github.com/nixlim/mixwatch/internal/tui"
)

const healthTimeout = 5 * time.Second

func main() {
	configFlag := flag.String("config", "", "Path to the config file (default ~/.config/mixwatch/config.toml)")
	logFlag := flag.String("log", "", "Write diagnostics and a JSONL trace of backend calls to the specified file path")
	setupFlag := flag.Bool("setup", false, "Write the backend endpoints to the config file and exit")
	baseURLFlag := flag.String("base-url", "", "Backend base URL (with -setup)")
	apiURLFlag := flag.String("api-url", "", "Backend API URL (with -setup)")
	apiV1URLFlag := flag.String("api-v1-url", "", "Backend API v1 URL (with -setup)")
	forceFlag := flag.Bool("force", false, "Overwrite existing endpoint values (with -setup)")
	flag.Parse()

	if *setupFlag {
		RunSetup(SetupOptions{
			ConfigPath: *configFlag,
			BaseURL:    *baseURLFlag,
			APIURL:     *apiURLFlag,
			APIV1URL:   *apiV1URLFlag,
			Force:      *forceFlag,
		})
		return
	}

	var (
		loadResult *config.LoadResult
		err        error
	)
	if *configFlag != "" {
		loadResult, err = config.LoadFrom(*configFlag)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mixwatch: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "mixwatch: config warning: %s\n", w)
	}

	var clientOpts []api.Option
	if *logFlag != "" {
		logFile, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mixwatch: failed to open log %q: %v\n", *logFlag, err)
			os.Exit(1)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
		clientOpts = append(clientOpts, api.WithTracer(api.NewFileTracer(logFile)))
	} else {
		log.SetOutput(io.Discard)
	}

	kv, isPersistent, err := storage.NewKV(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mixwatch: storage error: %v\n", err)
		os.Exit(1)
	}

	sessions := session.NewManager(kv, nil)
	client := api.New(cfg.Backend, sessions, clientOpts...)
	sessions.SetAuthenticator(client)

	scopes := scope.NewResolver(client)
	seenStore := seen.NewStore(kv, seen.WithCap(cfg.Alerts.SeenCap))

	notifier, sinks := buildNotifiers(cfg)

	bell := feed.NewBell(cfg, client, sessions, scopes, seenStore, feed.WithNotifier(notifier))
	alertsPage := feed.NewAlertsPage(cfg, client, client, sessions, scopes)
	dashboard := feed.NewDashboard(cfg, client, client, client, sessions, scopes)
	records := feed.NewRecords(cfg, client, client, sessions, scopes)
	machine := feed.NewMachineDetail(cfg, client, client, sessions, scopes)
	users := feed.NewUsers(cfg, client, sessions)
	thresholds := feed.NewThresholds(client, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkHealth(ctx, client)

	shutdownMgr := tui.NewShutdownManager()
	shutdownMgr.StopPolling = func() {
		cancel()
		bell.Close()
		alertsPage.Close()
		dashboard.Close()
		machine.Close()
	}
	shutdownMgr.CloseSinks = func(ctx context.Context) error {
		return closeSinks(ctx, sinks)
	}
	shutdownMgr.CloseStorage = kv.Close

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	model := tui.NewModel(cfg,
		tui.WithContext(ctx),
		tui.WithSessionProvider(sessions),
		tui.WithBellProvider(bell),
		tui.WithAlertsProvider(alertsPage),
		tui.WithDashboardProvider(dashboard),
		tui.WithRecordsProvider(records),
		tui.WithMachineDetailProvider(machine),
		tui.WithUsersProvider(users),
		tui.WithThresholdsProvider(thresholds),
		tui.WithPersistenceFlag(isPersistent),
		tui.WithOnShutdown(func() {
			_ = shutdownMgr.Shutdown()
		}),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
	)

	go func() {
		select {
		case <-sigCh:
			_ = shutdownMgr.Shutdown()
			p.Quit()
		case <-ctx.Done():
			return
		}
	}()

	if _, err := p.Run(); err != nil {
		_ = shutdownMgr.Shutdown()
		fmt.Fprintf(os.Stderr, "mixwatch: %v\n", err)
		os.Exit(1)
	}
}

type closer interface {
	Close() error
}

// buildNotifiers assembles the desktop notifier and the configured export
// sinks. The sinks are also returned so shutdown can flush them.
func buildNotifiers(cfg config.Config) (alerts.Notifier, []closer) {
	multi := alerts.NewMultiNotifier(alerts.NewPlatformNotifier(cfg.Alerts.Notifications.SystemNotify))
	var sinks []closer

	if cfg.Export.OTLPEndpoint != "" {
		exp, err := export.NewOTLPExporter(cfg.Export.OTLPEndpoint)
		if err != nil {
			log.Printf("WARNING: OTLP export disabled: %v", err)
		} else {
			multi.Add(exp)
			sinks = append(sinks, exp)
		}
	}

	if len(cfg.Export.KafkaBrokers) > 0 {
		sink := export.NewKafkaSink(cfg.Export.KafkaBrokers, cfg.Export.KafkaTopic, cfg.Export.KafkaEncoding)
		multi.Add(sink)
		sinks = append(sinks, sink)
	}

	return multi, sinks
}

// closeSinks closes every sink, giving up when ctx expires.
func closeSinks(ctx context.Context, sinks []closer) error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("closing export sinks: %w", ctx.Err())
	}
}

// checkHealth probes the backend once at startup. Failures are logged only;
// the TUI reports connectivity problems on its own.
func checkHealth(ctx context.Context, client *api.Client) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := client.CheckHealth(ctx); err != nil {
		log.Printf("WARNING: backend health check failed: %v", err)
		return
	}
	log.Printf("backend health check passed")
}
