package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "airspace_fan/docs"
	"airspace_fan/internal/config"
	"airspace_fan/internal/events"
	"airspace_fan/internal/handlers"
	"airspace_fan/internal/host"
	"airspace_fan/internal/house"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/notify"
	"airspace_fan/internal/repository"
	"airspace_fan/internal/repository/db"
	"airspace_fan/internal/scanner"
	"airspace_fan/internal/scheduler"
	"airspace_fan/internal/server"
	"airspace_fan/internal/service"
	"airspace_fan/internal/simulator"
	"airspace_fan/internal/threshold"
	"airspace_fan/internal/transport"
	"airspace_fan/internal/weather"
)

const (
	defaultDBPath       = "airspace.db"
	defaultSigningKey   = "change-me"
	brokerBuffer        = 256
	shutdownTimeout     = 10 * time.Second
	simTick             = time.Second
	thresholdsSeededKey = "thresholds_seeded"
)

var (
	simulate bool
	simPort  int
	simScale float64

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the fan service and its HTTP API",
		Long: `serve scans for fans, keeps them refreshed while in the foreground,
schedules background temperature checks and exposes the REST and
websocket API.

SIGUSR1 moves the service to the background phase, SIGUSR2 back to the
foreground. SIGINT or SIGTERM shut it down.`,
		RunE: func(*cobra.Command, []string) error { return serve() },
	}
)

func init() {
	serveCmd.Flags().BoolVar(&simulate, "simulate", false, "serve simulated fans on localhost instead of scanning the LAN")
	serveCmd.Flags().IntVar(&simPort, "sim-port", 18081, "first port used by simulated fans")
	serveCmd.Flags().Float64Var(&simScale, "sim-scale", 60, "simulated seconds per real second for fan timers")
}

func serve() error {
	var overrides []func(*config.Config)
	if simulate {
		overrides = append(overrides, func(c *config.Config) {
			c.Scan.CIDR = ""
			c.Scan.Hosts = []string{"127.0.0.1"}
			c.Scan.Port = simPort
		})
	}
	cfg, log, err := loadConfig(overrides...)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.SigningKey == "" || cfg.Auth.SigningKey == defaultSigningKey {
		log.Warnw("auth signing key is the default; set AIRSPACE_AUTH_SIGNING_KEY")
	}

	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	// context for background goroutines
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(base)

	var candidates []models.DeviceAddress
	if simulate {
		candidates, err = startSimulator(ctx, g, log.Named("simulator"))
	} else {
		candidates, err = scanner.Candidates(cfg.Scan.CIDR, cfg.Scan.Hosts, cfg.Scan.Port)
	}
	if err != nil {
		return err
	}

	core, err := buildCore(cfg, repos, candidates, log)
	if err != nil {
		return err
	}
	services := service.NewService(repos, core)
	if err := seedPrefs(ctx, cfg, repos, services, log); err != nil {
		return err
	}

	recorder := service.NewRecorder(core.Registry, repos.Log, log.Named("recorder"))
	g.Go(func() error {
		recorder.Run(ctx)
		return nil
	})
	g.Go(func() error { return services.Lifecycle.Run(ctx) })

	srv := server.New(cfg.Port, handlers.NewHandler(services, log).InitRoutes())
	g.Go(srv.Run)
	log.Infow("server started", "addr", srv.Addr(), "candidates", len(candidates), "simulate", simulate)

	waitForShutdown(ctx, services, log)

	log.Infow("shutting down server...")
	// allow in-flight requests to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// stop background goroutines
	cancel()
	return g.Wait()
}

// openDB initializes the SQLite database, falling back to the default file.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", defaultDBPath)
		path = defaultDBPath
	}
	sqlDB, err := db.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite %s: %w", path, err)
	}
	return sqlDB, nil
}

// buildCore wires transport, discovery, alerting and scheduling for the service layer.
func buildCore(cfg config.Config, repos *repository.Repository, candidates []models.DeviceAddress, log *logger.Logger) (service.Core, error) {
	tr := transport.NewHTTP(
		transport.WithTimeout(cfg.Scan.CommandTimeout),
		transport.WithLogger(log.Named("transport")),
	)
	sc := scanner.New(tr, candidates,
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithProbeTimeout(cfg.Scan.ProbeTimeout),
		scanner.WithLogger(log.Named("scanner")),
	)

	broker := events.NewBroker[models.Event](brokerBuffer)
	namer := func(ctx context.Context, mac string) string {
		name, err := repos.Prefs.FanName(ctx, mac)
		if err != nil {
			log.Warnw("fan name lookup failed", "mac", mac, "err", err)
		}
		return name
	}
	registry := house.NewRegistry(sc, tr, broker,
		house.WithNamer(namer),
		house.WithLogger(log.Named("house")),
	)

	var src threshold.Source = weather.NewFanSensors(registry.Fans)
	if cfg.Weather.Enabled() {
		forecast := weather.NewOpenMeteo(cfg.Weather.Latitude, cfg.Weather.Longitude,
			weather.WithBaseURL(cfg.Weather.BaseURL),
			weather.WithLogger(log.Named("weather")),
		)
		src = weather.Chain{forecast, src}
	}

	sinks := notify.Multi{
		notify.LogSink{Log: log.Named("notify")},
		notify.BrokerSink{Broker: broker},
	}
	if cfg.Mail.Enabled() {
		mail, err := notify.NewMailgun(notify.MailConfig{
			Domain:     cfg.Mail.Domain,
			APIKey:     cfg.Mail.APIKey,
			Sender:     cfg.Mail.Sender,
			Recipients: cfg.Mail.Recipients,
			OnlyAlerts: cfg.Mail.OnlyAlerts,
		})
		if err != nil {
			return service.Core{}, err
		}
		sinks = append(sinks, mail)
	}

	monitor := threshold.NewMonitor(src, repos.Prefs, sinks, registry,
		threshold.WithMinInterval(cfg.Scheduler.MinInterval),
		threshold.WithLogger(log.Named("threshold")),
	)

	th := host.New(cfg.Scheduler.HostExpiry, log.Named("host"))
	sched := scheduler.New(th, service.NewBackgroundJob(registry, monitor),
		scheduler.WithBudget(cfg.Scheduler.Budget),
		scheduler.WithWindowID(cfg.Scheduler.WindowID),
		scheduler.WithLogger(log.Named("scheduler")),
	)
	th.Register(sched.ID(), sched.OnWindowGranted)

	return service.Core{
		Registry:   registry,
		Monitor:    monitor,
		Scheduler:  sched,
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		Tick:       cfg.Scheduler.ForegroundTick,
		Log:        log,
	}, nil
}

// seedPrefs applies the configured PIN and, on first start only, the configured thresholds.
func seedPrefs(ctx context.Context, cfg config.Config, repos *repository.Repository, services *service.Service, log *logger.Logger) error {
	if cfg.Auth.PIN != "" {
		if err := services.SetPIN(ctx, cfg.Auth.PIN); err != nil {
			return fmt.Errorf("set pairing pin: %w", err)
		}
	}

	seeded, err := repos.Prefs.Setting(ctx, thresholdsSeededKey)
	if err != nil {
		return err
	}
	if seeded != "" {
		return nil
	}
	tc := models.ThresholdConfig{
		LowBound:  cfg.Thresholds.Low,
		HighBound: cfg.Thresholds.High,
		Enabled:   cfg.Thresholds.Enabled,
	}
	if err := repos.Prefs.SaveThresholds(ctx, tc); err != nil {
		return err
	}
	if err := repos.Prefs.SetSetting(ctx, thresholdsSeededKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	log.Infow("thresholds seeded from config", "low", tc.LowBound, "high", tc.HighBound, "enabled", tc.Enabled)
	return nil
}

// startSimulator serves the demo fans over HTTP on consecutive localhost ports.
func startSimulator(ctx context.Context, g *errgroup.Group, log *logger.Logger) ([]models.DeviceAddress, error) {
	bank := simulator.NewBank()
	addrs := simulator.Demo(bank, "127.0.0.1", simPort)
	for _, a := range addrs {
		l, err := net.Listen("tcp", a.String())
		if err != nil {
			return nil, fmt.Errorf("simulated fan %s: %w", a, err)
		}
		srv := &http.Server{Handler: bank.Handler(a), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}
	g.Go(func() error {
		bank.Run(ctx, simTick, simScale)
		return nil
	})
	log.Infow("simulated fans listening", "fans", len(addrs), "first_port", simPort, "scale", simScale)
	return addrs, nil
}

// waitForShutdown maps phase signals onto the lifecycle until a termination
// signal arrives or a background task fails.
func waitForShutdown(ctx context.Context, lifecycle service.Lifecycle, log *logger.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			log.Warnw("background task stopped", "err", context.Cause(ctx))
			return
		case s := <-sig:
			var phase service.Phase
			switch s {
			case syscall.SIGUSR1:
				phase = service.PhaseBackground
			case syscall.SIGUSR2:
				phase = service.PhaseForeground
			default:
				return
			}
			if err := lifecycle.Transition(ctx, phase); err != nil {
				log.Errorw("phase transition failed", "phase", phase, "err", err)
				continue
			}
			log.Infow("phase changed", "phase", phase, "signal", s.String())
		}
	}
}
