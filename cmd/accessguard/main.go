package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agrotm/accessguard/internal/alert"
	"github.com/agrotm/accessguard/internal/config"
	"github.com/agrotm/accessguard/internal/honeypot"
	authctrl "github.com/agrotm/accessguard/internal/http/controllers/auth"
	secctrl "github.com/agrotm/accessguard/internal/http/controllers/security"
	authsvc "github.com/agrotm/accessguard/internal/http/services/auth"
	"github.com/agrotm/accessguard/internal/http/router"
	"github.com/agrotm/accessguard/internal/kv"
	"github.com/agrotm/accessguard/internal/metrics"
	"github.com/agrotm/accessguard/internal/observability/logger"
	"github.com/agrotm/accessguard/internal/security/attempt"
	"github.com/agrotm/accessguard/internal/security/lockout"
	"github.com/agrotm/accessguard/internal/security/nonce"
	"github.com/agrotm/accessguard/internal/security/wallet"
	"github.com/agrotm/accessguard/internal/session"
	"github.com/agrotm/accessguard/internal/sweeper"
)

var version = "dev"

func main() {
	// .env es opcional: en producción las vars vienen del entorno
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "accessguard",
		Short: "Servicio de control de acceso de la plataforma AGROTM",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	blocklistCmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Lista las IPs bloqueadas por el honeypot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBlocklist(cmd.Context(), cfgPath)
		},
	}

	root.AddCommand(serve, versionCmd, blocklistCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printBlocklist imprime una IP por línea, apto para alimentar filtros externos.
func printBlocklist(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargando configuración: %w", err)
	}

	store, err := kv.New(kv.Config{
		Driver:   cfg.KV.Driver,
		Addr:     cfg.KV.Redis.Addr,
		Password: cfg.KV.Redis.Password,
		DB:       cfg.KV.Redis.DB,
		Prefix:   cfg.KV.Prefix,
	})
	if err != nil {
		return fmt.Errorf("conectando al kv store: %w", err)
	}
	defer func() { _ = store.Close() }()

	tracker := honeypot.NewTracker(store, alert.NoopNotifier{}, cfg.Honeypot.BlockThreshold)
	ips, err := tracker.Blocklist(ctx)
	if err != nil {
		return fmt.Errorf("leyendo blocklist: %w", err)
	}
	for _, ip := range ips {
		fmt.Println(ip)
	}
	return nil
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargando configuración: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "accessguard",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	// KV store (honeypot + blocklist)
	store, err := kv.New(kv.Config{
		Driver:   cfg.KV.Driver,
		Addr:     cfg.KV.Redis.Addr,
		Password: cfg.KV.Redis.Password,
		DB:       cfg.KV.Redis.DB,
		Prefix:   cfg.KV.Prefix,
	})
	if err != nil {
		return fmt.Errorf("conectando al kv store: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Canales de alerta
	var channels alert.MultiNotifier
	if cfg.Alerts.WebhookURL != "" {
		channels = append(channels, alert.NewWebhook(cfg.Alerts.WebhookURL, 0))
	}
	if cfg.Alerts.SMTP.Host != "" {
		channels = append(channels, alert.NewEmail(
			cfg.Alerts.SMTP.Host, cfg.Alerts.SMTP.Port,
			cfg.Alerts.SMTP.Username, cfg.Alerts.SMTP.Password,
			cfg.Alerts.SMTP.From, cfg.Alerts.SMTP.To,
		))
	}
	var notifier alert.Notifier = channels
	if len(channels) == 0 {
		notifier = alert.NoopNotifier{}
	}

	// Componentes de dominio
	nonces := nonce.NewService(config.Duration(cfg.Auth.NonceTTL))
	attempts := attempt.NewTracker(attempt.Config{
		attempt.PurposeLogin: {
			Threshold: cfg.Rate.Login.Limit,
			Window:    config.Duration(cfg.Rate.Login.Window),
		},
		attempt.PurposeRegistration: {
			Threshold: cfg.Rate.Registration.Limit,
			Window:    config.Duration(cfg.Rate.Registration.Window),
		},
	})
	locks := lockout.NewManager(config.Duration(cfg.Auth.Lockout.Duration))
	sessions := session.NewStore(cfg.Auth.Session.MaxPerPrincipal, config.Duration(cfg.Auth.Session.IdleTimeout))
	tracker := honeypot.NewTracker(store, notifier, cfg.Honeypot.BlockThreshold)

	svc := authsvc.NewService(authsvc.Deps{
		Nonces:      nonces,
		Attempts:    attempts,
		Locks:       locks,
		Sessions:    sessions,
		Verifier:    wallet.NewVerifier(),
		Notifier:    notifier,
		NonceTTL:    config.Duration(cfg.Auth.NonceTTL),
		IdleTimeout: config.Duration(cfg.Auth.Session.IdleTimeout),
	})

	metricsHandler, err := metrics.Register(metrics.Config{
		ActiveSessions: sessions.Active,
	})
	if err != nil {
		return fmt.Errorf("registrando métricas: %w", err)
	}

	handler := router.New(router.Deps{
		Auth:            authctrl.NewController(svc),
		Security:        secctrl.NewController(tracker),
		Tracker:         tracker,
		SessionValidate: sessions.Validate,
		CookieName:      cfg.Auth.Session.CookieName,
		SecureCookies:   cfg.Auth.Session.Secure,
		MetricsHandler:  metricsHandler,
		KVPing:          store.Ping,
	})

	// Limpieza periódica del estado en memoria
	sweep := sweeper.New(config.Duration(cfg.Sweeper.Interval),
		sweeper.Target{Name: "sessions", Sweep: sessions.Sweep},
		sweeper.Target{Name: "attempts", Sweep: attempts.Sweep},
		sweeper.Target{Name: "locks", Sweep: locks.Sweep},
		sweeper.Target{Name: "nonces", Sweep: nonces.Sweep},
	)
	sweep.Start()
	defer sweep.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("servidor escuchando",
			logger.String("addr", cfg.Server.Addr),
			logger.String("kv_driver", cfg.KV.Driver),
			logger.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("apagando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("servidor detenido")
	return nil
}
