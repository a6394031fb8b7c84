package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fedgate/fedgate/internal/cache"
	"github.com/fedgate/fedgate/internal/config"
	"github.com/fedgate/fedgate/internal/email"
	"github.com/fedgate/fedgate/internal/federation"
	httpserver "github.com/fedgate/fedgate/internal/http"
	accountctrl "github.com/fedgate/fedgate/internal/http/controllers/account"
	healthctrl "github.com/fedgate/fedgate/internal/http/controllers/health"
	"github.com/fedgate/fedgate/internal/http/helpers"
	mw "github.com/fedgate/fedgate/internal/http/middlewares"
	"github.com/fedgate/fedgate/internal/http/router"
	"github.com/fedgate/fedgate/internal/jwt"
	"github.com/fedgate/fedgate/internal/oauth"
	"github.com/fedgate/fedgate/internal/observability/logger"
	"github.com/fedgate/fedgate/internal/security/secretbox"
	"github.com/fedgate/fedgate/internal/store"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "fedgate",
		Short: "External identity federation gateway",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	encCmd := &cobra.Command{
		Use:   "enc [value]",
		Short: "Encrypt a config secret with the master key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := secretbox.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(secretbox.EncPrefix + enc)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, encCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "fedgate",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	cacheClient, err := cache.New(cache.Config{
		Kind:             cfg.Cache.Kind,
		Addr:             cfg.Cache.Redis.Addr,
		DB:               cfg.Cache.Redis.DB,
		Prefix:           cfg.Cache.Redis.Prefix,
		MemoryDefaultTTL: config.MustDuration(cfg.Cache.Memory.DefaultTTL, 0),
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() { _ = cacheClient.Close() }()

	keys, err := jwt.LoadOrGenerateKey(cfg.JWT.KeyFile)
	if err != nil {
		return err
	}
	if cfg.JWT.KeyFile == "" {
		log.Warn("signing with an ephemeral key, sessions die with the process")
	}
	signer := jwt.NewIssuer(cfg.JWT.Issuer, keys)

	captions := make([]string, 0, len(cfg.Providers))
	for caption := range cfg.Providers {
		captions = append(captions, caption)
	}
	registry, err := federation.NewRegistry(captions, cfg.Auth.PublicClientID)
	if err != nil {
		return err
	}
	clients, err := oauth.NewClients(cfg.Server.BaseURL, cfg.Providers)
	if err != nil {
		return err
	}

	identityIssuer := federation.NewIdentityIssuer(
		signer,
		clients,
		config.MustDuration(cfg.JWT.BearerTTL, 0),
		config.MustDuration(cfg.JWT.CookieTTL, 0),
	)

	sender := email.Sender(email.Noop{})
	if cfg.Email.Enabled {
		smtp := email.NewSMTPSender(cfg.Email.Host, cfg.Email.Port, cfg.Email.From, cfg.Email.Username, cfg.Email.Password)
		smtp.InsecureSkipVerify = cfg.Email.SkipTLS
		sender = smtp
	}
	mailer := &email.VerificationMailer{Sender: sender, ServiceName: "fedgate"}

	orchestrator := federation.NewOrchestrator(st, identityIssuer, registry, mailer)

	accountControllers := accountctrl.NewControllers(accountctrl.Deps{
		Orchestrator: orchestrator,
		Registry:     registry,
		Issuer:       identityIssuer,
		Clients:      clients,
		Cache:        cacheClient,
		BaseURL:      cfg.Server.BaseURL,
		Cookies: helpers.CookieSettings{
			Domain:   cfg.Auth.Cookie.Domain,
			SameSite: cfg.Auth.Cookie.SameSite,
			Secure:   cfg.Auth.Cookie.Secure,
		},
		StateTTL: config.MustDuration(cfg.Auth.StateTTL, 10*time.Minute),
	})

	metricsHandler, err := mw.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	apiHandler := router.New(router.Deps{
		Account:            accountControllers,
		Health:             &healthctrl.Controllers{Store: st, Cache: cacheClient},
		Verifier:           signer,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)

	api := httpserver.NewServer("api", cfg.Server.Addr, apiHandler)
	metrics := httpserver.NewServer("metrics", cfg.Server.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(gctx) })
	g.Go(func() error { return metrics.Run(gctx) })

	log.Info("fedgate started",
		logger.String("addr", cfg.Server.Addr),
		logger.String("metrics_addr", cfg.Server.MetricsAddr),
		logger.Count(len(registry.Providers())),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("fedgate stopped")
	return nil
}
