package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/escrow-admin/internal/admin"
	"github.com/gosuda/escrow-admin/internal/audit"
	"github.com/gosuda/escrow-admin/internal/auth"
	"github.com/gosuda/escrow-admin/internal/authz"
	"github.com/gosuda/escrow-admin/internal/config"
	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/notify"
	"github.com/gosuda/escrow-admin/internal/server"
	"github.com/gosuda/escrow-admin/internal/store/postgres"
	redisstore "github.com/gosuda/escrow-admin/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	mintFor := flag.String("mint-token", "", "print an access token for the given account id and exit")
	flag.Parse()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	if *mintFor != "" {
		return mintToken(cfg, *mintFor)
	}

	if cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Database.Migrate {
		if err = store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Redis carries the live audit feed. Keep both interfaces nil when it is
	// disabled so neither side sees a typed nil.
	var (
		publisher audit.Publisher
		feed      *redisstore.PubSub
	)
	if cfg.Redis.Enabled {
		feed, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer feed.Close()
		publisher = feed
	}

	catalog := authz.DefaultCatalog()
	guard := authz.NewGuard(catalog, store.Accounts())
	ledger := audit.New(store.Audit(), publisher)

	var sinks []notify.Sink
	if cfg.Slack.BotToken != "" {
		sinks = append(sinks, notify.NewSlackSink(slacklib.New(cfg.Slack.BotToken), cfg.Slack.AlertChannel))
		log.Info().Str("channel", cfg.Slack.AlertChannel).Msg("slack alerts enabled")
	}

	svc := admin.NewService(guard, ledger, notify.New(sinks...),
		admin.NewAccountPolicy(store.Accounts(), catalog.TopRole()),
		admin.NewTransactionPolicy(domain.KindTransactions, store.Transactions(domain.KindTransactions)),
		admin.NewTransactionPolicy(domain.KindEscrowTransactions, store.Transactions(domain.KindEscrowTransactions)),
		admin.NewRowPolicy(domain.KindDisputes, store.Rows(domain.KindDisputes),
			domain.PermViewDisputes, domain.PermResolveDisputes),
		admin.NewRowPolicy(domain.KindVerificationQueue, store.Rows(domain.KindVerificationQueue),
			domain.PermManageVerification, domain.PermManageVerification),
		admin.NewAuditPolicy(ledger),
	)

	deps := server.Deps{
		Service: svc,
		Guard:   guard,
		Audit:   ledger,
		Checks:  map[string]server.Pinger{"postgres": store},
	}
	if feed != nil {
		deps.Feed = feed
		deps.Checks["redis"] = feed
	}

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, deps)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

func mintToken(cfg *config.Config, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("mint-token: %w", err)
	}
	tok, err := auth.IssueAccessToken(cfg.JWT.Secret, id, cfg.JWT.AccessTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, tok)
	return err
}
