package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "github.com/brunod-e/daily-diet-api/internal/adapter/http"
	"github.com/brunod-e/daily-diet-api/internal/adapter/memory"
	"github.com/brunod-e/daily-diet-api/internal/adapter/postgres"
	"github.com/brunod-e/daily-diet-api/internal/adapter/redisstore"
	"github.com/brunod-e/daily-diet-api/internal/app"
	"github.com/brunod-e/daily-diet-api/internal/config"
	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type stores struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	meals    domain.MealRepository
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer st.close()

	clock := clockwork.NewRealClock()
	users := app.NewUserService(st.users, st.sessions, clock, cfg.SessionTTL)
	meals := app.NewMealService(st.meals, clock)
	metrics := app.NewMetricsService(st.meals)

	oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
	if err != nil {
		log.Fatal().Err(err).Msg("sso setup")
	}

	h := adapthttp.New(users, meals, metrics, oidcCfg, adapthttp.Options{
		CookieSecure:      cfg.CookieSecure,
		CORSOrigins:       cfg.CORSOrigins,
		SignupRate:        cfg.SignupRate,
		SignupBurst:       cfg.SignupBurst,
		TrustProxy:        cfg.TrustProxy,
		PostLoginRedirect: cfg.OIDC.PostLoginRedirect,
	}).WithLogger(log.Logger).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go purgeSessions(ctx, users, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("sso", oidcCfg.Enabled).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStores picks postgres when DATABASE_URL is set and the in-memory store
// otherwise. REDIS_ADDR moves sessions to Redis in either case.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{close: func() {}}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.users = postgres.NewUserRepo(db)
		st.sessions = postgres.NewSessionRepo(db)
		st.meals = db
		st.close = func() { _ = db.Close() }
		log.Info().Msg("using postgres store")
	} else {
		db := memory.New()
		st.users = db.NewUserRepo()
		st.sessions = db.NewSessionRepo()
		st.meals = db
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			st.close()
			return nil, err
		}
		st.sessions = redisstore.NewSessionRepo(rdb)
		closeDB := st.close
		st.close = func() {
			_ = rdb.Close()
			closeDB()
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
	}
	return st, nil
}

func purgeSessions(ctx context.Context, users *app.UserService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := users.PurgeExpiredSessions(ctx); err != nil {
				log.Warn().Err(err).Msg("purge expired sessions")
			}
		}
	}
}
