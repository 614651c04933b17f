// Command coachboard-server serves the row store used by the coach CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/and161185/coachboard/internal/config"
	"github.com/and161185/coachboard/internal/limiter"
	"github.com/and161185/coachboard/internal/migrate"
	"github.com/and161185/coachboard/internal/repository"
	"github.com/and161185/coachboard/internal/repository/memory"
	"github.com/and161185/coachboard/internal/repository/postgres"
	"github.com/and161185/coachboard/internal/server/httpapi"
	"github.com/and161185/coachboard/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations and serves HTTP until signalled.
func main() {
	env := config.LoadServer()

	addr := flag.String("addr", env.Addr, "listen address")
	dsn := flag.String("dsn", env.DSN, "PostgreSQL DSN; empty keeps everything in memory")
	jwtKey := flag.String("jwt-key", env.JWTKey, "HS256 signing key (required)")
	apiKey := flag.String("api-key", env.APIKey, "project key clients send in the apikey header (required)")
	accessTTL := flag.Duration("access-ttl", env.AccessTTL, "access token TTL")
	logFile := flag.String("log-file", env.LogFile, "also write JSON logs to this rotated file")
	trustProxy := flag.Bool("trust-proxy", env.TrustProxy, "take client addresses from X-Forwarded-For/X-Real-IP")
	adminSignUp := flag.Bool("admin-signup", env.AdminSignUp, "allow self sign-up with the admin role")
	flag.Parse()

	logger := newLogger(*logFile)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or JWT_KEY)")
	}
	if *apiKey == "" {
		logger.Fatal("missing api key (--api-key or API_KEY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, *dsn, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer st.close()

	authSvc := service.NewAuthService(st.accounts, []byte(*jwtKey), *accessTTL, st.lim).AllowAdminSignUp(*adminSignUp)
	rowSvc := service.NewRowService(st.rows, 0)
	api := httpapi.New(authSvc, rowSvc, *apiKey, logger).TrustProxy(*trustProxy)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("forced shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// newLogger returns a production logger, teed into a rotated file when path is set.
func newLogger(path string) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(cfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.InfoLevel)}
	if path != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(enc, w, zap.InfoLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

type stores struct {
	accounts repository.AccountRepository
	rows     repository.RowRepository
	lim      limiter.Limiter
	close    func()
}

// openStores migrates and connects Postgres, or falls back to memory when dsn is empty.
func openStores(ctx context.Context, dsn string, log *zap.Logger) (stores, error) {
	if dsn == "" {
		log.Warn("no DSN configured; data lives in memory and is lost on exit")
		return stores{
			accounts: memory.NewAccounts(),
			rows:     memory.NewRows(),
			lim:      limiter.NewMemory(limiter.DefaultSettings),
			close:    func() {},
		}, nil
	}

	if err := migrate.Up(ctx, dsn, log); err != nil {
		return stores{}, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return stores{}, err
	}
	db := &postgres.DB{Pool: pool}
	return stores{
		accounts: postgres.NewAccountRepo(db),
		rows:     postgres.NewRowRepo(db),
		lim:      limiter.NewPG(pool, limiter.DefaultSettings),
		close:    db.Close,
	}, nil
}
