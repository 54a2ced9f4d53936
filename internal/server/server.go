package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/otienoanyango/hansard-tales-sub004/internal/config"
	"github.com/otienoanyango/hansard-tales-sub004/internal/queue"
	mid "github.com/otienoanyango/hansard-tales-sub004/internal/server/middleware"
	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store/postgres"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Init starts the read API and blocks until SIGINT/SIGTERM.
func Init(cfg *config.Config) {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	k, err := keyfunc.NewDefault([]string{cfg.JWKSURL})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database url", "err", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer pool.Close()

	migrations := util.GetEnvString("MIGRATIONS_URL", "file://pkg/store/postgres/migrations")
	if err := postgres.Migrate(migrations, cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to apply migrations", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	st := postgres.NewStore(pool)

	e.Use(mid.AppContextMiddleware(&mid.App{
		Store: st,
		Queue: ch,
		Key:   &k,
	}))
	e.Use(echomw.CORS())
	e.Use(echomw.Recover())

	RegisterRoutes(e)

	go func() {
		logger.Info("Starting server", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
