package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	persistence "github.com/goliatone/go-persistence-bun"
	users "github.com/goliatone/go-users"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	ctx := context.Background()

	cfg, err := users.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bunDB, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}
	defer bunDB.Close()

	repo := users.NewRepositoryManager(bunDB)

	provider := users.NewUserProvider(repo.Users()).
		WithPasswordAuthenticator(users.NewPasswordAuthenticator(cfg.GetHashCost()))

	auther := users.NewAuthenticator(provider, cfg)

	sessions := users.NewSessionManager(
		repo.Sessions(),
		provider,
		cfg.GetSessionSecret(),
		cfg.GetSessionSalt(),
		cfg.GetSessionTTL(),
	)

	controller := users.NewAPIController(
		users.WithRepositoryManager(repo),
		users.WithAuthenticator(auther),
		users.WithSessionManager(sessions),
		users.WithControllerConfig(cfg),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: users.NewAppErrorHandler(nil),
	})

	users.RegisterAPIRoutes(app, controller)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openDatabase connects, runs the embedded migrations through the
// persistence client, and hands back the managed bun instance.
func openDatabase(ctx context.Context, cfg *users.EnvConfig) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*users.User)(nil))
	persistence.RegisterModel((*users.Session)(nil))

	client, err := persistence.New(cfg.GetPersistence(), sqldb, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
