package microservices

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

const busCloseTimeout = 10 * time.Second

// storage is the ride datastore a service runs on.
type storage struct {
	rides  ride.RideRepo
	events ride.RideEventRepo
	trm    trm.TxManager
	db     *postgres.PostgreDB // nil for the memory driver
}

func newStorage(ctx context.Context, cfg config.Config, log logger.Logger) (*storage, error) {
	service := cfg.Mode.String()

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn(ctx, "using in-memory storage, rides are lost on restart")
		return &storage{
			rides:  memory.NewRideRepo(),
			events: memory.NewRideEventRepo(),
			trm:    trm.Nop{},
		}, nil
	case config.StoragePostgres:
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to setup database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx, postgres.Migrations, log); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return &storage{
			rides:  repo.NewRideRepo(db.Pool, service),
			events: repo.NewRideEventRepo(db.Pool, service),
			trm:    trm.New(db.Pool),
			db:     db,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorage, cfg.Storage.Driver)
	}
}

func (s *storage) close() {
	if s != nil && s.db != nil {
		s.db.Close()
	}
}

func newBus(cfg config.Config, log logger.Logger) (*rabbit.Bus, error) {
	busCfg, err := cfg.RabbitMQ.Bus(cfg.Mode.String())
	if err != nil {
		return nil, err
	}
	return rabbit.New(busCfg, log)
}

func newAuth(cfg config.Config, log logger.Logger) *auth.AuthService {
	return auth.NewAuthService(auth.NewTokenService(cfg.Auth.JWTSecret), log)
}

// serve runs the HTTP server until a signal arrives or the server fails,
// then stops it.
func serve(ctx context.Context, api *server.API, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	api.Run(ctx, errCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err := <-errCh:
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(wrap.WithAction(context.Background(), "shutdown"), "shutting down application")
		return api.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// closeBus closes the bus with a fresh context so shutdown is not cut short
// by the cancelled run context.
func closeBus(ctx context.Context, bus *rabbit.Bus, log logger.Logger) {
	if bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busCloseTimeout)
	defer cancel()
	if err := bus.Close(ctx); err != nil {
		log.Warn(ctx, "failed to close message bus", "error", err.Error())
	}
}
