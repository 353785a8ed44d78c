package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	mq "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/captain"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

// DriverService runs the ride transitions drivers trigger and the long-poll
// through which they learn about new rides.
type DriverService struct {
	storage    *storage
	bus        *rabbit.Bus
	consumer   *mq.RideEventConsumer
	captains   *captain.Service
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewDriver(ctx context.Context, cfg config.Config, log logger.Logger) (*DriverService, error) {
	storage, err := newStorage(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to setup storage", err)
		return nil, err
	}

	bus, err := newBus(cfg, log)
	if err != nil {
		storage.close()
		log.Error(ctx, "failed to setup message bus", err)
		return nil, err
	}

	captains := captain.NewService(captain.NewBroker(cfg.Mode.String()), cfg.LongPoll.MaxTimeout, log)
	rideService := ride.NewRideService(storage.rides, storage.events, mq.NewRideEventPublisher(bus, log), storage.trm, log, cfg.Mode.String())

	httpServer, err := server.New(cfg.Mode, cfg.Services.DriverService, server.Deps{
		DriverRides:     rideService,
		Captains:        captains,
		Auth:            newAuth(cfg, log),
		Bus:             bus,
		LongPollTimeout: cfg.LongPoll.MaxTimeout,
	}, log)
	if err != nil {
		storage.close()
		log.Error(ctx, "failed to setup http server", err)
		return nil, err
	}

	return &DriverService{
		storage:    storage,
		bus:        bus,
		consumer:   mq.NewRideEventConsumer(bus, log),
		captains:   captains,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *DriverService) Start(ctx context.Context) error {
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "driver service closed")
	}()

	s.bus.Start(ctx)
	// new-ride is one queue shared by every driver-service instance: each ride
	// reaches the waiters of a single instance. Scaling this service out splits
	// the drivers between instances.
	if err := s.consumer.Consume(ctx, offerToCaptains(s.captains), types.EventNewRide); err != nil {
		return err
	}

	s.log.Info(ctx, "driver service started")
	return serve(ctx, s.httpServer, s.log)
}

func (s *DriverService) close(ctx context.Context) {
	closeBus(ctx, s.bus, s.log)
	s.storage.close()
}

// offerToCaptains hands every new ride to the captains waiting at that moment.
// A ride nobody waited for is still acked; drivers who poll later see newer rides only.
func offerToCaptains(captains *captain.Service) mq.EventHandler {
	return func(ctx context.Context, evt models.DomainEvent, raw []byte) error {
		captains.HandleNewRide(ctx, evt, raw)
		return nil
	}
}
