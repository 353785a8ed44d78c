package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	mq "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/captain"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/rider"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

// StandaloneService serves the ride and the driver routes from one process.
// Events still travel through the message bus.
type StandaloneService struct {
	storage    *storage
	bus        *rabbit.Bus
	hub        *ws.ConnectionHub
	consumer   *mq.RideEventConsumer
	notifier   *rider.Notifier
	captains   *captain.Service
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewStandalone(ctx context.Context, cfg config.Config, log logger.Logger) (*StandaloneService, error) {
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

	hub := ws.NewConnHub(log)
	captains := captain.NewService(captain.NewBroker(cfg.Mode.String()), cfg.LongPoll.MaxTimeout, log)
	rideService := ride.NewRideService(storage.rides, storage.events, mq.NewRideEventPublisher(bus, log), storage.trm, log, cfg.Mode.String())

	httpServer, err := server.New(cfg.Mode, cfg.Services.RideService, server.Deps{
		Rides:           rideService,
		DriverRides:     rideService,
		Captains:        captains,
		Auth:            newAuth(cfg, log),
		Bus:             bus,
		Hub:             hub,
		LongPollTimeout: cfg.LongPoll.MaxTimeout,
	}, log)
	if err != nil {
		storage.close()
		log.Error(ctx, "failed to setup http server", err)
		return nil, err
	}

	return &StandaloneService{
		storage:    storage,
		bus:        bus,
		hub:        hub,
		consumer:   mq.NewRideEventConsumer(bus, log),
		notifier:   rider.NewNotifier(hub, log),
		captains:   captains,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *StandaloneService) Start(ctx context.Context) error {
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "standalone service closed")
	}()

	s.bus.Start(ctx)
	if err := s.consumer.Consume(ctx, offerToCaptains(s.captains), types.EventNewRide); err != nil {
		return err
	}
	if err := s.consumer.Consume(ctx, s.notifier.HandleRideEvent, riderEvents...); err != nil {
		return err
	}

	s.log.Info(ctx, "standalone service started")
	return serve(ctx, s.httpServer, s.log)
}

func (s *StandaloneService) close(ctx context.Context) {
	s.hub.Close()
	closeBus(ctx, s.bus, s.log)
	s.storage.close()
}
