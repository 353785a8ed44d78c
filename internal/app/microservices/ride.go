package microservices

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	mq "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/rider"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

// riderEvents are the ride events pushed to the rider's websocket.
var riderEvents = []types.EventKind{
	types.EventRideAccepted,
	types.EventRideStarted,
	types.EventRideCompleted,
	types.EventRideCancelled,
}

// RideService creates and cancels rides and notifies riders about their rides.
type RideService struct {
	storage    *storage
	bus        *rabbit.Bus
	hub        *ws.ConnectionHub
	consumer   *mq.RideEventConsumer
	notifier   *rider.Notifier
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewRide(ctx context.Context, cfg config.Config, log logger.Logger) (*RideService, error) {
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
	rideService := ride.NewRideService(storage.rides, storage.events, mq.NewRideEventPublisher(bus, log), storage.trm, log, cfg.Mode.String())

	httpServer, err := server.New(cfg.Mode, cfg.Services.RideService, server.Deps{
		Rides: rideService,
		Auth:  newAuth(cfg, log),
		Bus:   bus,
		Hub:   hub,
	}, log)
	if err != nil {
		storage.close()
		log.Error(ctx, "failed to setup http server", err)
		return nil, err
	}

	return &RideService{
		storage:    storage,
		bus:        bus,
		hub:        hub,
		consumer:   mq.NewRideEventConsumer(bus, log),
		notifier:   rider.NewNotifier(hub, log),
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *RideService) Start(ctx context.Context) error {
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "ride service closed")
	}()

	s.bus.Start(ctx)
	if err := s.consumer.Consume(ctx, s.notifier.HandleRideEvent, riderEvents...); err != nil {
		return err
	}

	s.log.Info(ctx, "ride service started")
	return serve(ctx, s.httpServer, s.log)
}

func (s *RideService) close(ctx context.Context) {
	s.hub.Close()
	closeBus(ctx, s.bus, s.log)
	s.storage.close()
}
