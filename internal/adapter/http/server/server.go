package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/ride-dispatch/internal/adapter/http/ws"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Deps are the services the routes of a mode need. Ride service routes need
// Rides and Hub, driver service routes need DriverRides and Captains.
type Deps struct {
	Rides       handler.RideService
	DriverRides handler.DriverRideService
	Captains    handler.CaptainService
	Auth        middleware.AuthService
	Bus         handler.BusStatus
	Hub         *ws.ConnectionHub

	// LongPollTimeout bounds how long a wait request may block.
	LongPollTimeout time.Duration
}

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	// baseCtx is the parent of every request context; cancelling it ends long-polls.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	addr string
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	ride    *handler.Ride
	driver  *handler.Driver
	riderWs *wshandler.RiderWsHandler
}

func New(mode types.ServiceMode, port string, deps Deps, log logger.Logger) (*API, error) {
	if deps.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	service := mode.String()
	routes := &handlers{
		health: handler.NewHealth(service, deps.Bus, log),
	}

	if mode == types.RideService || mode == types.Standalone {
		if deps.Rides == nil || deps.Hub == nil {
			return nil, fmt.Errorf("%s: ride service and websocket hub are required", mode)
		}
		routes.ride = handler.NewRide(deps.Rides, log)
		routes.riderWs = wshandler.NewRiderWsHandler(deps.Hub, deps.Auth, service, log)
	}
	if mode == types.DriverService || mode == types.Standalone {
		if deps.DriverRides == nil || deps.Captains == nil {
			return nil, fmt.Errorf("%s: ride and captain services are required", mode)
		}
		routes.driver = handler.NewDriver(deps.DriverRides, deps.Captains, log)
	}
	if routes.ride == nil && routes.driver == nil {
		return nil, fmt.Errorf("invalid mode: %s", mode)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	api := &API{
		mode:       mode,
		mux:        http.NewServeMux(),
		routes:     routes,
		m:          middleware.NewMiddleware(deps.Auth, service, log),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		addr:       net.JoinHostPort("0.0.0.0", port),
		log:        log,
	}

	writeTimeout := deps.LongPollTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout + 15*time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	setupRoutes(api.mux, routes, api.m, mode)

	return api, nil
}

// Handler returns the full middleware chain around the routes.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Addr() string {
	return a.addr
}

// Stop ends open long-polls and shuts the server down gracefully.
func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	a.cancelBase()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// Run serves until Stop is called. A listen failure is sent to errCh.
func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr, "mode", a.mode)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()
}

// withMiddleware applies middlewares to the mux. Metrics stays directly on
// the mux so the matched route pattern is visible to it.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Auth(a.m.Logging(a.m.Metrics(a.mux)))))
}
