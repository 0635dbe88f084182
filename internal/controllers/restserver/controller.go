// Package restserver serves the altimeter, forecast, moon and tide queries
// over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/internal/weather"
	"github.com/chrissnell/trailsense/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// Altimeter is the part of the fused altimeter the API reads
type Altimeter interface {
	Altitude() float64
	HasValidReading() bool
	Pressure() float64
}

// History supplies the retained pressure history
type History interface {
	Readings(ctx context.Context) ([]weather.PressureAltitudeReading, error)
}

// Services are the engines behind the API. Altimeter and History may be nil
// when no sensors are configured; their endpoints then answer 503.
type Services struct {
	Altimeter  Altimeter
	History    History
	Weather    *weather.Service
	Tides      *tide.Service
	TideModels tide.Loader
}

// Controller represents the REST server controller
type Controller struct {
	Server     http.Server
	restConfig config.RESTServerData
	services   Services
	logger     *zap.SugaredLogger
	handlers   *Handlers
	now        func() time.Time
}

// NewController creates a new REST server controller
func NewController(services Services, rc config.RESTServerData, logger *zap.SugaredLogger) (*Controller, error) {
	if services.Weather == nil || services.Tides == nil || services.TideModels == nil {
		return nil, errors.New("REST server needs the weather and tide services")
	}
	logger = log.OrNop(logger)

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	ctrl := &Controller{
		restConfig: rc,
		services:   services,
		logger:     logger,
		now:        time.Now,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))
	ctrl.Server.Handler = recovery(handlers.CompressHandler(ctrl.setupRouter()))
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// Run serves until ctx is cancelled, then shuts the server down
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Infow("starting REST server", "addr", c.Server.Addr, "tls", c.restConfig.Cert != "")

	errc := make(chan error, 1)
	go func() {
		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("REST server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.logger.Info("shutting down the REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("REST server shutdown: %w", err)
	}
	return <-errc
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	api := router.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/altitude", c.handlers.GetAltitude)
	api.HandleFunc("/weather", c.handlers.GetWeather)
	api.HandleFunc("/moon", c.handlers.GetMoon)
	api.HandleFunc("/tides", c.handlers.GetTides)
	api.HandleFunc("/tides/nearest", c.handlers.GetNearestTide)
	api.HandleFunc("/tides/{name}", c.handlers.GetTide)

	return router
}

// recoveryLogger reports handler panics through zap
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Errorln(args...)
}
