// Package app wires the engines, sensors, history recorder and REST server
// together from the configuration and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/trailsense/internal/altimeter"
	"github.com/chrissnell/trailsense/internal/controllers/restserver"
	"github.com/chrissnell/trailsense/internal/history"
	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/sensors/mqtt"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         log.OrNop(logger),
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Sensors.MQTT == nil && cfg.RESTServer == nil {
		return errors.New("nothing to run: configure sensors.mqtt or rest")
	}

	weatherService, err := NewWeatherService(cfg, log.Named("weather"))
	if err != nil {
		return err
	}
	tideService, err := tide.NewService()
	if err != nil {
		return err
	}
	tideLoader, err := NewTideLoader(a.configProvider)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	services := restserver.Services{
		Weather:    weatherService,
		Tides:      tideService,
		TideModels: tideLoader,
	}

	if cfg.Sensors.MQTT != nil {
		fused, recorder, closeSensors, err := a.startSensors(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSensors()

		services.Altimeter = fused
		services.History = recorder
		g.Go(func() error {
			return recorder.Run(ctx)
		})
	} else {
		a.logger.Info("no sensors configured; altitude and weather queries are disabled")
	}

	if cfg.RESTServer != nil {
		rest, err := restserver.NewController(services, *cfg.RESTServer, log.Named("rest"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return rest.Run(ctx)
		})
	}

	a.logger.Info("application started successfully")
	err = g.Wait()
	a.logger.Info("shutdown complete")
	return err
}

// startSensors connects the MQTT sensors, starts the fused altimeter and
// prepares the history recorder. The returned func stops the altimeter and
// closes the stores.
func (a *App) startSensors(ctx context.Context, cfg *config.ConfigData) (*altimeter.FusedAltimeter, *history.Recorder, func(), error) {
	altimeterConfig, err := AltimeterConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	historyConfig, err := HistoryConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := mqtt.New(*cfg.Sensors.MQTT, log.Named("mqtt"))
	if err != nil {
		return nil, nil, nil, err
	}

	calibrationStore, err := OpenCalibrationStore(cfg, log.Named("calibration"))
	if err != nil {
		return nil, nil, nil, err
	}
	baseline, err := NewBaseline(cfg, calibrationStore, log.Named("calibration"))
	if err != nil {
		calibrationStore.Close()
		return nil, nil, nil, err
	}

	historyStore, err := OpenHistoryStore(cfg)
	if err != nil {
		calibrationStore.Close()
		return nil, nil, nil, err
	}

	closeStores := func() {
		if err := errors.Join(historyStore.Close(), calibrationStore.Close()); err != nil {
			a.logger.Errorw("error closing stores", "error", err)
		}
	}

	fused, err := altimeter.New(client.GPS(), client.Barometer(), baseline, altimeterConfig, log.Named("altimeter"))
	if err != nil {
		closeStores()
		return nil, nil, nil, err
	}
	recorder, err := history.NewRecorder(fused, historyStore, historyConfig, history.WithLogger(log.Named("history")))
	if err != nil {
		closeStores()
		return nil, nil, nil, err
	}

	if err := fused.Start(ctx); err != nil {
		closeStores()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := fused.Stop(); err != nil {
			a.logger.Errorw("error stopping altimeter", "error", err)
		}
		closeStores()
	}
	return fused, recorder, cleanup, nil
}

// ClearCalibration drops the stored sea-level baseline
func ClearCalibration(ctx context.Context, cfg *config.ConfigData, logger *zap.SugaredLogger) error {
	store, err := OpenCalibrationStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	baseline, err := NewBaseline(cfg, store, logger)
	if err != nil {
		return err
	}
	return baseline.Clear(ctx)
}
