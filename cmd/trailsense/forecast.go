package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrissnell/trailsense/internal/app"
	"github.com/chrissnell/trailsense/internal/history"
	"github.com/chrissnell/trailsense/internal/types"
	"github.com/chrissnell/trailsense/internal/weather"
	"github.com/chrissnell/trailsense/pkg/units"
)

func newForecastCmd() *cobra.Command {
	var (
		temperature float64
		humidity    float64
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the weather from the recorded pressure history",
		Long: `Reads the pressure history kept by "trailsense serve" (history.sqlite-path
must be configured) and prints the pressure tendency with the hourly and
daily forecasts. With --temperature and --humidity it also prints the heat
index, dew point and heat alert.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer provider.Close()

			if cfg.History.SQLitePath == "" {
				return errors.New("forecast needs a persisted history: set history.sqlite-path")
			}
			unit, err := units.ParsePressureUnit(cfg.Units.Pressure)
			if err != nil {
				return err
			}

			svc, err := app.NewWeatherService(cfg, nil)
			if err != nil {
				return err
			}
			store, err := history.NewSQLiteStore(cfg.History.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			now := time.Now()
			readings, err := store.Since(cmd.Context(), now.Add(-weather.DailyWindow))
			if err != nil {
				return err
			}

			report := forecastReport{WeatherReport: types.BuildWeatherReport(svc, readings, now)}
			if cmd.Flags().Changed("temperature") && cmd.Flags().Changed("humidity") {
				heatIndex := svc.HeatIndex(temperature, humidity)
				dewPoint := svc.DewPoint(temperature, humidity)
				alert := svc.HeatAlert(heatIndex)
				report.HeatIndex, report.DewPoint, report.HeatAlert = &heatIndex, &dewPoint, &alert
			}

			return render(cmd.OutOrStdout(), report, func(w io.Writer) {
				printForecast(w, report, unit)
			})
		},
	}

	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Air temperature in °C")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "Relative humidity in percent")
	return cmd
}

type forecastReport struct {
	types.WeatherReport
	HeatIndex *float64           `json:"heat_index,omitempty"`
	DewPoint  *float64           `json:"dew_point,omitempty"`
	HeatAlert *weather.HeatAlert `json:"heat_alert,omitempty"`
}

func printForecast(w io.Writer, r forecastReport, unit units.PressureUnit) {
	if r.SeaLevelPressure == nil {
		fmt.Fprintln(w, "No pressure history recorded in the last day")
	} else {
		fmt.Fprintf(w, "Sea-level pressure: %s (%d samples)\n", units.Hpa(*r.SeaLevelPressure).Convert(unit), r.Samples)
	}

	amount := units.Hpa(r.Tendency.Amount).Convert(unit)
	fmt.Fprintf(w, "Tendency:           %s, %+.2f %s / 3 h\n", r.Tendency.Characteristic, amount.Value, unit)
	fmt.Fprintf(w, "Next hours:         %s\n", r.Hourly)
	fmt.Fprintf(w, "Next day:           %s\n", r.Daily)

	if r.HeatIndex != nil {
		fmt.Fprintf(w, "Heat index:         %.1f °C (%s)\n", *r.HeatIndex, *r.HeatAlert)
		fmt.Fprintf(w, "Dew point:          %.1f °C\n", *r.DewPoint)
	}
}
