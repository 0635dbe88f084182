package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrissnell/trailsense/internal/app"
	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/pkg/config"
)

func newCalibrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Manage the altimeter's sea-level baseline",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the stored baseline so the next run recalibrates from the GPS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer provider.Close()

			if err := app.ClearCalibration(cmd.Context(), cfg, log.GetSugaredLogger()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared the %s calibration baseline\n", cfg.Calibration.Backend)
			return nil
		},
	})
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or convert the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <config.yaml> <config.db>",
		Short: "Copy a YAML configuration into a SQLite configuration database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _ := filepath.Abs(args[0])
			cfg, err := config.NewYAMLProvider(src).LoadConfig()
			if err != nil {
				return fmt.Errorf("error reading %s: %w", src, err)
			}

			dst, err := config.NewSQLiteProvider(args[1])
			if err != nil {
				return err
			}
			defer dst.Close()

			if err := dst.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s (%d tides)\n", args[0], args[1], len(cfg.Tides))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer provider.Close()

			if cfg.Sensors.MQTT != nil && cfg.Sensors.MQTT.Password != "" {
				redacted := *cfg.Sensors.MQTT
				redacted.Password = "********"
				cfg.Sensors.MQTT = &redacted
			}
			return render(cmd.OutOrStdout(), cfg, func(w io.Writer) {
				fmt.Fprintf(w, "config backend %s, read-only %v\n", viper.GetString("config-backend"), provider.IsReadOnly())
				fmt.Fprintf(w, "calibration: %s, validity %s\n", cfg.Calibration.Backend, cfg.Calibration.Validity)
				fmt.Fprintf(w, "history: every %s, kept %s\n", cfg.History.Interval, cfg.History.Retention)
				fmt.Fprintf(w, "thresholds (%s / 3 h): storm %v, hourly %v, daily %v\n", cfg.Units.Pressure,
					cfg.Weather.StormThreshold, cfg.Weather.HourlyChangeThreshold, cfg.Weather.DailyChangeThreshold)
				fmt.Fprintf(w, "tides: %d\n", len(cfg.Tides))
			})
		},
	})
	return cmd
}
