package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrissnell/trailsense/internal/app"
	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/internal/types"
)

func newTidesCmd() *cobra.Command {
	var (
		date   string
		near   string
		levels bool
	)

	cmd := &cobra.Command{
		Use:   "tides [name]",
		Short: "List the configured tides, or predict one day of a tide",
		Long: `Without arguments, lists the configured tides. With a tide name (or
--near lat,lon) prints the day's high and low tides, the tidal range and the
current state of the water.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			loader, err := app.NewTideLoader(provider)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var m tide.Model
			switch {
			case len(args) == 1:
				m, err = loader.ByName(ctx, args[0])
			case near != "":
				var c sensors.Coordinate
				c, err = parseCoordinate(near)
				if err == nil {
					m, err = loader.Nearest(ctx, c)
				}
			default:
				models, err := loader.All(ctx)
				if err != nil {
					return err
				}
				return printTideList(cmd.OutOrStdout(), models)
			}
			if err != nil {
				return err
			}

			svc, err := tide.NewService()
			if err != nil {
				return err
			}
			now := time.Now()
			day, err := types.ParseDate(m, date, now)
			if err != nil {
				return err
			}

			report := types.BuildTideReport(svc, m, day, now, levels)
			return render(cmd.OutOrStdout(), report, func(w io.Writer) {
				printTideReport(w, report, types.Location(m))
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to predict as YYYY-MM-DD in the tide's time zone (default today)")
	cmd.Flags().StringVar(&near, "near", "", "Pick the tide nearest to lat,lon instead of by name")
	cmd.Flags().BoolVar(&levels, "levels", false, "Include the water-level series")
	return cmd
}

func parseCoordinate(s string) (sensors.Coordinate, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return sensors.Coordinate{}, fmt.Errorf("invalid coordinate %q, expected lat,lon", s)
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || latitude < -90 || latitude > 90 {
		return sensors.Coordinate{}, fmt.Errorf("invalid latitude %q", lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil || longitude < -180 || longitude > 180 {
		return sensors.Coordinate{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return sensors.Coordinate{Latitude: latitude, Longitude: longitude}, nil
}

func printTideList(out io.Writer, models []tide.Model) error {
	summaries := make([]types.TideSummary, 0, len(models))
	for _, m := range models {
		summaries = append(summaries, types.Summarize(m))
	}

	return render(out, summaries, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tLOCATION\tTIME ZONE")
		for _, s := range summaries {
			location := "-"
			if s.Coordinate != nil {
				location = fmt.Sprintf("%.4f,%.4f", s.Coordinate.Latitude, s.Coordinate.Longitude)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, location, s.TimeZone)
		}
		tw.Flush()
	})
}

func printTideReport(w io.Writer, r types.TideReport, loc *time.Location) {
	fmt.Fprintf(w, "%s tides for %s (%s range)\n", r.Name, r.Date, r.Range)
	for _, e := range r.Events {
		fmt.Fprintf(w, "  %-4s  %s  %6.2f m\n", e.Type, e.Time.In(loc).Format("15:04 MST"), e.Height)
	}
	if len(r.Events) == 0 {
		fmt.Fprintln(w, "  no high or low tide on this day")
	}

	if d := r.Daylight; d != nil {
		if d.Sunrise != nil {
			fmt.Fprintf(w, "Sun: up %s, down %s\n", d.Sunrise.Format("15:04"), d.Sunset.Format("15:04"))
		} else {
			fmt.Fprintf(w, "Sun: %s\n", d.Condition)
		}
	}

	direction := "falling"
	if r.Rising {
		direction = "rising"
	}
	fmt.Fprintf(w, "Now: %.2f m, %s tide, %s\n", r.Height, r.Current, direction)

	for _, l := range r.WaterLevels {
		fmt.Fprintf(w, "  %s  %6.2f m\n", l.Time.In(loc).Format("15:04"), l.Height)
	}
}
