package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// configCacheTTL bounds how long a loaded configuration is reused within
// one process
const configCacheTTL = 5 * time.Minute

var rootCmd = &cobra.Command{
	Use:   "trailsense",
	Short: "Altitude fusion, barometric forecasts and tide predictions",
	Long: `trailsense fuses a barometer and a GPS into a stable altitude, forecasts
the weather from the pressure history and predicts tides from harmonic
constituents. Run "trailsense serve" for the long-running service, or use the
query commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Init(viper.GetBool("debug"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	rootCmd.PersistentFlags().String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	rootCmd.PersistentFlags().Bool("debug", false, "Turn on debugging output")
	rootCmd.PersistentFlags().String("format", "text", "Output format: text, json or msgpack")

	// Every persistent flag can also be set as TRAILSENSE_<FLAG>, e.g.
	// TRAILSENSE_CONFIG_BACKEND=sqlite
	viper.SetEnvPrefix("trailsense")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))

	rootCmd.AddCommand(
		newServeCmd(),
		newTidesCmd(),
		newForecastCmd(),
		newMoonCmd(),
		newCalibrationCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openProvider opens the configuration source named by --config and
// --config-backend
func openProvider() (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(viper.GetString("config"))

	var provider config.ConfigProvider
	switch backend := viper.GetString("config-backend"); backend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		p, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		provider = p
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", backend)
	}
	return config.NewCachedProvider(provider, configCacheTTL), nil
}

// loadConfig opens the provider and reads the configuration. The caller
// closes the provider.
func loadConfig() (config.ConfigProvider, *config.ConfigData, error) {
	provider, err := openProvider()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := provider.LoadConfig()
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("error reading configuration. Did you pass the --config flag? Run with -h for help: %w", err)
	}
	return provider, cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trailsense %s\n", version)
		},
	}
}
