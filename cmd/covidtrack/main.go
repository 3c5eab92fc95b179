// Package main provides the covidtrack CLI entry point.
package main

import (
	"fmt"
	"os"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/clinic"
	"covidtrack/internal/config"
	"covidtrack/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dataDir    string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "covidtrack",
	Short: "covidtrack - COVID-19 patient tracking and test recommendations",
	Long: `covidtrack records patients, their test results and the high-risk
locations derived from positive results, and recommends whether a patient
should isolate or get tested based on reported symptoms.

Data lives in three plain files under the data directory:
  patientDetails.csv  one patient per line
  locations.txt       one high-risk location per line
  symptoms.csv        three lines of symptom names, lowest severity first

Run without arguments to start the interactive menu.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		// The menu owns the terminal; process logs go to the category files only.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
		logging.CloseAudit()
	},
	RunE: runMenu,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (overrides config)")

	rootCmd.AddCommand(
		intakeCmd,
		submitCmd,
		updateCmd,
		locationsCmd,
		patientsCmd,
		showCmd,
		symptomsCmd,
		initCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides and starts
// category logging.
func loadConfig() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	cfg = c

	err = logging.Initialize(logging.Options{
		LogsDir:    c.LogsDir(),
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSON(),
		Categories: c.Logging.Categories,
		Audit:      c.Logging.Audit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("Config loaded from %s, data dir %s", configPath, c.DataDir)
	return nil
}

func dataPaths() clinic.Paths {
	return clinic.Paths{
		Patients:  cfg.PatientsPath(),
		Locations: cfg.LocationsPath(),
		Symptoms:  cfg.SymptomsPath(),
	}
}

func newService() (*clinic.Service, error) {
	return clinic.NewService(dataPaths(), nil)
}

func styles() ui.Styles {
	return ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
}
