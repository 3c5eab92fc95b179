package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/symptom"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// locationsCmd lists high-risk locations
var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Display the high-risk locations",
	Args:  cobra.NoArgs,
	RunE:  runLocations,
}

// symptomsCmd prints the symptom catalog
var symptomsCmd = &cobra.Command{
	Use:   "symptoms",
	Short: "Display the symptom catalog by severity tier",
	Args:  cobra.NoArgs,
	RunE:  runSymptoms,
}

// initCmd prepares a data directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory, data files and default config",
	Long: `Creates the data directory and any missing data files (empty), and writes
the default config file if none exists. Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runLocations(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	locations := svc.Locations()

	fmt.Println("The current High Risk Locations for COVID are:")
	if len(locations) == 0 {
		fmt.Println("(none)")
		return nil
	}
	fmt.Print(ui.LocationsTable(locations).View(styles()))
	return nil
}

func runSymptoms(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	c := svc.Catalog()
	if c.Empty() {
		fmt.Println("Symptom database not found.")
		return nil
	}

	t := ui.NewSimpleTable("Symptoms", []string{"Tier", "Symptoms"})
	for i := 0; i < symptom.TierCount; i++ {
		t.AddRow(fmt.Sprintf("%d", i), strings.Join(c.Tiers[i], ", "))
	}
	fmt.Print(t.View(styles()))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	for _, path := range []string{cfg.PatientsPath(), cfg.LocationsPath(), cfg.SymptomsPath()} {
		created, err := createIfMissing(path)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created %s\n", path)
		} else {
			fmt.Printf("Exists  %s\n", path)
		}
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote config %s\n", configPath)
	}

	logger.Info("Data directory initialized", zap.String("dir", cfg.DataDir))
	return nil
}

func createIfMissing(path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return true, f.Close()
}
