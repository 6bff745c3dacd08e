package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/plant-maintenance/internal/seed"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	clearData bool
	seedFile  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with demo accounts, machines and parts for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.InitWithConfig(os.Stdout, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		data, err := os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("failed to read fixtures: %w", err)
		}
		fixtures, err := seed.Parse(data)
		if err != nil {
			return err
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gdb, err := initGorm(db, cfg.AppEnv)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		sum, err := seed.NewSeeder(gdb, cfg.Security.BCryptCost, lg).Apply(context.Background(), fixtures, clearData)
		if err != nil {
			return err
		}

		fmt.Printf("Seeded %d employees, %d machines, %d parts from %s\n", sum.Employees, sum.Machines, sum.Parts, seedFile)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "db/seed/fixtures.yml", "fixture file to load")
}
