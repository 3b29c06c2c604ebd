// Command admin runs maintenance tasks against the database configured for
// the API server: creating superusers and loading stock prices.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"findash/internal/config"
	"findash/internal/db"
	"findash/internal/logging"
)

var (
	cfg    *config.Config
	log    *logrus.Logger
	gormDB *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Financial Dashboard maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if url, _ := cmd.Flags().GetString("database-url"); url != "" {
			cfg.DatabaseURL = url
		}
		log = logging.New(cfg.LogLevel)

		var err error
		gormDB, err = db.Open(cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("database init: %w", err)
		}
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if gormDB == nil {
			return nil
		}
		return db.Close(gormDB)
	},
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "override DATABASE_URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
