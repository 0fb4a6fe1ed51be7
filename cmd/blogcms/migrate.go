package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantware/blogcms/blog/migrate"
	"github.com/plantware/blogcms/blog/persistence"
	"github.com/plantware/blogcms/shared/db/sqlite"
)

func newMigrateCommand() *cobra.Command {
	var postsDir string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import legacy post exports into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sqlite.NewConfig()
			if dbPath != "" {
				cfg.Path = dbPath
			}

			database := sqlite.New(cfg)
			if err := database.Connect(); err != nil {
				return err
			}
			defer func() {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
				}
			}()

			repo := persistence.NewPostRepository(database.DB())
			report, err := migrate.New(postsDir, repo).Run(cmd.Context())
			if err != nil {
				return err
			}

			for _, msg := range report.Errors {
				log.Warn().Str("detail", msg).Msg("post skipped with error")
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("migration finished with %d errors (%d migrated, %d skipped)",
					len(report.Errors), report.Migrated, report.Skipped)
			}

			log.Info().
				Int("migrated", report.Migrated).
				Int("skipped", report.Skipped).
				Msg("migration complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&postsDir, "posts-dir", "./posts", "directory containing legacy post JSON files")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to BLOGCMS_DB_PATH or ./blogcms.db)")
	return cmd
}
