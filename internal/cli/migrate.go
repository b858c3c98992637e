package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run result store migrations",
		Long:  "Apply the Postgres schema migrations. SQLite stores migrate themselves when opened.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Driver != "postgres" {
				return fmt.Errorf("migrate needs a postgres store (set DATABASE_URL or store.driver)")
			}
			if down {
				if err := store.MigrateDown(a.cfg.Store.DSN); err != nil {
					return err
				}
				a.log.Info().Msg("migrations rolled back")
				return nil
			}
			if err := store.Migrate(a.cfg.Store.DSN); err != nil {
				return err
			}
			a.log.Info().Msg("migrations complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back all migrations")
	return cmd
}
