package main

import (
	"github.com/spf13/cobra"

	"github.com/Hansol916/OSSFinal/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
	Long: `Moves the schema to --target. A negative target (the default) applies
every migration, 0 rolls all of them back.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		target, err := cmd.Flags().GetInt("target")
		if err != nil {
			return err
		}
		if show, _ := cmd.Flags().GetBool("version"); show {
			ver, dirty, err := db.Version(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return err
			}
			printf(cmd, "schema version %d (dirty=%t)\n", ver, dirty)
			return nil
		}
		ver, err := db.Migrate(cmd.Context(), cfg.DBDriver, cfg.DBDSN, target)
		if err != nil {
			return err
		}
		printf(cmd, "schema at version %d\n", ver)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int("target", -1, "Version to migrate to (-1 = latest, 0 = empty)")
	migrateCmd.Flags().Bool("version", false, "Print the current schema version and exit")
}
