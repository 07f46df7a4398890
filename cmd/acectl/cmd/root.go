package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/formicag/ACEReportHub/internal/app"
	"github.com/formicag/ACEReportHub/internal/config"
	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries the settings shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	_, root := newRoot()
	return root
}

func newRoot() (*cli, *cobra.Command) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "acectl",
		Short: "acectl manages weekly ACE pipeline snapshots",
		Long: `acectl is the operator tool for the ACE report hub.

It works directly against the configured store, so every rule of the server
applies: one snapshot per report week, the baseline (#1) can never be deleted,
the second-oldest snapshot needs a confirmation token, and every delete writes a
backup first.

Common workflows:

  Compare this week's export with the latest snapshot:
    acectl preview export.csv --week 2026-03-09

  Store it:
    acectl save export.csv --week 2026-03-09 --to team@example.com --notes "Quiet week"

  List stored snapshots:
    acectl history

Configuration:
  Settings come from the YAML file given by --config and from the environment
  (DATABASE_URL, STORE_DRIVER, BACKUP_DIR, CONFIRM_SECRET, ...). Flags below and
  ACE_ prefixed variables (ACE_STORE, ACE_SQLITE_PATH, ...) override both.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("store", "", "store driver: postgres, sqlite or memory")
	pf.String("database-url", "", "PostgreSQL connection string")
	pf.String("sqlite-path", "", "SQLite database file")
	pf.String("backup-dir", "", "directory for backup archives")
	pf.String("log-level", "warn", "log level written to stderr")
	for _, name := range []string{"config", "store", "database-url", "sqlite-path", "backup-dir", "log-level"} {
		_ = c.v.BindPFlag(name, pf.Lookup(name))
	}
	c.v.SetEnvPrefix("ACE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.historyCmd(),
		c.previewCmd(),
		c.saveCmd(),
		c.deleteCmd(),
		c.deleteTokenCmd(),
		c.backupCmd(),
		c.auditCmd(),
	)
	return c, root
}

func (c *cli) loadConfig() (*config.Config, error) {
	return config.LoadWith(c.v.GetString("config"), func(cfg *config.Config) {
		if s := c.v.GetString("store"); s != "" {
			cfg.Store.Driver = s
		}
		if s := c.v.GetString("database-url"); s != "" {
			cfg.Store.DatabaseURL = s
		}
		if s := c.v.GetString("sqlite-path"); s != "" {
			cfg.Store.SQLitePath = s
		}
		if s := c.v.GetString("backup-dir"); s != "" {
			cfg.Backup.Dir = s
		}
		cfg.LogLevel = c.v.GetString("log-level")
	})
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel))
}
