// Package cli implements importctl, the command line front end of the
// spreadsheet import engine.
package cli

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"management-web/internal/config"
	"management-web/internal/database"
	"management-web/internal/entities"
	"management-web/internal/reconcile"
	"management-web/internal/repository"
	"management-web/internal/utils"
)

// StoreOpener opens the storage adapter of an entity. The returned closer
// releases whatever the adapter holds.
type StoreOpener func(ctx context.Context, cfg *config.Config, e entities.Entity) (reconcile.Store, io.Closer, error)

// Options wires the CLI's external dependencies.
type Options struct {
	LoadConfig func() (*config.Config, error)
	OpenStore  StoreOpener
	Logger     *logrus.Logger
}

// MySQLStore opens a table store over a fresh MySQL connection.
func MySQLStore(ctx context.Context, cfg *config.Config, e entities.Entity) (reconcile.Store, io.Closer, error) {
	db, err := database.NewMySQL(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewTableStore(db, e.Table, e.KeyFields, e.Columns()), db, nil
}

// NewRootCommand builds the importctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.OpenStore == nil {
		opts.OpenStore = MySQLStore
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}

	var output string
	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Import spreadsheets into the management database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: table, json or yaml (default: table on a terminal, json otherwise)")

	format := func() (Format, error) { return ParseFormat(output) }

	root.AddCommand(
		newEntitiesCommand(format),
		newTemplateCommand(),
		newRunCommand(opts, format),
	)
	return root
}

// Execute runs importctl with args until ctx is canceled.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(Options{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
