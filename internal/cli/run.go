package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"management-web/internal/reconcile"
	"management-web/internal/service"
)

type runFlags struct {
	entity    string
	file      string
	createdBy string
	dryRun    bool
}

func newRunCommand(opts Options, format func() (Format, error)) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile a workbook into its entity table",
		Long: `Run reads the first sheet of a workbook, inserts rows whose business key
is new and updates rows whose key already exists. Failed rows are reported
without stopping the rest of the sheet.

With --dry-run existing records are looked up but nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format()
			if err != nil {
				return err
			}
			report, err := runImport(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			if err := Write(cmd.OutOrStdout(), f, report); err != nil {
				return err
			}
			if report.Outcome == reconcile.OutcomeFailure.String() {
				return fmt.Errorf("no rows were imported")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.entity, "entity", "e", "", "Entity to import (see importctl entities)")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Workbook to import")
	cmd.Flags().StringVar(&flags.createdBy, "created-by", "importctl", "Creator stamped on new records")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Plan the import without writing")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, opts Options, flags runFlags) (*runReport, error) {
	e, err := lookupEntity(flags.entity)
	if err != nil {
		return nil, err
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	sheet, err := service.NewExcelService().ReadRows(flags.file, e.Specs)
	if err != nil {
		return nil, err
	}

	store, closer, err := opts.OpenStore(ctx, cfg, e)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", e.Name, err)
	}
	if closer != nil {
		defer closer.Close()
	}
	if flags.dryRun {
		store = service.NewPreviewStore(store)
	}

	log := opts.Logger.WithField("entity", e.Name).WithField("file", flags.file)
	engine := reconcile.New(store,
		reconcile.WithConcurrency(cfg.ImportConcurrency),
		reconcile.WithDuplicatePolicy(cfg.DuplicatePolicy()),
		reconcile.WithLogger(log),
	)

	stamped := e.WithDefault("created_by", flags.createdBy)
	report, err := engine.Run(ctx, stamped.Batch(sheet.Rows))
	if err != nil {
		return nil, err
	}
	return newRunReport(e.Name, flags.file, flags.dryRun, report), nil
}

type runReport struct {
	Entity     string                   `json:"entity" yaml:"entity"`
	File       string                   `json:"file" yaml:"file"`
	DryRun     bool                     `json:"dry_run" yaml:"dry_run"`
	Outcome    string                   `json:"outcome" yaml:"outcome"`
	Total      int                      `json:"total" yaml:"total"`
	Inserted   int                      `json:"inserted" yaml:"inserted"`
	Updated    int                      `json:"updated" yaml:"updated"`
	Failed     int                      `json:"failed" yaml:"failed"`
	Canceled   bool                     `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	Failures   []reconcile.Failure      `json:"failures" yaml:"failures"`
	Duplicates []reconcile.DuplicateRow `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

func newRunReport(entity, file string, dryRun bool, r *reconcile.BatchReport) *runReport {
	return &runReport{
		Entity:     entity,
		File:       file,
		DryRun:     dryRun,
		Outcome:    r.Outcome().String(),
		Total:      r.Total,
		Inserted:   r.Inserted,
		Updated:    r.Updated,
		Failed:     len(r.Failures),
		Canceled:   r.Canceled,
		Failures:   r.Failures,
		Duplicates: r.Duplicates,
	}
}

func (r *runReport) Table() []Table {
	summary := Table{
		Headers: []string{"Entity", "Total", "Inserted", "Updated", "Failed", "Outcome"},
		Rows: [][]string{{
			r.Entity,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Failed),
			r.outcomeLabel(),
		}},
	}
	tables := []Table{summary}

	if len(r.Failures) > 0 {
		failures := Table{Title: "Failed rows", Headers: []string{"Row", "Error"}}
		for _, f := range r.Failures {
			failures.Rows = append(failures.Rows, []string{strconv.Itoa(f.RowNumber), f.Error})
		}
		tables = append(tables, failures)
	}
	return tables
}

func (r *runReport) outcomeLabel() string {
	label := r.Outcome
	if r.DryRun {
		label += " (dry run)"
	}
	if r.Canceled {
		label += " (interrupted)"
	}
	return label
}
