package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"management-web/internal/entities"
	"management-web/internal/service"
)

type entityList []entityRow

type entityRow struct {
	Name      string   `json:"name" yaml:"name"`
	Title     string   `json:"title" yaml:"title"`
	Table     string   `json:"table" yaml:"table"`
	KeyFields []string `json:"key_fields" yaml:"key_fields"`
	Headers   []string `json:"headers" yaml:"headers"`
}

func (l entityList) Table() []Table {
	t := Table{Headers: []string{"Name", "Title", "Table", "Key"}}
	for _, e := range l {
		t.Rows = append(t.Rows, []string{e.Name, e.Title, e.Table, strings.Join(e.KeyFields, ", ")})
	}
	return []Table{t}
}

func newEntitiesCommand(format func() (Format, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the importable entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format()
			if err != nil {
				return err
			}
			var list entityList
			for _, e := range entities.All() {
				list = append(list, entityRow{Name: e.Name, Title: e.Title, Table: e.Table, KeyFields: e.KeyFields, Headers: e.Headers()})
			}
			return Write(cmd.OutOrStdout(), f, list)
		},
	}
}

func newTemplateCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template <entity>",
		Short: "Write an empty import workbook for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = "template_" + strings.ReplaceAll(e.Name, "-", "_") + ".xlsx"
			}
			if err := service.NewExcelService().GenerateTemplate(e, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "file", "f", "", "Output path")
	return cmd
}

func lookupEntity(name string) (entities.Entity, error) {
	e, ok := entities.Lookup(name)
	if !ok {
		return entities.Entity{}, fmt.Errorf("%w %q (known: %s)", service.ErrUnknownEntity, name, strings.Join(entities.Names(), ", "))
	}
	return e, nil
}
