package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/agritrade-gateway/internal/schemas"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [resource]",
		Short: "Print the rule catalog",
		Long: `Print the field rules and cross-field refinements of one record kind, or
of all of them. Text and yaml formats print YAML documents; json prints one
JSON response.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			infos := schemas.Catalog()
			if len(args) == 1 {
				s, err := resolveSchema(args[0])
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
				}
				infos = []validate.SchemaInfo{s.Describe()}
			}
			if f.Format == "json" {
				return f.Success(infos)
			}
			return writeSchemaYAML(f, infos)
		},
	}
}

// title turns a schema name like cash_receipt into "Cash Receipt".
func title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// writeSchemaYAML writes one YAML document per schema, each headed by a
// comment with its title.
func writeSchemaYAML(f *OutputFormatter, infos []validate.SchemaInfo) error {
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	for _, info := range infos {
		var n yaml.Node
		if err := n.Encode(info); err != nil {
			return err
		}
		n.HeadComment = title(info.Name)
		if err := enc.Encode(&n); err != nil {
			return err
		}
	}
	return enc.Close()
}
