package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/schemas"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// ValidationResult is the outcome of `agrictl validate`.
type ValidationResult struct {
	Resource string              `json:"resource" yaml:"resource"`
	Valid    bool                `json:"valid" yaml:"valid"`
	Record   validate.Record     `json:"record,omitempty" yaml:"record,omitempty"`
	Fields   map[string][]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <resource> [file|-]",
		Short: "Validate a record offline",
		Long: `Validate a JSON record against the schema of a resource (purchases, sales,
...) or a schema name (purchase, sale, ...). Reads stdin when the file is
omitted or "-". Nothing is sent anywhere.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			return runValidate(newFormatter(rootOpts, cmd), cmd.InOrStdin(), args[0], path)
		},
	}
}

// resolveSchema maps a writable resource name, or a schema name, to its
// schema.
func resolveSchema(name string) (*validate.Schema, error) {
	if res, ok := domain.LookupResource(name); ok {
		if !res.Writable() {
			return nil, fmt.Errorf("resource %q does not accept submissions", name)
		}
		name = res.Schema
	}
	s, ok := schemas.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", name)
	}
	return s, nil
}

// readInput returns the contents of path, or of stdin for "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func runValidate(f *OutputFormatter, stdin io.Reader, resource, path string) error {
	s, err := resolveSchema(resource)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	raw, err := readInput(stdin, path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeIO, err.Error(), nil)
	}
	f.VerboseLog("validating %d bytes against schema %s", len(raw), s.Name())

	res := s.Validate(json.RawMessage(raw))
	out := ValidationResult{Resource: resource, Valid: res.Valid(), Record: res.Record, Fields: res.Errors}

	if f.Structured() {
		if out.Valid {
			return f.Encode(CLIResponse{Status: "ok", Data: out})
		}
		if err := f.Encode(CLIResponse{
			Status: "error",
			Data:   out,
			Error:  &CLIError{Code: ErrCodeValidation, Message: "record is invalid"},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d field error(s)", len(res.Errors)))
	}

	if out.Valid {
		fmt.Fprintf(f.Writer, "✓ %s record is valid\n", resource)
		b, err := json.MarshalIndent(res.Record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(f.Writer, string(b))
		return nil
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	for _, name := range res.Errors.Fields() {
		for _, msg := range res.Errors[name] {
			fmt.Fprintf(f.Writer, "  %s: %s\n", name, msg)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d field error(s)", len(res.Errors)))
}
