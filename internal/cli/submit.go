package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/services"
	"github.com/tbourn/agritrade-gateway/internal/upstream"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	Form     string
	Token    string
	ID       string
	Upstream string
	Tokens   string
	Timeout  time.Duration
	TTL      time.Duration
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <resource> <file|->",
		Short: "Validate a record and submit it upstream exactly once",
		Long: `Validate a JSON record and send it to the accounting API under a guard.
Completed tokens are kept in a bolt file, so re-presenting a token that
already succeeded with --token is rejected without contacting the API. After
a failure the retained token is printed; pass it with --token to retry the
same logical operation.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), newFormatter(rootOpts, cmd), cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Form, "form", "agrictl", "form instance id that owns the guard")
	cmd.Flags().StringVar(&opts.Token, "token", "", "retained token to re-present")
	cmd.Flags().StringVar(&opts.ID, "id", "", "record id; submits an update instead of a create")
	cmd.Flags().StringVar(&opts.Upstream, "upstream", envOr("UPSTREAM_URL", "http://localhost:8000/api"), "accounting API base URL")
	cmd.Flags().StringVar(&opts.Tokens, "tokens", envOr("BOLT_PATH", "tokens.bolt"), "bolt file of completed tokens")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "upstream call timeout")
	cmd.Flags().DurationVar(&opts.TTL, "token-ttl", 24*time.Hour, "how long a completed token stays consumed")

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runSubmit(ctx context.Context, f *OutputFormatter, cmd *cobra.Command, opts *SubmitOptions, resource, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Token != "" && !idempotency.ValidToken(opts.Token) {
		return f.Fail(ExitCommandError, ErrCodeValidation, "invalid --token", nil)
	}
	raw, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeIO, err.Error(), nil)
	}

	client, err := upstream.New(upstream.Options{BaseURL: opts.Upstream, Timeout: opts.Timeout, UserAgent: "agrictl"})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	store, err := idempotency.OpenBoltStore(opts.Tokens, opts.TTL)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeIO, err.Error(), nil)
	}
	defer store.Close()

	cache := querycache.New(0)
	sub := services.NewSubmitter(nil, idempotency.NewRegistry(store, 0), cache)
	svc := services.NewResourceService(client, cache, sub)

	f.VerboseLog("submitting %s for form %s to %s", resource, opts.Form, opts.Upstream)
	var out *services.Outcome
	if opts.ID != "" {
		out, err = svc.Update(ctx, opts.Form, resource, opts.ID, json.RawMessage(raw), idempotency.Token(opts.Token))
	} else {
		out, err = svc.Create(ctx, opts.Form, resource, json.RawMessage(raw), idempotency.Token(opts.Token))
	}
	return reportOutcome(f, out, err)
}

// reportOutcome prints a submission outcome. Succeeded and duplicate
// outcomes exit 0; everything else exits 1.
func reportOutcome(f *OutputFormatter, out *services.Outcome, err error) error {
	if out == nil {
		return f.Fail(ExitCommandError, string(apperr.KindOf(err)), apperr.UserMessage(err), nil)
	}
	done := err == nil || apperr.IsKind(err, apperr.KindDuplicateRequest)

	if f.Structured() {
		resp := CLIResponse{Status: "ok", Data: out}
		if !done {
			resp.Status = "error"
			resp.Error = &CLIError{Code: string(apperr.KindOf(err)), Message: apperr.UserMessage(err)}
		}
		if encErr := f.Encode(resp); encErr != nil {
			return encErr
		}
	} else {
		printOutcome(f, out)
	}
	if done {
		return nil
	}
	return WrapExitError(ExitFailure, "submission "+out.Status, err)
}

func printOutcome(f *OutputFormatter, out *services.Outcome) {
	switch out.Status {
	case domain.StatusSucceeded:
		if out.UpstreamID != nil {
			fmt.Fprintf(f.Writer, "✓ %s %s succeeded (id %d)\n", out.Resource, out.Operation, *out.UpstreamID)
		} else {
			fmt.Fprintf(f.Writer, "✓ %s %s succeeded\n", out.Resource, out.Operation)
		}
	case domain.StatusDuplicateRequest:
		fmt.Fprintf(f.Writer, "✓ %s %s already applied (duplicate request)\n", out.Resource, out.Operation)
	default:
		fmt.Fprintf(f.Writer, "✗ %s %s: %s\n", out.Resource, out.Operation, out.Status)
		if out.Message != "" {
			fmt.Fprintf(f.Writer, "  %s\n", out.Message)
		}
		fields := validate.FieldErrors(out.Fields)
		for _, name := range fields.Fields() {
			for _, msg := range fields[name] {
				fmt.Fprintf(f.Writer, "  %s: %s\n", name, msg)
			}
		}
		if out.Retained {
			fmt.Fprintf(f.Writer, "  retry with --token %s\n", out.Token)
		}
	}
}
