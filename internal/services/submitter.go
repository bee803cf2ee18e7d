package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/logging"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/repo"
	"github.com/tbourn/agritrade-gateway/internal/schemas"
	"github.com/tbourn/agritrade-gateway/internal/upstream"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// MaxFormIDLen bounds form ids; it matches the audit column width.
const MaxFormIDLen = 128

// Send delivers a normalized record upstream, presenting tok out of band. rec
// is nil for deletes.
type Send func(ctx context.Context, rec validate.Record, tok idempotency.Token) (json.RawMessage, error)

// Submission is one guarded submission attempt.
type Submission struct {
	FormID    string
	Resource  domain.Resource
	Operation string
	// Raw is the unvalidated input: a map, json.RawMessage or []byte.
	Raw any
	// Token is a retained token presented for retry; empty to let the guard
	// choose.
	Token idempotency.Token
	Send  Send
}

// Outcome is the classified result of a submission.
type Outcome struct {
	Status     string              `json:"status"`
	Form       string              `json:"form"`
	Resource   string              `json:"resource"`
	Operation  string              `json:"operation"`
	Token      string              `json:"token,omitempty"`
	Retained   bool                `json:"retained,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
	Message    string              `json:"message,omitempty"`
	UpstreamID *int64              `json:"upstream_id,omitempty"`
	Result     json.RawMessage     `json:"result,omitempty" swaggertype:"object"`
}

// Submitter is the submission orchestrator: validate, guard, send, classify,
// invalidate, audit. DB and Cache are optional.
type Submitter struct {
	DB     *gorm.DB
	Guards *idempotency.Registry
	Cache  *querycache.Cache
}

// NewSubmitter wires a Submitter.
func NewSubmitter(db *gorm.DB, guards *idempotency.Registry, cache *querycache.Cache) *Submitter {
	return &Submitter{DB: db, Guards: guards, Cache: cache}
}

// Submit validates sub.Raw against the resource schema and, when valid, runs
// sub.Send under the form's guard.
//
// An invalid record returns an Outcome with status "invalid" and a
// validation error; no token is minted and Send is never called. Every other
// non-success outcome is returned together with its error.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	ctx, span := otel.Tracer("services/Submitter").Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("form.id", sub.FormID),
			attribute.String("resource", sub.Resource.Name),
			attribute.String("operation", sub.Operation),
		),
	)
	defer span.End()

	if err := checkSubmission(sub); err != nil {
		return nil, err
	}
	schema, ok := schemas.Lookup(sub.Resource.Schema)
	if !ok {
		return nil, ErrReadOnlyResource
	}

	res := schema.Validate(sub.Raw)
	if !res.Valid() {
		out := s.outcome(sub)
		out.Status = domain.StatusInvalid
		out.Fields = res.Errors
		out.Message = "Please correct the highlighted fields."
		span.SetAttributes(attribute.String("outcome", out.Status))
		s.audit(ctx, out, apperr.KindValidation)
		return out, res.Err()
	}
	return s.run(ctx, span, sub, res.Record)
}

// Guarded runs sub.Send under the form's guard without validation. It serves
// operations that carry no record, such as deletes.
func (s *Submitter) Guarded(ctx context.Context, sub Submission) (*Outcome, error) {
	ctx, span := otel.Tracer("services/Submitter").Start(ctx, "Guarded",
		trace.WithAttributes(
			attribute.String("form.id", sub.FormID),
			attribute.String("resource", sub.Resource.Name),
			attribute.String("operation", sub.Operation),
		),
	)
	defer span.End()

	if err := checkSubmission(sub); err != nil {
		return nil, err
	}
	if !sub.Resource.Writable() {
		return nil, ErrReadOnlyResource
	}
	return s.run(ctx, span, sub, nil)
}

func checkSubmission(sub Submission) error {
	if f := strings.TrimSpace(sub.FormID); f == "" || len(f) > MaxFormIDLen {
		return ErrInvalidForm
	}
	if sub.Token != "" && !idempotency.ValidToken(sub.Token.String()) {
		return ErrInvalidToken
	}
	return nil
}

func (s *Submitter) run(ctx context.Context, span trace.Span, sub Submission, rec validate.Record) (*Outcome, error) {
	guard := s.Guards.Get(sub.FormID)
	guard.SetResource(sub.Resource.Name)

	used := sub.Token
	v, err := guard.DoWith(ctx, sub.Token, func(ctx context.Context, tok idempotency.Token) (any, error) {
		used = tok
		return sub.Send(ctx, rec, tok)
	})

	out := s.outcome(sub)
	out.Token = used.String()
	kind := apperr.KindOf(err)
	switch kind {
	case "":
		out.Status = domain.StatusSucceeded
		if raw, ok := v.(json.RawMessage); ok && len(raw) > 0 {
			out.Result = raw
			out.UpstreamID = upstream.RecordID(raw)
		}
	case apperr.KindDuplicateRequest:
		out.Status = domain.StatusDuplicateRequest
	case apperr.KindAlreadySubmitting:
		out.Status = domain.StatusAlreadySubmitting
	case apperr.KindTokenConsumed:
		out.Status = domain.StatusTokenConsumed
	default:
		out.Status = domain.StatusFailed
		if tok, ok := guard.Retained(); ok && tok == used {
			out.Retained = true
		}
		out.Fields = apperr.FieldsOf(err)
	}
	if err != nil {
		out.Message = apperr.UserMessage(err)
	}
	span.SetAttributes(attribute.String("outcome", out.Status))

	if kind == "" || kind == apperr.KindDuplicateRequest {
		if s.Cache != nil {
			s.Cache.InvalidateRoots(sub.Resource.InvalidationRoots()...)
		}
	}
	if kind != "" && kind != apperr.KindDuplicateRequest {
		span.SetStatus(codes.Error, string(kind))
	}

	s.audit(ctx, out, kind)
	return out, err
}

func (s *Submitter) outcome(sub Submission) *Outcome {
	op := sub.Operation
	if op == "" {
		op = domain.OpCreate
	}
	return &Outcome{
		Form:      sub.FormID,
		Resource:  sub.Resource.Name,
		Operation: op,
	}
}

// audit writes the Submission row. Failures are logged, never returned.
func (s *Submitter) audit(ctx context.Context, out *Outcome, kind apperr.Kind) {
	if s.DB == nil {
		return
	}
	row := &domain.Submission{
		FormID:     out.Form,
		Resource:   out.Resource,
		Operation:  out.Operation,
		Token:      out.Token,
		Status:     out.Status,
		ErrorKind:  string(kind),
		UpstreamID: out.UpstreamID,
	}
	if err := repo.CreateSubmission(context.WithoutCancel(ctx), s.DB, row); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("form", out.Form).Str("status", out.Status).
			Msg("write submission audit row")
	}
}

// FormState is the public view of a form's guard.
type FormState struct {
	Form      string `json:"form"`
	Phase     string `json:"phase"`
	Token     string `json:"token,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// State reports the submission state of form. A form without a guard is idle.
func (s *Submitter) State(form string) FormState {
	fs := FormState{Form: form, Phase: idempotency.Idle.String()}
	g, ok := s.Guards.Peek(form)
	if !ok {
		return fs
	}
	st := g.State()
	fs.Phase = st.Phase.String()
	fs.Token = st.Token.String()
	fs.Duplicate = st.Duplicate
	if st.Err != nil {
		fs.ErrorKind = string(apperr.KindOf(st.Err))
		fs.Message = apperr.UserMessage(st.Err)
	}
	return fs
}

// Cancel discards the form's retained token. It fails with
// already_submitting while a call is in flight.
func (s *Submitter) Cancel(form string) error {
	g, ok := s.Guards.Peek(form)
	if !ok {
		return nil
	}
	return g.Cancel()
}

// History returns a page of the form's audit rows, newest first, with the
// total count. Invalid page/pageSize values fall back to 1 and 20.
func (s *Submitter) History(ctx context.Context, form string, page, pageSize int) ([]domain.Submission, int64, error) {
	ctx, span := otel.Tracer("services/Submitter").Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("form.id", form),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if s.DB == nil {
		return []domain.Submission{}, 0, nil
	}
	total, err := repo.CountSubmissions(ctx, s.DB, form)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Submission{}, 0, nil
	}
	items, err := repo.ListSubmissionsPage(ctx, s.DB, form, (page-1)*pageSize, pageSize)
	return items, total, err
}

// SubmissionStats summarizes a form's audit trail for cache validation.
type SubmissionStats struct {
	Count  int64
	Latest *time.Time
}

// Stats returns the number of audit rows of form and the newest CreatedAt.
// Without a database the trail is always empty.
func (s *Submitter) Stats(ctx context.Context, form string) (SubmissionStats, error) {
	if s.DB == nil {
		return SubmissionStats{}, nil
	}
	count, latest, err := repo.SubmissionsStats(ctx, s.DB, form)
	if err != nil {
		return SubmissionStats{}, err
	}
	return SubmissionStats{Count: count, Latest: latest}, nil
}
