// Form HTTP handlers.
//
// This file exposes the guarded submission endpoints and the per-form state:
//   - POST   /forms/{form}/{resource}          (guarded create)
//   - PUT    /forms/{form}/{resource}/{id}     (guarded update)
//   - DELETE /forms/{form}/{resource}/{id}     (guarded optimistic delete)
//   - GET    /forms/{form}                     (submission state)
//   - DELETE /forms/{form}/token               (discard the retained token)
//   - GET    /forms/{form}/submissions         (paginated audit trail, ETag)
//
// A form id names one on-screen form instance; all submissions of that form
// share one guard. Submissions answer with the Outcome body; its status field
// distinguishes a fresh success from a duplicate, both HTTP 2xx.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/http/middleware"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/services"
	"github.com/tbourn/agritrade-gateway/internal/utils"
)

// SubmissionsResponse is a page of a form's audit rows.
type SubmissionsResponse struct {
	Submissions []domain.Submission `json:"submissions"`
	Pagination  utils.Page          `json:"pagination"`
}

// presentedToken returns the retained token the client re-presents, if any.
func presentedToken(c *gin.Context) idempotency.Token {
	key, _ := middleware.GetIdempotencyKey(c)
	return idempotency.Token(key)
}

// readBody returns the raw request body. An oversized body fails with 413.
func readBody(c *gin.Context) (json.RawMessage, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return nil, false
	}
	return raw, true
}

// CreateRecord godoc
// @ID          createRecord
// @Summary     Submit a new record through the form's guard
// @Description Validates the body against the resource schema, then creates it upstream exactly once. Re-present a retained token with Idempotency-Key to retry after a failure.
// @Tags        Forms
// @Accept      json
// @Produce     json
// @Param       form             path    string  true   "Form instance id"  example(purchase-new)
// @Param       resource         path    string  true   "Resource name"     example(purchases)
// @Param       Idempotency-Key  header  string  false  "Retained token"
// @Param       body             body    object  true   "Record (snake_case fields)"
// @Success     201  {object}  services.Outcome  "Created"
// @Success     200  {object}  services.Outcome  "Duplicate request (already applied)"
// @Failure     409  {object}  services.Outcome  "Already submitting, or token consumed"
// @Failure     422  {object}  services.Outcome  "Invalid record"
// @Failure     503  {object}  services.Outcome  "Upstream unreachable; token retained"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /forms/{form}/{resource} [post]
func (h *Handlers) CreateRecord(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	out, err := h.res.Create(c.Request.Context(), c.Param("form"), c.Param("resource"), raw, presentedToken(c))
	outcome(c, out, err)
}

// UpdateRecord godoc
// @ID          updateRecord
// @Summary     Update a record through the form's guard
// @Description Validates the full record, applies it optimistically to cached detail views, and sends it upstream. The optimistic change is rolled back on failure.
// @Tags        Forms
// @Accept      json
// @Produce     json
// @Param       form             path    string  true   "Form instance id"
// @Param       resource         path    string  true   "Resource name"
// @Param       id               path    int     true   "Record id"
// @Param       Idempotency-Key  header  string  false  "Retained token"
// @Param       body             body    object  true   "Record (snake_case fields)"
// @Success     200  {object}  services.Outcome
// @Failure     409  {object}  services.Outcome
// @Failure     422  {object}  services.Outcome
// @Failure     503  {object}  services.Outcome
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /forms/{form}/{resource}/{id} [put]
func (h *Handlers) UpdateRecord(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	out, err := h.res.Update(c.Request.Context(), c.Param("form"), c.Param("resource"), c.Param("id"), raw, presentedToken(c))
	outcome(c, out, err)
}

// DeleteRecord godoc
// @ID          deleteRecord
// @Summary     Delete a record through the form's guard
// @Description Removes the record from cached lists immediately and deletes it upstream; the cache is restored if the upstream call fails.
// @Tags        Forms
// @Produce     json
// @Param       form             path    string  true   "Form instance id"
// @Param       resource         path    string  true   "Resource name"
// @Param       id               path    int     true   "Record id"
// @Param       Idempotency-Key  header  string  false  "Retained token"
// @Success     200  {object}  services.Outcome
// @Failure     409  {object}  services.Outcome
// @Failure     503  {object}  services.Outcome
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /forms/{form}/{resource}/{id} [delete]
func (h *Handlers) DeleteRecord(c *gin.Context) {
	out, err := h.res.Delete(c.Request.Context(), c.Param("form"), c.Param("resource"), c.Param("id"), presentedToken(c))
	outcome(c, out, err)
}

// FormState godoc
// @ID          getFormState
// @Summary     Submission state of a form
// @Description Returns idle, pending, succeeded or failed, with the retained token after a failure.
// @Tags        Forms
// @Produce     json
// @Param       form  path  string  true  "Form instance id"
// @Success     200  {object}  services.FormState
// @Router      /forms/{form} [get]
func (h *Handlers) FormState(c *gin.Context) {
	ok(c, http.StatusOK, h.forms.State(c.Param("form")))
}

// CancelToken godoc
// @ID          cancelFormToken
// @Summary     Discard the form's retained token
// @Description The next submission of the form starts a new logical operation with a fresh token.
// @Tags        Forms
// @Param       form  path  string  true  "Form instance id"
// @Success     204  "No Content"
// @Failure     409  {object}  handlers.ErrorResponse  "A submission is in flight"
// @Router      /forms/{form}/token [delete]
func (h *Handlers) CancelToken(c *gin.Context) {
	if err := h.forms.Cancel(c.Param("form")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListSubmissions godoc
// @ID          listFormSubmissions
// @Summary     Audit trail of a form (paginated)
// @Description Newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Forms
// @Produce     json
// @Param       form           path    string  true   "Form instance id"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.SubmissionsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /forms/{form}/submissions [get]
func (h *Handlers) ListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	form := c.Param("form")
	page, pageSize := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if st, err := h.forms.Stats(ctx, form); err == nil {
		etag := submissionsETag(form, st, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.forms.History(ctx, form, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SubmissionsResponse{
		Submissions: items,
		Pagination:  utils.NewPage(page, pageSize, total),
	})
}

// submissionsETag changes whenever a row is added to the form's trail or the
// requested page changes.
func submissionsETag(form string, st services.SubmissionStats, page, pageSize int) string {
	var ts int64
	if st.Latest != nil {
		ts = st.Latest.UnixNano()
	}
	return fmt.Sprintf(`W/"submissions:%s:%d:%d:%d:%d"`, form, st.Count, ts, page, pageSize)
}
