// Schema HTTP handlers.
//
//   - POST /validate/{resource}   (dry-run validation, never reaches the upstream)
//   - GET  /schemas               (rule catalog of every record kind)
//   - GET  /schemas/{resource}    (rule catalog of one record kind)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/schemas"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// ValidationResponse is the dry-run result. Record is the normalized record
// that a submission would send; Fields holds the per-field messages.
type ValidationResponse struct {
	Resource string              `json:"resource"`
	Valid    bool                `json:"valid"`
	Record   validate.Record     `json:"record,omitempty" swaggertype:"object"`
	Fields   map[string][]string `json:"fields,omitempty"`
}

// CatalogResponse lists schema descriptions.
type CatalogResponse struct {
	Schemas []validate.SchemaInfo `json:"schemas"`
}

// schemaFor resolves a writable resource name, or a schema name, to its
// schema. It writes the error response itself.
func schemaFor(c *gin.Context, name string) (*validate.Schema, bool) {
	if res, found := domain.LookupResource(name); found {
		if !res.Writable() {
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "resource does not accept submissions")
			return nil, false
		}
		name = res.Schema
	}
	s, found := schemas.Lookup(name)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown resource")
		return nil, false
	}
	return s, true
}

// ValidateRecord godoc
// @ID          validateRecord
// @Summary     Dry-run validation of a record
// @Description Applies the resource schema and returns the normalized record or per-field messages. Nothing is sent upstream and no token is minted.
// @Tags        Schemas
// @Accept      json
// @Produce     json
// @Param       resource  path  string  true  "Resource or schema name"  example(purchases)
// @Param       body      body  object  true  "Record (snake_case fields)"
// @Success     200  {object}  handlers.ValidationResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     413  {object}  handlers.ErrorResponse
// @Router      /validate/{resource} [post]
func (h *Handlers) ValidateRecord(c *gin.Context) {
	name := c.Param("resource")
	s, found := schemaFor(c, name)
	if !found {
		return
	}
	raw, read := readBody(c)
	if !read {
		return
	}
	res := s.Validate(raw)
	ok(c, http.StatusOK, ValidationResponse{
		Resource: name,
		Valid:    res.Valid(),
		Record:   res.Record,
		Fields:   res.Errors,
	})
}

// ListSchemas godoc
// @ID          listSchemas
// @Summary     Rule catalog
// @Tags        Schemas
// @Produce     json
// @Success     200  {object}  handlers.CatalogResponse
// @Router      /schemas [get]
func (h *Handlers) ListSchemas(c *gin.Context) {
	ok(c, http.StatusOK, CatalogResponse{Schemas: schemas.Catalog()})
}

// GetSchema godoc
// @ID          getSchema
// @Summary     Rule catalog of one record kind
// @Tags        Schemas
// @Produce     json
// @Param       resource  path  string  true  "Resource or schema name"  example(sales)
// @Success     200  {object}  validate.SchemaInfo
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /schemas/{resource} [get]
func (h *Handlers) GetSchema(c *gin.Context) {
	s, found := schemaFor(c, c.Param("resource"))
	if !found {
		return
	}
	ok(c, http.StatusOK, s.Describe())
}
