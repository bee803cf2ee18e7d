package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/agritrade-gateway/internal/schemas"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

func runSchema(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSchemaYAMLHasTitleComment(t *testing.T) {
	out, err := runSchema(t, "text", "cash_receipt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Cash Receipt\n"), out)

	var info validate.SchemaInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, schemas.CashReceipt, info.Name)
	assert.NotEmpty(t, info.Fields)
}

func TestSchemaResourceNameResolves(t *testing.T) {
	out, err := runSchema(t, "yaml", "purchases")
	require.NoError(t, err)
	assert.Contains(t, out, "# Purchase")
	assert.Contains(t, out, "purchase_date")
}

func TestSchemaAllAsJSON(t *testing.T) {
	out, err := runSchema(t, "json")
	require.NoError(t, err)

	var resp struct {
		Status string                `json:"status"`
		Data   []validate.SchemaInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, len(schemas.Names()))
}

func TestSchemaAllAsYAMLDocuments(t *testing.T) {
	out, err := runSchema(t, "text")
	require.NoError(t, err)

	dec := yaml.NewDecoder(strings.NewReader(out))
	n := 0
	for {
		var info validate.SchemaInfo
		if err := dec.Decode(&info); err != nil {
			break
		}
		n++
	}
	assert.Equal(t, len(schemas.Names()), n)
}

func TestSchemaUnknown(t *testing.T) {
	out, err := runSchema(t, "text", "tractor")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unknown resource")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Cash Payment", title("cash_payment"))
	assert.Equal(t, "Expense", title("expense"))
}
