//go:build cgo

package main

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/ps"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)
	return &Handle{engine: SheetDB.Open(persistence).Engine(bindingIdentity)}
}

func TestExecuteRequests(t *testing.T) {
	h := newTestHandle(t)

	resp := execute(h, `{"op":"create_table","table":"tasks","columns":["status"]}`)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "commit", resp.Type)

	resp = execute(h, `{"op":"insert","table":"tasks","data":{"id":"1","status":"OPEN"}}`)
	require.True(t, resp.Success, resp.Error)

	resp = execute(h, `{"op":"select","table":"tasks","where":{"status":{"$startsWith":"OP"}}}`)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "query", resp.Type)

	var qr QueryResponse
	require.NoError(t, json.Unmarshal(resp.Result, &qr))
	require.Len(t, qr.Rows, 1)
	assert.Equal(t, "1", qr.Rows[0]["id"])
	assert.Equal(t, []string{"id", "status"}, qr.Columns)

	resp = execute(h, `{"op":"upsert","table":"tasks","where":{"id":"1"},"data":{"status":"DONE"}}`)
	require.True(t, resp.Success, resp.Error)
	var ur UpsertResponse
	require.NoError(t, json.Unmarshal(resp.Result, &ur))
	assert.Equal(t, "updated", string(ur.Kind))
	assert.Equal(t, 1, ur.Count)
}

func TestExecuteErrors(t *testing.T) {
	h := newTestHandle(t)

	tests := map[string]string{
		`{"op":"select","table":"nope"}`: "table_not_found",
		`{"op":"select"}`:                "invalid_request",
		`{`:                              "invalid_request",
	}
	for line, code := range tests {
		resp := execute(h, line)
		assert.False(t, resp.Success, line)
		assert.Equal(t, code, resp.ErrorCode, line)
		assert.NotEmpty(t, resp.Error, line)
	}
}
