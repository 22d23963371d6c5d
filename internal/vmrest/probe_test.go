package vmrest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	body   any
}

// fakeRequester answers every request with the same canned response.
type fakeRequester struct {
	resp  *Response
	err   error
	calls []call
}

func (f *fakeRequester) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	f.calls = append(f.calls, call{method: method, path: path, body: body})
	return f.resp, f.err
}

func TestExists(t *testing.T) {
	lookup := Lookup{
		Path:  "/api/vcenter/vm/vm-1/guest/filesystem?action=get",
		Body:  map[string]any{"path": "/tmp/x"},
		IDKey: "path",
	}

	t.Run("found", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusOK, Body: map[string]any{"type": "DIRECTORY"}}}

		env, err := Exists(context.Background(), f, lookup)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"id":    "/tmp/x",
			"value": map[string]any{"type": "DIRECTORY", "id": "/tmp/x"},
		}, env)

		require.Len(t, f.calls, 1)
		assert.Equal(t, http.MethodPost, f.calls[0].method)
	})

	t.Run("not found", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusNotFound, Body: map[string]any{"error_type": "NOT_FOUND"}}}

		env, err := Exists(context.Background(), f, lookup)
		require.NoError(t, err)
		assert.Nil(t, env)
	})

	t.Run("server error", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusInternalServerError, Text: "boom"}}

		_, err := Exists(context.Background(), f, lookup)
		var remote *RemoteFailure
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, 500, remote.Status)
		assert.Equal(t, "boom", remote.Body)
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("connection reset")
		f := &fakeRequester{err: boom}

		_, err := Exists(context.Background(), f, lookup)
		assert.Same(t, boom, err)
	})

	t.Run("get lookup", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusOK, Body: map[string]any{"value": map[string]any{"name": "disk"}}}}

		env, err := Exists(context.Background(), f, Lookup{Path: "/api/vcenter/vm/vm-1/hardware/disk"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": map[string]any{"name": "disk"}}, env)
		assert.Equal(t, http.MethodGet, f.calls[0].method)
	})
}

func TestGetDeviceInfo(t *testing.T) {
	t.Run("post lookup carries the id in the body", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusOK, Body: map[string]any{"type": "DIRECTORY"}}}
		lookup := Lookup{
			Path:  "/api/vcenter/vm/vm-1/guest/filesystem?action=get",
			Body:  map[string]any{"credentials": "c", "path": nil},
			IDKey: "path",
		}

		env, err := GetDeviceInfo(context.Background(), f, lookup, "/tmp/new")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/new", env["id"])
		assert.Equal(t, map[string]any{"credentials": "c", "path": "/tmp/new"}, f.calls[0].body)
		// The caller's lookup is not modified
		assert.Nil(t, lookup.Body["path"])
	})

	t.Run("get lookup appends the id", func(t *testing.T) {
		f := &fakeRequester{resp: &Response{Status: http.StatusOK, Body: map[string]any{"label": "Hard disk 1"}}}

		env, err := GetDeviceInfo(context.Background(), f, Lookup{Path: "/api/vcenter/vm/vm-1/hardware/disk"}, "2000")
		require.NoError(t, err)
		assert.Equal(t, "/api/vcenter/vm/vm-1/hardware/disk/2000", f.calls[0].path)
		assert.Equal(t, map[string]any{"label": "Hard disk 1", "id": "2000"}, env["value"])
	})
}
