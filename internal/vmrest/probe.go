package vmrest

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Lookup describes how to fetch a single resource.
type Lookup struct {
	// Path is the request path relative to the vCenter host.
	Path string
	// Body is sent with POST. A nil Body makes the lookup a GET.
	Body map[string]any
	// IDKey is the Body key holding the resource identifier.
	IDKey string
}

// Exists runs l and returns the enveloped resource when it is found, or nil
// when it is not. Only a 500 answer is an error.
func Exists(ctx context.Context, r Requester, l Lookup) (map[string]any, error) {
	method := http.MethodGet
	var body any
	if l.Body != nil {
		method = http.MethodPost
		body = l.Body
	}

	resp, err := r.Do(ctx, method, l.Path, body)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case http.StatusOK:
	case http.StatusInternalServerError:
		return nil, &RemoteFailure{Status: resp.Status, Body: resp.Text}
	default:
		return nil, nil
	}

	env := Normalize(resp.Body)
	if id, ok := l.Body[l.IDKey].(string); ok && id != "" {
		env["id"] = id
		if v, ok := env["value"].(map[string]any); ok {
			v["id"] = id
		}
	}
	return env, nil
}

// GetDeviceInfo fetches the resource identified by id through l. GET
// lookups address the resource as a path segment, POST lookups carry id in
// the body under IDKey.
func GetDeviceInfo(ctx context.Context, r Requester, l Lookup, id string) (map[string]any, error) {
	if l.Body == nil {
		env, err := Exists(ctx, r, Lookup{Path: strings.TrimRight(l.Path, "/") + "/" + url.PathEscape(id)})
		if env != nil {
			env["id"] = id
			if v, ok := env["value"].(map[string]any); ok {
				v["id"] = id
			}
		}
		return env, err
	}

	body := make(map[string]any, len(l.Body)+1)
	for k, v := range l.Body {
		body[k] = v
	}
	body[l.IDKey] = id

	return Exists(ctx, r, Lookup{Path: l.Path, Body: body, IDKey: l.IDKey})
}
