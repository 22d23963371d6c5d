package vmrest

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Params is a flat parameter set. A nil value means the parameter was not
// given and is left out of every payload.
type Params map[string]any

// PayloadFormat maps parameter names to their place in a request: the query
// string, the JSON body, or the URL path. Body targets may contain "/" to
// address nested objects.
type PayloadFormat struct {
	Query map[string]string
	Body  map[string]string
	Path  map[string]string
}

// QueryKeys returns the query parameter names in a stable order.
func (f PayloadFormat) QueryKeys() []string {
	return sortedKeys(f.Query)
}

// PreparePayload builds the JSON body for format from params.
func PreparePayload(params Params, format PayloadFormat) map[string]any {
	payload := map[string]any{}
	for _, name := range sortedKeys(format.Body) {
		v, ok := params[name]
		if !ok || v == nil {
			continue
		}
		setSubkey(payload, strings.Split(format.Body[name], "/"), v)
	}
	return payload
}

func setSubkey(m map[string]any, keys []string, v any) {
	if len(keys) == 1 {
		m[keys[0]] = v
		return
	}
	next, ok := m[keys[0]].(map[string]any)
	if !ok {
		next = map[string]any{}
		m[keys[0]] = next
	}
	setSubkey(next, keys[1:], v)
}

// GenArgs encodes the query parameters named in keys that carry a value.
// A key "filter.x" reads its value from the parameter "filter_x". List values
// repeat the key. The result has no leading separator; see WithQuery.
func GenArgs(params Params, keys []string) string {
	values := url.Values{}
	for _, key := range keys {
		name := key
		if strings.HasPrefix(key, "filter.") {
			name = "filter_" + strings.TrimPrefix(key, "filter.")
		}

		switch v := params[name].(type) {
		case nil:
		case string:
			if v != "" {
				values.Add(key, v)
			}
		case bool:
			if v {
				values.Add(key, "true")
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		default:
			values.Add(key, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

// WithQuery appends encoded query arguments to a URL that may already have
// a query string.
func WithQuery(rawURL, args string) string {
	if args == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + args
	}
	return rawURL + "?" + args
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// BuildURL substitutes {name} placeholders in template with path-escaped
// parameter values.
func BuildURL(template string, params Params) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := params[name]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(fmt.Sprint(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing URL parameter(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// SubdeviceType returns the name of the dependent sub-resource identifier
// in template, e.g. "disk" for /api/vcenter/vm/{vm}/hardware/disk/{disk}.
// Templates with a single placeholder have none.
func SubdeviceType(template string) string {
	path, _, _ := strings.Cut(template, "?")
	var candidates []string
	for _, m := range placeholder.FindAllStringSubmatch(path, -1) {
		if m[1] == "vcenter_hostname" {
			continue
		}
		candidates = append(candidates, m[1])
	}
	if len(candidates) != 2 {
		return ""
	}
	return candidates[1]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
