package guestfs

import "sort"

// ExtractID returns the identifier of a freshly created resource from the
// create response, whatever shape the server used:
//
//  1. a bare string is the identifier (7.0.2 and later);
//  2. an object with "value" yields the identifier found in that value;
//  3. any other object is searched directly.
//
// Within an object, "id" wins over "path"; otherwise the first non-empty
// string member in key order is taken. An empty string means no identifier
// was found.
func ExtractID(body any) string {
	switch v := body.(type) {
	case string:
		return v
	case map[string]any:
		if inner, ok := v["value"]; ok {
			switch iv := inner.(type) {
			case string:
				return iv
			case map[string]any:
				return idFromObject(iv)
			}
			return ""
		}
		return idFromObject(v)
	}
	return ""
}

func idFromObject(m map[string]any) string {
	for _, key := range []string{"id", "path"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
