package bulkemail

import "encoding/json"

// jsonObject is the intermediate form every model type projects into before
// marshaling. set drops values that would serialize to nothing, so a field is
// either present with real content or absent entirely.
type jsonObject map[string]any

func (o jsonObject) set(key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	case map[string]string:
		if len(v) == 0 {
			return
		}
	case jsonObject:
		if len(v) == 0 {
			return
		}
	case []jsonObject:
		if len(v) == 0 {
			return
		}
	case []*EmailAddress:
		if len(v) == 0 {
			return
		}
	case []Content:
		if len(v) == 0 {
			return
		}
	case []*Attachment:
		if len(v) == 0 {
			return
		}
	case []string:
		if len(v) == 0 {
			return
		}
	}
	o[key] = value
}

// marshalObject emits null for an empty object so that an enclosing
// serializer can elide it instead of emitting {}.
func marshalObject(o jsonObject) ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any(o))
}
