package similarity

import (
	"encoding/json"
	"reflect"
)

// propKey identifies a schema property by name and declared type.
type propKey struct {
	name string
	typ  string
}

// Schema returns the structural similarity of two JSON Schema objects:
// 0.7*propertySimilarity + 0.3*requiredSimilarity.
// A nil schema on either side scores 0. Deep-equal schemas (by canonical
// JSON) short-circuit to 1.
func Schema(a, b map[string]any) float64 {
	if a == nil || b == nil {
		return 0
	}
	if deepEqualJSON(a, b) {
		return 1
	}

	propSim := propertySimilarity(a, b)
	reqSim := requiredSimilarity(a, b)
	return 0.7*propSim + 0.3*reqSim
}

func deepEqualJSON(a, b map[string]any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	var na, nb any
	if json.Unmarshal(aj, &na) != nil || json.Unmarshal(bj, &nb) != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func extractProps(schema map[string]any) map[propKey]bool {
	out := map[propKey]bool{}
	props, _ := schema["properties"].(map[string]any)
	for name, raw := range props {
		typ := "unknown"
		if m, ok := raw.(map[string]any); ok {
			if t, ok := m["type"].(string); ok {
				typ = t
			}
		}
		out[propKey{name: name, typ: typ}] = true
	}
	return out
}

func propertySimilarity(a, b map[string]any) float64 {
	pa := extractProps(a)
	pb := extractProps(b)
	if len(pa) == 0 && len(pb) == 0 {
		return 1
	}
	common := 0
	for k := range pa {
		if pb[k] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(pa)+len(pb))
}

func extractRequired(schema map[string]any) map[string]bool {
	out := map[string]bool{}
	req, _ := schema["required"].([]any)
	for _, r := range req {
		if s, ok := r.(string); ok {
			out[s] = true
		}
	}
	return out
}

func requiredSimilarity(a, b map[string]any) float64 {
	ra := extractRequired(a)
	rb := extractRequired(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	common := 0
	for k := range ra {
		if rb[k] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ra)+len(rb))
}
