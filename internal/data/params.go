package data

import "fmt"

// Params holds a component's YAML parameters. YAML numbers decode as int or
// float64; the accessors accept either.
type Params map[string]any

func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Require fails when any of keys is missing.
func (p Params) Require(keys ...string) error {
	for _, k := range keys {
		if _, ok := p[k]; !ok {
			return fmt.Errorf("missing param %q", k)
		}
	}
	return nil
}
