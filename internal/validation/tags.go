package validation

import (
	"reflect"
	"strings"
)

// jsonFieldName reports fields by their JSON name so errors match the payload.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
