package profile

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports caller input that cannot form a profile. Fields maps
// the offending request field to the reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + joinFields(e.Fields)
}

// ConfigurationError reports an environment profile that cannot be built.
type ConfigurationError struct {
	Keys   map[string]string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Keys) == 0 {
		return "configuration error: " + e.Reason
	}
	return "configuration error: " + joinFields(e.Keys)
}

func joinFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, fields[name]))
	}
	return strings.Join(parts, "; ")
}
