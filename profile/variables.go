package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Variables are the ${NAME} placeholders a profile may use.
type Variables map[string]string

// DefaultVariables knows the user directories and the terminal services
// session the caller runs in:
//   - ${USERPROFILE}, ${HOME}: user home directory
//   - ${LOCALAPPDATA}, ${APPDATA}: per user application data
//   - ${SESSION_ID}: session id of the caller
func DefaultVariables(sessionID uint32) (Variables, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return Variables{
		"HOME":         home,
		"USERPROFILE":  envOr("USERPROFILE", home),
		"LOCALAPPDATA": envOr("LOCALAPPDATA", filepath.Join(home, "AppData", "Local")),
		"APPDATA":      envOr("APPDATA", filepath.Join(home, "AppData", "Roaming")),
		"SESSION_ID":   strconv.FormatUint(uint64(sessionID), 10),
	}, nil
}

// With returns a copy of v with one more variable.
func (v Variables) With(name, value string) Variables {
	out := make(Variables, len(v)+1)
	for k, val := range v {
		out[k] = val
	}

	out[name] = value
	return out
}

// Expand replaces every known ${NAME} in s. Unknown placeholders are kept.
func (v Variables) Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}

	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "${"+name+"}", v[name])
	}

	return strings.NewReplacer(pairs...).Replace(s)
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}

	return fallback
}
