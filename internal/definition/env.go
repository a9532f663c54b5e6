package definition

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
)

// LookupFunc resolves a variable name, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// MissingEnvError lists the variables a template referenced but the
// environment source did not provide.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

// Secret is one resolved environment entry.
type Secret struct {
	Key   string
	Value string
}

// Interpolate expands ${NAME} and ${NAME:-default} placeholders in template.
// Nothing else is special: a bare $NAME, "$$" or a "${" that does not open a
// valid placeholder is copied through unchanged.
//
// ${NAME} requires NAME to be set; a set but empty value expands to "".
// ${NAME:-default} falls back to default when NAME is unset or empty.
// Every unset name is reported once, in order of first appearance.
func Interpolate(template string, lookup LookupFunc) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var (
		out     strings.Builder
		missing []string
	)
	rest := template
	for {
		open := strings.Index(rest, "${")
		if open < 0 {
			out.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open+2:], '}')
		if closing < 0 {
			out.WriteString(rest)
			break
		}
		expr := rest[open+2 : open+2+closing]
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		if !isVarName(name) {
			out.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}

		out.WriteString(rest[:open])
		value, ok := lookup(name)
		switch {
		case hasDefault && (!ok || value == ""):
			out.WriteString(fallback)
		case ok:
			out.WriteString(value)
		default:
			missing = appendUnique(missing, name)
		}
		rest = rest[open+2+closing+1:]
	}

	if len(missing) > 0 {
		return "", &MissingEnvError{Names: missing}
	}
	return out.String(), nil
}

func isVarName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func appendUnique(names []string, more ...string) []string {
	for _, name := range more {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// ResolveEnvironment interpolates every fixture environment entry. The result
// is ordered by key. All missing variables are reported together, each once.
func (f Fixture) ResolveEnvironment(lookup LookupFunc) ([]Secret, error) {
	keys := make([]string, 0, len(f.Environment))
	for key := range f.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	secrets := make([]Secret, 0, len(keys))
	var missing []string
	for _, key := range keys {
		value, err := Interpolate(f.Environment[key], lookup)
		if err != nil {
			if merr, ok := err.(*MissingEnvError); ok {
				missing = appendUnique(missing, merr.Names...)
				continue
			}
			return nil, err
		}
		secrets = append(secrets, Secret{Key: key, Value: value})
	}

	if len(missing) > 0 {
		return nil, &MissingEnvError{Names: missing}
	}
	return secrets, nil
}

// ResolveHeaders interpolates the remote header templates of a server.
func (s Server) ResolveHeaders(lookup LookupFunc) (map[string]string, error) {
	if s.Remote == nil || len(s.Remote.Headers) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(s.Remote.Headers))
	for name, tmpl := range s.Remote.Headers {
		value, err := Interpolate(tmpl, lookup)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", name, err)
		}
		headers[name] = value
	}
	return headers, nil
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(values map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
