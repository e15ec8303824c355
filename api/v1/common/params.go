package common

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

// RequireParams checks every parameter is set and non-blank.
func RequireParams(r *http.Request, names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(r.FormValue(name)) == "" {
			return errs.MissingParam(name)
		}
	}
	return nil
}

// Param returns the stripped parameter.
func Param(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// OptParam returns the stripped parameter, or nil when it is not passed.
func OptParam(r *http.Request, name string) *string {
	if err := r.ParseForm(); err != nil {
		return nil
	}
	if _, ok := r.Form[name]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.Form.Get(name))
	return &v
}

// BoolParam reads a boolean parameter, def when it is not passed.
func BoolParam(r *http.Request, name string, def bool) (bool, error) {
	v := OptParam(r, name)
	if v == nil || *v == "" {
		return def, nil
	}
	switch strings.ToLower(*v) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, &errs.ErrValidation{
		Message: "Parameter '" + name + "' must be a boolean.",
		Field:   name,
	}
}

// IntParam reads an integer parameter, def when it is not passed.
func IntParam(r *http.Request, name string, def int) (int, error) {
	v := Param(r, name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &errs.ErrValidation{
			Message: "Parameter '" + name + "' must be an integer.",
			Field:   name,
		}
	}
	return i, nil
}

// DurationParam reads a duration parameter, e.g. "1h30m".
func DurationParam(r *http.Request, name string) (time.Duration, error) {
	v := Param(r, name)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &errs.ErrValidation{
			Message: "Parameter '" + name + "' must be a duration.",
			Field:   name,
		}
	}
	return d, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate reads an ISO 8601 date. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.NewValidation("Invalid date format: " + s + ".")
}

// DateParam reads an optional ISO 8601 date parameter.
func DateParam(r *http.Request, name string) (*time.Time, error) {
	v := Param(r, name)
	if v == "" {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, &errs.ErrValidation{
			Message: err.Error(),
			Field:   name,
		}
	}
	return &t, nil
}

// JSONParam decodes a JSON encoded parameter into dst. It returns false
// when the parameter is not passed.
func JSONParam(r *http.Request, name string, dst any) (bool, error) {
	v := Param(r, name)
	if v == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return false, &errs.ErrValidation{
			Message: "Parameter '" + name + "' must be valid JSON.",
			Field:   name,
		}
	}
	return true, nil
}

// MetaParam reads the "meta" parameter, which must be a JSON object.
func MetaParam(r *http.Request) (map[string]any, error) {
	var raw any
	ok, err := JSONParam(r, "meta", &raw)
	if err != nil || !ok {
		return nil, err
	}
	meta, isObj := raw.(map[string]any)
	if !isObj {
		return nil, &errs.ErrValidation{
			Message: "Parameter 'meta' must be a JSON object.",
			Field:   "meta",
		}
	}
	return meta, nil
}
