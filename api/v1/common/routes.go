package common

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

// HandlerFunc is an HTTP handler returning its error, so the server
// maps it to a response in a single place.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Route binds a handler to a method and a chi pattern, relative to the
// resource root.
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Routable is implemented by the resources stores.
type Routable interface {
	// Resource is the root path of the resource, e.g. "/challenge".
	Resource() string
	Routes() []Route
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MaxBodySize bounds the size of JSON bodies.
const MaxBodySize = 10 << 20

// DecodeBody decodes the JSON body of the request into dst.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodySize))
	if err := dec.Decode(dst); err != nil {
		return &errs.ErrValidation{
			Message: errors.Wrap(err, "Invalid JSON passed in request body").Error(),
		}
	}
	return nil
}
