package common

import (
	"net/http"
	"strings"

	"github.com/ctfer-io/covalic/global"
)

// APIPrefix is the path the API resources are mounted under.
const APIPrefix = "/api/v1"

// APIURL returns the API root advertised to scoring workers: the
// configured one, else the one the request was received on.
func APIURL(r *http.Request) string {
	if global.Conf.APIURL != "" {
		return strings.TrimSuffix(global.Conf.APIURL, "/")
	}
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host + APIPrefix
}
