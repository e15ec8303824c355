package common

import (
	"net/http"
	"sort"
)

// Page sorts the documents with less then applies the offset and limit.
// A non-positive limit means no limit.
func Page[T any](docs []*T, less func(a, b *T) bool, offset, limit int) []*T {
	if less != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			return less(docs[i], docs[j])
		})
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []*T{}
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// PageParams reads the "limit" and "offset" parameters.
func PageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = IntParam(r, "limit", 0); err != nil {
		return
	}
	offset, err = IntParam(r, "offset", 0)
	return
}
