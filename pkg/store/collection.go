package store

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

// Collection is a typed view over the documents of a backend collection.
type Collection[T any] struct {
	name    string
	kind    string
	backend Backend
	id      func(*T) string
}

func NewCollection[T any](backend Backend, name, kind string, id func(*T) string) *Collection[T] {
	return &Collection[T]{
		name:    name,
		kind:    kind,
		backend: backend,
		id:      id,
	}
}

// Kind is the human name of the documents, used in error messages.
func (c *Collection[T]) Kind() string {
	return c.kind
}

// Load returns the document of the given id, or an *errors.ErrNotFound.
func (c *Collection[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, &errs.ErrNotFound{Kind: c.kind, ID: id}
	}
	b, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, &errs.ErrNotFound{Kind: c.kind, ID: id}
		}
		return nil, err
	}
	doc := new(T)
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, &errs.ErrInternal{Sub: errors.Wrapf(err, "decoding %s %s", c.kind, id)}
	}
	return doc, nil
}

// Exists tells whether a document of the given id is stored.
func (c *Collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.Load(ctx, id)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*errs.ErrNotFound); ok {
		return false, nil
	}
	return false, err
}

func (c *Collection[T]) Save(ctx context.Context, doc *T) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	return c.backend.Put(ctx, c.name, c.id(doc), b)
}

// Remove deletes the document. Removing a missing document is an
// *errors.ErrNotFound.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, c.name, id); err != nil {
		if errors.Is(err, ErrNotExist) {
			return &errs.ErrNotFound{Kind: c.kind, ID: id}
		}
		return err
	}
	return nil
}

// Find returns every document matching the predicate. A nil predicate
// matches everything.
func (c *Collection[T]) Find(ctx context.Context, match func(*T) bool) ([]*T, error) {
	raws, err := c.backend.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, b := range raws {
		doc := new(T)
		if err := json.Unmarshal(b, doc); err != nil {
			return nil, &errs.ErrInternal{Sub: errors.Wrapf(err, "decoding %s", c.kind)}
		}
		if match == nil || match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// FindOne returns the first document matching the predicate, or nil.
func (c *Collection[T]) FindOne(ctx context.Context, match func(*T) bool) (*T, error) {
	docs, err := c.Find(ctx, match)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count returns the number of documents matching the predicate.
func (c *Collection[T]) Count(ctx context.Context, match func(*T) bool) (int, error) {
	docs, err := c.Find(ctx, match)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
