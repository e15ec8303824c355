// Package model defines the documents covalic persists, as they are
// stored and, once filtered, returned by the API.
package model
