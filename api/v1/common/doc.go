// Package common holds what the API resources share: request parameters
// parsing, the authenticated user, access checks, locks and metrics.
package common
