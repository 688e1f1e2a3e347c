// Package errors provides structured error handling for tavernkeep.
//
// Service-layer failures carry a typed error code so HTTP handlers can map
// them to status codes without string matching. Validation failures carry the
// full list of field violations so callers can show all of them at once.
package errors
