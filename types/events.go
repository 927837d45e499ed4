// Package types defines the wire and state types shared by holonet packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// EventSearch is the event name used for both the search request and its
// paged replies. Direction is the transport's concern, not the event name's.
const EventSearch = "search"

// Query is the search request payload.
type Query struct {
	// Query is the character name (or part of it) to look up.
	Query string `json:"query" msgpack:"query"`
	// Txn is the correlation id of the issuing transaction.
	// Responders echo it back on every fragment.
	Txn string `json:"txn,omitempty" msgpack:"txn,omitempty"`
}

// ErrorResultCount is the ResultCount sentinel marking a remote-side error.
const ErrorResultCount = -1

// Fragment is one page of a search reply.
// Fragments are immutable once decoded.
type Fragment struct {
	// Page is the 1-based page number.
	Page int `json:"page" msgpack:"page"`
	// ResultCount is the total number of pages the responder will send,
	// or ErrorResultCount on failure.
	ResultCount int `json:"resultCount" msgpack:"resultCount"`
	// Name is the matched character name.
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
	// Films lists the films the character appears in, comma separated.
	Films string `json:"films,omitempty" msgpack:"films,omitempty"`
	// Error is set on error fragments.
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
	// Txn echoes Query.Txn when the responder supports correlation.
	Txn string `json:"txn,omitempty" msgpack:"txn,omitempty"`
}

// IsError reports whether the fragment carries the remote error sentinel.
func (f *Fragment) IsError() bool {
	return f.ResultCount == ErrorResultCount
}

// ErrorFragment builds a fragment carrying only an error message.
// Used both by responders and for synthetic local failures.
func ErrorFragment(msg string) Fragment {
	return Fragment{
		Page:        ErrorResultCount,
		ResultCount: ErrorResultCount,
		Error:       msg,
	}
}
