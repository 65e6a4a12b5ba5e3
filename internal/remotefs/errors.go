package remotefs

import "fmt"

// BrowseErrorKind classifies why a browse or open call failed.
type BrowseErrorKind string

const (
	// ErrKindAuth covers rejected or missing credentials.
	ErrKindAuth BrowseErrorKind = "auth"
	// ErrKindConnect covers dial failures and connect timeouts.
	ErrKindConnect BrowseErrorKind = "connect"
	// ErrKindNotFound covers malformed or non-existent remote paths.
	ErrKindNotFound BrowseErrorKind = "not_found"
	// ErrKindProtocol covers malformed responses and everything else the
	// wire protocol can produce.
	ErrKindProtocol BrowseErrorKind = "protocol"
)

// BrowseError is the typed failure for all remote filesystem operations.
// Browse calls never return partial results alongside one.
type BrowseError struct {
	Kind   BrowseErrorKind
	Server string
	Path   string
	Err    error
}

func (e *BrowseError) Error() string {
	return fmt.Sprintf("browse %s/%s: %s: %v", e.Server, e.Path, e.Kind, e.Err)
}

func (e *BrowseError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying the same call can ever succeed.
// Auth and path errors are permanent; connect and protocol errors are
// treated as transient.
func (e *BrowseError) Permanent() bool {
	return e.Kind == ErrKindAuth || e.Kind == ErrKindNotFound
}

func browseErr(kind BrowseErrorKind, server, path string, err error) *BrowseError {
	return &BrowseError{Kind: kind, Server: server, Path: path, Err: err}
}
