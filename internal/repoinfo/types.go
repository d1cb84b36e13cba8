package repoinfo

import (
	"errors"
	"fmt"
	"strings"
)

// Reference identifies a hosted repository.
type Reference struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Reference) String() string {
	return r.Owner + "/" + r.Name
}

// Info is the descriptive metadata used to build a generation prompt.
// Description and Language are nil when the provider reports none.
type Info struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Language    *string `json:"language,omitempty"`
	FullName    string  `json:"full_name,omitempty"`
	HTMLURL     string  `json:"html_url,omitempty"`
}

// DescriptionOr returns the description or fallback when absent or empty.
// Whitespace-only values are kept as the provider sent them.
func (i *Info) DescriptionOr(fallback string) string {
	if i == nil || i.Description == nil || *i.Description == "" {
		return fallback
	}
	return *i.Description
}

// LanguageOr returns the primary language or fallback when absent or empty.
func (i *Info) LanguageOr(fallback string) string {
	if i == nil || i.Language == nil || *i.Language == "" {
		return fallback
	}
	return *i.Language
}

// ErrNotFetchable matches every fetch failure.
var ErrNotFetchable = errors.New("repository information not fetchable")

// ErrMalformedURL matches fetch failures caused by an unparseable URL.
var ErrMalformedURL = errors.New("malformed repository url")

// FailureKind classifies a fetch failure for logging and metrics.
type FailureKind string

const (
	KindMalformedURL FailureKind = "malformed_url"
	KindNotFound     FailureKind = "not_found"
	KindForbidden    FailureKind = "forbidden"
	KindRateLimited  FailureKind = "rate_limited"
	KindUpstream     FailureKind = "upstream"
	KindTransport    FailureKind = "transport"
	KindDecode       FailureKind = "decode"
)

// FetchError describes why repository metadata could not be fetched. The
// provider's status and message are kept for logs only.
type FetchError struct {
	Kind       FailureKind
	Repository string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ErrNotFetchable.Error()
	}
	var b strings.Builder
	b.WriteString("fetch repository")
	if e.Repository != "" {
		b.WriteString(" " + e.Repository)
	}
	b.WriteString(": " + string(e.Kind))
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Is reports ErrNotFetchable for every kind and ErrMalformedURL for the
// malformed kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFetchable:
		return true
	case ErrMalformedURL:
		return e != nil && e.Kind == KindMalformedURL
	}
	return false
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
