// Package errors defines the Atlas error taxonomy.
//
// Fatal errors (NOT_FOUND, VALIDATION, AMBIGUOUS_MATCH) stop the command that
// raised them. Warnings (CONFIG_MISSING, PATH_NOT_FOUND) and hints
// (STALE_CACHE) are reported per project while the surrounding operation
// keeps going.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotFound indicates a slug absent from the registry
	NotFound ErrorCode = "NOT_FOUND"
	// Validation indicates a missing required field or a violated constraint
	Validation ErrorCode = "VALIDATION"
	// AmbiguousMatch indicates two or more equally strong resolver matches
	AmbiguousMatch ErrorCode = "AMBIGUOUS_MATCH"
	// ConfigMissing indicates a project without an atlas.yaml
	ConfigMissing ErrorCode = "CONFIG_MISSING"
	// PathNotFound indicates a registered path that does not exist
	PathNotFound ErrorCode = "PATH_NOT_FOUND"
	// StaleCache indicates the cache covers too few projects to trust a query
	StaleCache ErrorCode = "STALE_CACHE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Severity classifies how a caller should treat an error.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
	SeverityHint    Severity = "hint"
)

var severities = map[ErrorCode]Severity{
	ConfigMissing: SeverityWarning,
	PathNotFound:  SeverityWarning,
	StaleCache:    SeverityHint,
}

// Severity returns the severity of the code. Unknown codes are fatal.
func (c ErrorCode) Severity() Severity {
	if s, ok := severities[c]; ok {
		return s
	}
	return SeverityFatal
}

// FixAction represents a suggested corrective step
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description"`
}

// AtlasError carries a code, the affected slug (when there is one), and
// suggested fixes.
type AtlasError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Slug           string      `json:"slug,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an AtlasError with the code's default fixes.
func New(code ErrorCode, message string, cause error) *AtlasError {
	return &AtlasError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *AtlasError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	if len(e.SuggestedFixes) > 0 {
		fix := e.SuggestedFixes[0]
		if fix.Command != "" {
			fmt.Fprintf(&b, " (%s: %s)", fix.Description, fix.Command)
		} else {
			fmt.Fprintf(&b, " (%s)", fix.Description)
		}
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *AtlasError) Unwrap() error {
	return e.cause
}

// WithSlug records the affected project.
func (e *AtlasError) WithSlug(slug string) *AtlasError {
	e.Slug = slug
	return e
}

// WithDetails adds details to the error
func (e *AtlasError) WithDetails(details interface{}) *AtlasError {
	e.Details = details
	return e
}

// WithFix prepends a fix so it is the first one shown.
func (e *AtlasError) WithFix(command, description string) *AtlasError {
	e.SuggestedFixes = append([]FixAction{{Command: command, Description: description}}, e.SuggestedFixes...)
	return e
}

// IsWarning reports whether the error is recoverable.
func (e *AtlasError) IsWarning() bool {
	return e.Code.Severity() != SeverityFatal
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NotFound: {
		{Command: "atlas list", Description: "specify --project with a registered slug or run `atlas add` first"},
	},
	AmbiguousMatch: {
		{Command: "atlas show <slug>", Description: "give each project a distinct path, or pass --project explicitly"},
	},
	ConfigMissing: {
		{Command: "atlas edit <slug> --summary \"...\"", Description: "create atlas.yaml in the project root"},
	},
	PathNotFound: {
		{Command: "atlas remove <slug>", Description: "restore the directory or unregister the project"},
	},
	StaleCache: {
		{Command: "atlas refresh", Description: "refresh the cache before trusting an empty result"},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	fixes, ok := ErrorActions[code]
	if !ok {
		return nil
	}
	out := make([]FixAction, len(fixes))
	copy(out, fixes)
	return out
}

// NewNotFoundError reports a slug absent from the registry.
func NewNotFoundError(slug string) *AtlasError {
	return New(NotFound, fmt.Sprintf("project %q is not registered", slug), nil).WithSlug(slug)
}

// NewUnresolvedError reports that no slug was given and the path resolved to nothing.
func NewUnresolvedError(path string) *AtlasError {
	return New(NotFound, fmt.Sprintf("no registered project contains %s", path), nil).
		WithDetails(map[string]string{"path": path})
}

// NewFileNotFoundError reports a missing file inside a project.
func NewFileNotFoundError(rel string) *AtlasError {
	return &AtlasError{Code: NotFound, Message: fmt.Sprintf("file %s not found", rel),
		Details: map[string]string{"path": rel}}
}

// NewValidationError reports a constraint violation on a field.
func NewValidationError(field, message string) *AtlasError {
	return New(Validation, fmt.Sprintf("%s: %s", field, message), nil).
		WithDetails(map[string]string{"field": field})
}

// NewAmbiguousMatchError reports equally strong matches across slugs.
func NewAmbiguousMatchError(path, candidate string, slugs []string) *AtlasError {
	return New(AmbiguousMatch,
		fmt.Sprintf("%s matches %s equally via %s", path, strings.Join(slugs, ", "), candidate), nil).
		WithDetails(map[string]interface{}{"path": path, "candidate": candidate, "slugs": slugs})
}

// NewConfigMissingWarning reports a project without a readable atlas.yaml.
func NewConfigMissingWarning(slug, file string) *AtlasError {
	return New(ConfigMissing, fmt.Sprintf("%s: no atlas config at %s", slug, file), nil).WithSlug(slug)
}

// NewPathNotFoundWarning reports a registered path that is gone.
func NewPathNotFoundWarning(slug, path string) *AtlasError {
	return New(PathNotFound, fmt.Sprintf("%s: path %s does not exist", slug, path), nil).WithSlug(slug)
}

// NewStaleCacheHint reports low cache coverage.
func NewStaleCacheHint(cached, registered int) *AtlasError {
	return New(StaleCache, fmt.Sprintf("only %d of %d projects are cached", cached, registered), nil).
		WithDetails(map[string]int{"cached": cached, "registered": registered})
}

// AsAtlasError extracts an AtlasError from an error chain.
func AsAtlasError(err error) (*AtlasError, bool) {
	var ae *AtlasError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	ae, ok := AsAtlasError(err)
	return ok && ae.Code == code
}

// IsWarning reports whether err is a recoverable AtlasError.
func IsWarning(err error) bool {
	ae, ok := AsAtlasError(err)
	return ok && ae.IsWarning()
}
