package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Itish41/ParseGuard/repository"
)

// Kind is the error taxonomy surfaced to callers.
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindOwnerMismatch          Kind = "OwnerMismatch"
	KindValidationFailed       Kind = "ValidationFailed"
	KindCollaboratorFailure    Kind = "CollaboratorFailure"
	KindConcurrentModification Kind = "ConcurrentModification"
	KindInvalidTransition      Kind = "InvalidTransition"
)

// Error is returned by every service operation that fails for a domain
// reason. It carries the kind, a stable code and the ids involved. The cause
// is kept for logging and errors.Is but never rendered by Error.
type Error struct {
	Kind    Kind
	Code    string
	IDs     map[string]string
	Message string
	cause   error
}

// Sentinels for errors.Is. Errors match on Code.
var (
	ErrComplianceItemNotFound = &Error{Kind: KindNotFound, Code: "ComplianceItemNotFound"}
	ErrDocumentNotFound       = &Error{Kind: KindNotFound, Code: "DocumentNotFound"}
	ErrRiskScoreNotFound      = &Error{Kind: KindNotFound, Code: "RiskScoreNotFound"}
	ErrOwnerMismatch          = &Error{Kind: KindOwnerMismatch, Code: "OwnerMismatch"}
	ErrValidationFailed       = &Error{Kind: KindValidationFailed, Code: "ValidationFailed"}
	ErrExtractionFailed       = &Error{Kind: KindCollaboratorFailure, Code: "ExtractionFailed"}
	ErrAnalysisFailed         = &Error{Kind: KindCollaboratorFailure, Code: "AnalysisFailed"}
	ErrSearchUnavailable      = &Error{Kind: KindCollaboratorFailure, Code: "SearchUnavailable"}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification, Code: "ConcurrentModification"}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition, Code: "InvalidTransition"}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" && e.Code != string(e.Kind) {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.IDs) > 0 {
		keys := make([]string, 0, len(e.IDs))
		for k := range e.IDs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.IDs[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError instantiates a sentinel with ids and an optional cause.
func newError(sentinel *Error, ids map[string]string, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, IDs: ids, cause: cause}
}

func validationError(ids map[string]string, format string, args ...interface{}) *Error {
	err := newError(ErrValidationFailed, ids, nil)
	err.Message = fmt.Sprintf(format, args...)
	return err
}

func transitionError(ids map[string]string, format string, args ...interface{}) *Error {
	err := newError(ErrInvalidTransition, ids, nil)
	err.Message = fmt.Sprintf(format, args...)
	return err
}

// translate maps repository failures onto the taxonomy. notFound is used
// for repository.ErrNotFound; service errors pass through unchanged.
func translate(err error, notFound *Error, ids map[string]string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(notFound, ids, err)
	case errors.Is(err, repository.ErrConstraint):
		e := newError(ErrValidationFailed, ids, err)
		e.Message = "value rejected by storage constraint"
		return e
	case errors.Is(err, repository.ErrConflict):
		return newError(ErrConcurrentModification, ids, err)
	}
	return err
}

func itemIDs(itemID string) map[string]string {
	return map[string]string{"compliance_item_id": itemID}
}
