package infra

import (
	"errors"
	"log/slog"

	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/pgconv"
)

type RepositoryErrorKind string

type RepositoryError struct {
	Kind RepositoryErrorKind
	msg  string
	err  error // wrapped low-level error
}

func (e RepositoryError) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.msg
}

func (e RepositoryError) Unwrap() error {
	return e.err
}

// WrapRepoErr classifies a driver error and wraps it with msg.
func WrapRepoErr(msg string, err error) error {
	kind := KindDBFailure
	switch {
	case pgconv.IsNoRows(err):
		kind = KindNotFound
	case pgconv.IsUniqueViolation(err):
		kind = KindDuplicateKey
	}

	if kind == KindDBFailure {
		slog.Error("Repository error: "+msg, slog.String("kind", string(kind)), slog.Any("error", err))
		err = errs.Mark(errs.Wrap(err, msg), errs.ErrDatabaseOperationFailed)
	} else if err != nil {
		err = errs.Wrap(err, msg)
	}

	return RepositoryError{Kind: kind, msg: msg, err: err}
}

// NotFound builds a NOT_FOUND error carrying a domain sentinel.
func NotFound(msg string, sentinel error) error {
	return RepositoryError{Kind: KindNotFound, msg: msg, err: errs.Mark(errs.New(msg), sentinel)}
}

func IsKind(err error, kind RepositoryErrorKind) bool {
	var e RepositoryError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Infrastructure-specific error kinds
const (
	KindNotFound     RepositoryErrorKind = "NOT_FOUND"
	KindDBFailure    RepositoryErrorKind = "DB_FAILURE"
	KindDuplicateKey RepositoryErrorKind = "DUPLICATE_KEY"
)
