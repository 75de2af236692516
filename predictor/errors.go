package predictor

import "github.com/cockroachdb/errors"

// Error classes surfaced to callers as status codes.
var (
	// ErrValidation is a malformed or incomplete request (400).
	ErrValidation = errors.New("invalid request")
	// ErrDependency is a failing case store or alert topic (500).
	ErrDependency = errors.New("dependency failure")
	// ErrInference is a model that could not score the features (500).
	ErrInference = errors.New("inference failure")
)

func validationError(msg string) error {
	return errors.Mark(errors.New(msg), ErrValidation)
}

func dependencyError(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDependency)
}
