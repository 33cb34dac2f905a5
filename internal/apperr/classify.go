package apperr

import "errors"

// IsTransient reports whether err is retryable under the retry policy.
func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a missing-resource lookup.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
