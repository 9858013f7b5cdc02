package usecase

import "errors"

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// CollaboratorError classifies failures from external collaborators
// (discovery fetches, messaging sends). Retryable errors get bounded
// backoff; permanent ones terminate only the affected unit of work.
type CollaboratorError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *CollaboratorError) Error() string {
	return e.Message
}

func IsRetryable(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}
