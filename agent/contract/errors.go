package contract

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model response violates schema")
	ErrInvalidTransition = errors.New("stage registry misconfigured")
	ErrArtifactConflict  = errors.New("loan offer already computed with different inputs")
	ErrExternalService   = errors.New("external service failed")
)
