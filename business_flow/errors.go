package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Resolution-related errors
	ErrRegistryLoadFailed   = errors.New("failed to load customer registry")
	ErrResolutionPersist    = errors.New("failed to persist resolution output")
	ErrNoIdentifiableSignal = errors.New("contact record has no identifiable signal")

	// Flagging-related errors
	ErrEventLoadFailed   = errors.New("failed to load event feed")
	ErrFlagLoadFailed    = errors.New("failed to load persisted flags")
	ErrFlagPersist       = errors.New("failed to persist flag output")
	ErrNoRulesRegistered = errors.New("no rules registered")

	// Import-related errors
	ErrImportSourceRequired = errors.New("import source is required")
	ErrImportFileUnreadable = errors.New("import file is unreadable")
	ErrUnsupportedFileType  = errors.New("unsupported import file type")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
