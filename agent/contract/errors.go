package contract

import "errors"

var (
	ErrDuplicateTool      = errors.New("tool already registered")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrValidation         = errors.New("validation failed")
	ErrTransient          = errors.New("transient tool error")
	ErrDependency         = errors.New("dependency not satisfied")
	ErrPlanning           = errors.New("planner output unusable")
	ErrStorageUnavailable = errors.New("memory storage unavailable")
	ErrMemoryNotFound     = errors.New("memory record not found")
	ErrRegistrySealed     = errors.New("registry is sealed")
	ErrInvalidSession     = errors.New("session id is empty")
	ErrInvalidMessage     = errors.New("message is empty")
)
