package errors

import "fmt"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *SitepipeError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *SitepipeError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing: "+field).
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *SitepipeError {
	return New(CategoryValidation, SeverityFatal, fmt.Sprintf("validation failed: %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Pipeline errors

func UnknownModule(pipeline, moduleType string, index int) *SitepipeError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("unknown module type %q", moduleType)).
		WithContext("pipeline", pipeline).
		WithContext("module", moduleType).
		WithContext("index", index)
}

func InvalidModuleArgs(moduleType string, cause error) *SitepipeError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "invalid module arguments").
		WithContext("module", moduleType)
}

func DuplicatePipeline(name string) *SitepipeError {
	return New(CategoryConfig, SeverityFatal, "duplicate pipeline name: "+name).
		WithContext("pipeline", name)
}

func PipelineFailed(name string, cause error) *SitepipeError {
	return Wrap(cause, CategoryPipeline, SeverityFatal, "pipeline failed").
		WithContext("pipeline", name)
}

// File system errors

func FileSystemError(operation, path string, cause error) *SitepipeError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "file system operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Git errors

func GitError(repo string, cause error) *SitepipeError {
	return Wrap(cause, CategoryGit, SeverityError, "git history read failed").
		WithContext("repository", repo)
}

// Internal errors

func InternalError(message string, cause error) *SitepipeError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
