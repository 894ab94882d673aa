// Package builderr defines the two error kinds that surface during
// template processing and top-level build orchestration. The pipeline
// returns a BuildError for the failures that abort a build (loading a
// config or user data file, writing the output).
package builderr

import "fmt"

// TemplateError covers processing-time failures inside the template
// processor (C8) or view-expression builder (C10) - e.g. an include
// reference to an undefined IncludeDefinition. The core's condition/
// expression evaluators never raise (they return false / the original
// text), so a TemplateError indicates a structural authoring mistake,
// not a runtime-predicate mismatch.
type TemplateError struct {
	Template string
	Stage    string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %s: %v", e.Template, e.Stage, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// BuildError covers I/O or integration-level failures: unreadable
// directories, unwritable output paths, a missing required collaborator.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build: %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// New wraps err as a BuildError tagged with the stage that produced it.
func New(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &BuildError{Stage: stage, Err: err}
}
