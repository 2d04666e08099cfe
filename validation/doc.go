// Package validation provides input validation for pipeline definitions and
// orchestrator configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// recommended for configuration structs; the fluent Validator suits
// definition-level checks that cross multiple fields.
//
// # Struct Tag Validation
//
//	type ExecutorConfig struct {
//	    MaxParallelism int `validate:"required,min=1"`
//	}
//	err := validation.Struct(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", def.Name)
//	v.OneOf("kind", string(task.Kind), pipeline.KindNames())
//	err := v.Validate()
package validation
