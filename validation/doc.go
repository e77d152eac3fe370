// Package validation checks mainkit configuration and reports failures as
// CONFIG_INVALID application errors.
//
// Struct tags are evaluated with go-playground/validator; field names in
// messages follow the mapstructure (config file) keys:
//
//	type BootstrapConfig struct {
//	    CloseTimeout time.Duration `mapstructure:"close_timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules that tags cannot express use the collecting Validator:
//
//	v := validation.New()
//	v.Custom(endpoint != "" || !enabled, "observability.endpoint", "is required when tracing is enabled")
//	return v.Validate()
package validation
