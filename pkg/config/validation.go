package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the custom
// rules that tags cannot express. Log level normalization happens in
// ApplyDefaults, so both cases pass validation here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Snapshot.Type == "file" {
		if path, _ := cfg.Snapshot.File["path"].(string); path == "" {
			return fmt.Errorf("snapshot.file: path is required")
		}
	}

	if cfg.Content.Type == "badger" {
		inMemory, _ := cfg.Content.Badger["in_memory"].(bool)
		path, _ := cfg.Content.Badger["db_path"].(string)
		if !inMemory && path == "" {
			return fmt.Errorf("content.badger: db_path is required unless in_memory is set")
		}
	}

	if cfg.Lazy.Fetcher == "s3" {
		if bucket, _ := cfg.Lazy.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("lazy.s3: bucket is required")
		}
		if region, _ := cfg.Lazy.S3["region"].(string); region == "" {
			return fmt.Errorf("lazy.s3: region is required")
		}
	}

	if cfg.Lazy.Fetcher == "none" && cfg.Lazy.ManifestPath != "" {
		return fmt.Errorf("lazy: manifest_path set but no fetcher configured")
	}

	return nil
}

// formatValidationError converts validator errors into readable
// messages, surfacing the first failure with its field path.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
