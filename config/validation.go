package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is internally
// consistent. Connectivity problems are left to the components that open
// the connections; this only rejects values that can never work.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.DBHost == "" {
		errors = append(errors, ValidationError{"DB_HOST", "must not be empty"}.Error())
	}
	if cfg.DBName == "" {
		errors = append(errors, ValidationError{"DB_NAME", "must not be empty"}.Error())
	}
	if IsProduction() && cfg.DBPassword == "" {
		errors = append(errors, ValidationError{"DB_PASSWORD", "db_password secret is required in production"}.Error())
	}

	if cfg.CatalogBatchSize < 1 {
		errors = append(errors, ValidationError{"CATALOG_BATCH_SIZE", "must be at least 1"}.Error())
	}
	if cfg.CatalogProgressEvery < 1 {
		errors = append(errors, ValidationError{"CATALOG_PROGRESS_EVERY", "must be at least 1"}.Error())
	}
	if cfg.CatalogDumpURL == "" {
		errors = append(errors, ValidationError{"CATALOG_DUMP_URL", "must not be empty"}.Error())
	}
	if cfg.CatalogTargetLang == "" {
		errors = append(errors, ValidationError{"CATALOG_TARGET_LANG", "must not be empty"}.Error())
	}
	if cfg.CatalogStrictRegion && cfg.CatalogRegionTag == "" {
		errors = append(errors, ValidationError{"CATALOG_REGION_TAG", "required when strict region filtering is enabled"}.Error())
	}

	if cfg.SearchSimilarityThreshold <= 0 || cfg.SearchSimilarityThreshold > 1 {
		errors = append(errors, ValidationError{"SEARCH_SIMILARITY_THRESHOLD", "must be in (0, 1]"}.Error())
	}
	if cfg.SearchDefaultLimit < 1 || cfg.SearchDefaultLimit > cfg.SearchMaxLimit {
		errors = append(errors, ValidationError{"SEARCH_DEFAULT_LIMIT", "must be between 1 and SEARCH_MAX_LIMIT"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
