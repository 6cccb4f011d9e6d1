package config

import "os"

// Environment is the runtime tier the process was deployed to. It gates
// Docker-secret loading, logger encoding and gin's release mode.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads the deployment tier from APP_ENV, falling back to
// the legacy ENV variable. CI pipelines are recognized by the CI variable
// they set themselves. Anything unrecognized counts as development.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	switch Environment(env) {
	case Production, Test, Development:
		return Environment(env)
	}
	return Development
}

// IsProduction reports whether the process runs in the production tier.
func IsProduction() bool {
	return GetEnvironment() == Production
}
