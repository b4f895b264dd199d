package auth

import "fmt"

// ConfigError reports that a required parameter for the resolved auth
// type was missing.
type ConfigError struct {
	Type    string
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("auth config: %s auth missing required parameter %q", e.Type, e.Missing)
}

// UnsupportedError is raised for auth types the dispatcher cannot apply
// transparently (digest, awsv4, ntlm, hawk).
type UnsupportedError struct {
	Type string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("auth config: unsupported auth type %q", e.Type)
}
