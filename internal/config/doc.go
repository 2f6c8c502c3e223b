// Package config loads, normalizes, and validates photoimport configuration data.
//
// It supplies repository defaults, reads an optional TOML (or YAML) file, merges
// an optional dotenv file, and applies IMPORT_* environment overrides such as
// IMPORT_STAGING_DIR and IMPORT_USER_<NAME>. The Config type centralizes every
// knob a run needs so it can be built once at startup and handed to each
// component's constructor.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
