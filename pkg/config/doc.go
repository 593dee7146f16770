// Package config loads the valve configuration file.
//
// Configuration is read from YAML, completed with defaults and validated.
// Every field can be overridden from the environment with a variable named
// VALVE_SECTION_FIELD:
//
//	validation:
//	  inputs: [config/, data/]
//	  row_start: 2
//	  parallelism: 4
//	output:
//	  path: problems.tsv
//	store:
//	  enabled: true
//	  path: valve.db
//	telemetry:
//	  logging:
//	    level: debug
//
// VALVE_VALIDATION_ROW_START=3 would then override row_start. A missing
// file is not an error for LoadConfigWithEnvOverrides; the defaults are
// used instead.
//
// The CLI keeps the loaded configuration in a process-wide singleton (see
// Initialize and GetConfig). Library code should take a *Config explicitly.
package config
