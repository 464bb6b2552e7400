// Package config loads prebuild's own settings.
//
// Settings come from an optional YAML file (prebuild.yaml in the project
// root, or an explicit --config path), then environment variables, then
// command-line flags applied by the caller. The merged result is validated
// with go-playground/validator.
//
// Example prebuild.yaml:
//
//	logging:
//	  level: debug
//	  format: console
//	tracing:
//	  enabled: true
//	  exporter: otlp
//	  endpoint: localhost:4317
//	metrics:
//	  textfile: /var/lib/node_exporter/prebuild.prom
//	history:
//	  path: .prebuild/history.db
//	apple:
//	  team_id: ABCDE12345
//
// Environment overrides: PREBUILD_LOG_LEVEL, PREBUILD_APPLE_TEAM_ID,
// PREBUILD_HISTORY_PATH, PREBUILD_METRICS_TEXTFILE,
// PREBUILD_TRACING_EXPORTER and PREBUILD_TRACING_ENDPOINT.
package config
