// Package manifest resolves the application manifest of a project.
//
// The static manifest comes from app.json (the "expo" object, or the whole
// document when there is no such key) or, when app.json is absent, from
// app.cue. An app.config.star Starlark script, when present, receives the
// static manifest and returns the resolved one:
//
//	def app_config(config):
//	    config["name"] = env("APP_NAME", config.get("name"))
//	    return config
//
// Resolution fails with ErrConfig when no source exists or a source is
// invalid. Schema validation is left to the transforms that consume the
// fields they need.
package manifest
