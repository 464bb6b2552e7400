// Package stores persists the apply history in SQLite.
// Each apply run is recorded with its final phase, error and isolated
// warnings so `prebuild history` can show what happened to a project.
package stores
