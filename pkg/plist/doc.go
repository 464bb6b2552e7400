// Package plist provides the in-memory property-list Document and a
// file-backed DocumentStore used by the apply engine.
//
// # Documents
//
// A Document is a hierarchical key/value mapping with property-list value
// semantics: strings, integers, reals, booleans, dates, data, arrays and
// nested dictionaries. Documents are identified by a directory and a base
// name. A base name without an extension resolves to "<name>.plist"; a base
// name that already carries an extension (such as "MyApp.entitlements") is
// used as-is.
//
// # Backups
//
// FileStore.Open copies the document to "<file>.bak" before handing it out.
// CleanupBackup removes that copy, optionally restoring it over the document
// first. Cleanup is idempotent: a missing backup is not an error.
//
//	store := plist.NewFileStore(logger)
//	doc, err := store.Open(dir, "Info")
//	if err != nil {
//	    return err
//	}
//	doc.Set("CFBundleDisplayName", "My App")
//	if err := store.Write(dir, "Info", doc); err != nil {
//	    return err
//	}
//	_ = store.CleanupBackup(dir, "Info", false)
package plist
