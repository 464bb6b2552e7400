// Package engine applies an application manifest to a generated iOS project.
//
// # Overview
//
// An apply run is a sequential state machine:
//
//  1. ResolveManifest - load the manifest and derive the native layout (Paths)
//  2. MutateProjectFile - bundle identifier, Google services file, device family
//  3. ApplyInfoPlist - run the Info.plist pipeline
//  4. ApplyExpoPlist - run the Expo.plist pipeline (isolated)
//  5. ApplyEntitlements - run the entitlements pipeline (isolated)
//  6. ApplyAssets - place icons, splash screen and locales
//
// The run ends in Done, or in Failed on the first non-isolated error. Nothing
// is written before ResolveManifest succeeds, so a manifest without a name
// leaves the project untouched.
//
// # Documents and Pipelines
//
// Every property-list edit goes through an Editor, which opens a document
// (creating a backup), applies a Transform, writes the result in the
// document's original format and removes the backup on every exit path.
//
// A Pipeline is an ordered list of named Steps kept as data; Fold applies
// them left to right, so later steps win on conflicting keys:
//
//	pipeline := engine.InfoPlistPipeline(m)
//	err := editor.Edit(ctx, paths.NativeProjectDirectory, engine.InfoPlistName, pipeline.Fold)
//
// # Failure Isolation
//
// Isolate wraps a block so that its failure becomes a Warning appended to the
// run's Warnings instead of aborting the run. Warnings are returned in the
// Report together with the final Phase.
//
// # Error Classification
//
//   - Fatal: aborts the run (missing name, unreadable Info.plist)
//   - Isolated: converted into a warning (missing entitlements file)
//   - BestEffort: logged only (backup cleanup)
package engine
