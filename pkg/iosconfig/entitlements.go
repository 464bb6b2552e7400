package iosconfig

import (
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// Entitlement keys.
const (
	KeyICloudContainers   = "com.apple.developer.icloud-container-identifiers"
	KeyICloudServices     = "com.apple.developer.icloud-services"
	KeyUbiquityContainers = "com.apple.developer.ubiquity-container-identifiers"
	KeyUbiquityKVStore    = "com.apple.developer.ubiquity-kvstore-identifier"
	KeyAppleSignIn        = "com.apple.developer.applesignin"
	KeyContactNotes       = "com.apple.developer.contacts.notes"
	KeyAssociatedDomains  = "com.apple.developer.associated-domains"
)

// SetICloudEntitlement enables iCloud Documents and key-value storage when
// ios.usesIcloudStorage is set. The key-value store is scoped to teamID.
func SetICloudEntitlement(m *manifest.Manifest, teamID string, doc plist.Document) plist.Document {
	ios := m.IOSSection()
	if !ios.UsesIcloudStorage || ios.BundleIdentifier == "" {
		return doc
	}
	container := "iCloud." + ios.BundleIdentifier
	doc[KeyICloudContainers] = []any{container}
	doc[KeyUbiquityContainers] = []any{container}
	doc[KeyICloudServices] = []any{"CloudDocuments"}
	if teamID != "" {
		doc[KeyUbiquityKVStore] = teamID + "." + ios.BundleIdentifier
	}
	return doc
}

// SetAppleSignInEntitlement enables Sign in with Apple.
func SetAppleSignInEntitlement(m *manifest.Manifest, doc plist.Document) plist.Document {
	if m.IOSSection().UsesAppleSignIn {
		doc[KeyAppleSignIn] = []any{"Default"}
	}
	return doc
}

// SetAccessesContactNotes enables access to contact notes.
func SetAccessesContactNotes(m *manifest.Manifest, doc plist.Document) plist.Document {
	if m.IOSSection().AccessesContactNotes {
		doc[KeyContactNotes] = true
	}
	return doc
}

// SetAssociatedDomains writes the associated domains list.
func SetAssociatedDomains(m *manifest.Manifest, doc plist.Document) plist.Document {
	domains := m.IOSSection().AssociatedDomains
	if len(domains) == 0 {
		return doc
	}
	list := make([]any, len(domains))
	for i, d := range domains {
		list[i] = d
	}
	doc[KeyAssociatedDomains] = list
	return doc
}
