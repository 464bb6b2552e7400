package iosconfig

import (
	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// Transform maps one document state to the next for a given manifest.
// Transforms may modify doc in place; callers that need the previous state
// clone it first.
type Transform func(m *manifest.Manifest, doc plist.Document) plist.Document

// Info.plist keys written by this package.
const (
	KeyBundleIdentifier         = "CFBundleIdentifier"
	KeyDisplayName              = "CFBundleDisplayName"
	KeyShortVersion             = "CFBundleShortVersionString"
	KeyBundleVersion            = "CFBundleVersion"
	KeyURLTypes                 = "CFBundleURLTypes"
	KeyURLSchemes               = "CFBundleURLSchemes"
	KeyQueriesSchemes           = "LSApplicationQueriesSchemes"
	KeySupportedOrientations    = "UISupportedInterfaceOrientations"
	KeyRequiresFullScreen       = "UIRequiresFullScreen"
	KeyUserInterfaceStyle       = "UIUserInterfaceStyle"
	KeyNonExemptEncryption      = "ITSAppUsesNonExemptEncryption"
	KeyBranch                   = "branch_key"
	KeyGoogleMapsAPIKey         = "GMSApiKey"
	KeyGoogleMobileAdsAppID     = "GADApplicationIdentifier"
	KeyGoogleMobileAdsDelayInit = "GADDelayAppMeasurementInit"
	KeyFacebookAppID            = "FacebookAppID"
	KeyFacebookDisplayName      = "FacebookDisplayName"
	KeyFacebookAutoInit         = "FacebookAutoInitEnabled"
	KeyFacebookAutoLogEvents    = "FacebookAutoLogAppEventsEnabled"
	KeyFacebookAdvertiserID     = "FacebookAdvertiserIDCollectionEnabled"
)

const (
	defaultBuildNumber = "1"
	defaultVersion     = "1.0.0"
)

var facebookQuerySchemes = []string{"fbapi", "fb-messenger-api", "fbauth2", "fbshareextension"}

// SetCustomInfoPlistEntries merges ios.infoPlist verbatim into the document.
func SetCustomInfoPlistEntries(m *manifest.Manifest, doc plist.Document) plist.Document {
	for k, v := range m.IOSSection().InfoPlist {
		doc[k] = v
	}
	return doc
}

// SetBranchAPIKey writes the Branch live key.
func SetBranchAPIKey(m *manifest.Manifest, doc plist.Document) plist.Document {
	branch := m.IOSServices().Branch
	if branch == nil || branch.APIKey == "" {
		return doc
	}
	doc[KeyBranch] = plist.Document{"live": branch.APIKey}
	return doc
}

// SetFacebookConfig writes the Facebook SDK keys, query schemes and URL scheme.
func SetFacebookConfig(m *manifest.Manifest, doc plist.Document) plist.Document {
	if m.FacebookAppID != "" {
		doc[KeyFacebookAppID] = m.FacebookAppID
		doc.AppendUnique(KeyQueriesSchemes, facebookQuerySchemes...)
	}
	if m.FacebookDisplayName != "" {
		doc[KeyFacebookDisplayName] = m.FacebookDisplayName
	}
	if m.FacebookScheme != "" {
		appendURLScheme(doc, m.FacebookScheme)
	}
	if m.FacebookAutoInitEnabled != nil {
		doc[KeyFacebookAutoInit] = *m.FacebookAutoInitEnabled
	}
	if m.FacebookAutoLogAppEventsEnabled != nil {
		doc[KeyFacebookAutoLogEvents] = *m.FacebookAutoLogAppEventsEnabled
	}
	if m.FacebookAdvertiserIDCollectionEnabled != nil {
		doc[KeyFacebookAdvertiserID] = *m.FacebookAdvertiserIDCollectionEnabled
	}
	return doc
}

// SetGoogleConfig writes Google Maps, Mobile Ads and Sign-In settings.
func SetGoogleConfig(m *manifest.Manifest, doc plist.Document) plist.Document {
	services := m.IOSServices()
	if services.GoogleMapsAPIKey != "" {
		doc[KeyGoogleMapsAPIKey] = services.GoogleMapsAPIKey
	}
	if services.GoogleMobileAdsAppID != "" {
		doc[KeyGoogleMobileAdsAppID] = services.GoogleMobileAdsAppID
	}
	if services.GoogleMobileAdsAutoInit != nil {
		doc[KeyGoogleMobileAdsDelayInit] = !*services.GoogleMobileAdsAutoInit
	}
	if services.GoogleSignIn != nil && services.GoogleSignIn.ReservedClientID != "" {
		appendURLScheme(doc, services.GoogleSignIn.ReservedClientID)
	}
	return doc
}

// SetDisplayName writes the manifest name as CFBundleDisplayName.
func SetDisplayName(m *manifest.Manifest, doc plist.Document) plist.Document {
	if m.Name == "" {
		return doc
	}
	doc[KeyDisplayName] = m.Name
	return doc
}

// SetOrientation writes the supported interface orientations.
func SetOrientation(m *manifest.Manifest, doc plist.Document) plist.Document {
	var orientations []any
	switch m.Orientation {
	case "landscape":
		orientations = []any{"UIInterfaceOrientationLandscapeLeft", "UIInterfaceOrientationLandscapeRight"}
	case "portrait":
		orientations = []any{"UIInterfaceOrientationPortrait", "UIInterfaceOrientationPortraitUpsideDown"}
	default:
		orientations = []any{
			"UIInterfaceOrientationPortrait",
			"UIInterfaceOrientationPortraitUpsideDown",
			"UIInterfaceOrientationLandscapeLeft",
			"UIInterfaceOrientationLandscapeRight",
		}
	}
	doc[KeySupportedOrientations] = orientations
	return doc
}

// SetRequiresFullScreen writes UIRequiresFullScreen.
func SetRequiresFullScreen(m *manifest.Manifest, doc plist.Document) plist.Document {
	doc[KeyRequiresFullScreen] = m.IOSSection().RequireFullScreen
	return doc
}

// SetScheme registers the manifest scheme as a URL type.
func SetScheme(m *manifest.Manifest, doc plist.Document) plist.Document {
	if m.Scheme == "" {
		return doc
	}
	appendURLScheme(doc, m.Scheme)
	return doc
}

// SetUserInterfaceStyle writes UIUserInterfaceStyle; ios.userInterfaceStyle
// overrides the shared value.
func SetUserInterfaceStyle(m *manifest.Manifest, doc plist.Document) plist.Document {
	style := m.IOSSection().UserInterfaceStyle
	if style == "" {
		style = m.UserInterfaceStyle
	}
	switch style {
	case "light":
		doc[KeyUserInterfaceStyle] = "Light"
	case "dark":
		doc[KeyUserInterfaceStyle] = "Dark"
	case "automatic":
		doc[KeyUserInterfaceStyle] = "Automatic"
	}
	return doc
}

// SetUsesNonExemptEncryption writes the export-compliance flag when declared.
func SetUsesNonExemptEncryption(m *manifest.Manifest, doc plist.Document) plist.Document {
	if v := m.IOSServices().UsesNonExemptEncryption; v != nil {
		doc[KeyNonExemptEncryption] = *v
	}
	return doc
}

// SetBuildNumber writes CFBundleVersion, defaulting to "1".
func SetBuildNumber(m *manifest.Manifest, doc plist.Document) plist.Document {
	build := m.IOSSection().BuildNumber
	if build == "" {
		build = defaultBuildNumber
	}
	doc[KeyBundleVersion] = build
	return doc
}

// SetVersion writes CFBundleShortVersionString, defaulting to "1.0.0".
func SetVersion(m *manifest.Manifest, doc plist.Document) plist.Document {
	version := m.Version
	if version == "" {
		version = defaultVersion
	}
	doc[KeyShortVersion] = version
	return doc
}

// SetBundleIdentifier writes CFBundleIdentifier.
func SetBundleIdentifier(m *manifest.Manifest, doc plist.Document) plist.Document {
	if id := m.BundleIdentifier(); id != "" {
		doc[KeyBundleIdentifier] = id
	}
	return doc
}

// appendURLScheme adds a URL type for scheme unless one already lists it.
func appendURLScheme(doc plist.Document, scheme string) {
	types, _ := doc.Array(KeyURLTypes)
	for _, t := range types {
		entry, ok := asDocument(t)
		if !ok {
			continue
		}
		for _, s := range entry.StringArray(KeyURLSchemes) {
			if s == scheme {
				return
			}
		}
	}
	types = append(types, plist.Document{KeyURLSchemes: []any{scheme}})
	doc[KeyURLTypes] = types
}

func asDocument(v any) (plist.Document, bool) {
	switch t := v.(type) {
	case plist.Document:
		return t, true
	case map[string]any:
		return plist.Document(t), true
	}
	return nil, false
}
