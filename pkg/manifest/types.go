package manifest

// Manifest is the resolved application configuration (the "expo" object of
// app.json). It is read-only input to every transform.
type Manifest struct {
	// Name is the display name of the application; it also names the native project.
	Name string `json:"name,omitempty"`

	// Slug is the URL-friendly project name.
	Slug string `json:"slug,omitempty"`

	// Owner is the account that owns the project, when it differs from the signed-in user.
	Owner string `json:"owner,omitempty"`

	// Version is the user-facing version string (CFBundleShortVersionString).
	Version string `json:"version,omitempty"`

	// SDKVersion is the SDK the project targets.
	SDKVersion string `json:"sdkVersion,omitempty"`

	// RuntimeVersion pins update compatibility instead of the SDK version.
	RuntimeVersion string `json:"runtimeVersion,omitempty"`

	// Scheme is the deep-link URL scheme.
	Scheme string `json:"scheme,omitempty"`

	// Orientation is one of "default", "portrait" or "landscape".
	Orientation string `json:"orientation,omitempty"`

	// UserInterfaceStyle is one of "light", "dark" or "automatic".
	UserInterfaceStyle string `json:"userInterfaceStyle,omitempty"`

	// Icon is a path, relative to the project root, to the app icon.
	Icon string `json:"icon,omitempty"`

	Splash  *Splash  `json:"splash,omitempty"`
	Updates *Updates `json:"updates,omitempty"`

	// Locales maps a language code to a JSON file path or an inline object
	// of localized Info.plist strings.
	Locales map[string]any `json:"locales,omitempty"`

	FacebookAppID                         string `json:"facebookAppId,omitempty"`
	FacebookDisplayName                   string `json:"facebookDisplayName,omitempty"`
	FacebookScheme                        string `json:"facebookScheme,omitempty"`
	FacebookAutoInitEnabled               *bool  `json:"facebookAutoInitEnabled,omitempty"`
	FacebookAutoLogAppEventsEnabled       *bool  `json:"facebookAutoLogAppEventsEnabled,omitempty"`
	FacebookAdvertiserIDCollectionEnabled *bool  `json:"facebookAdvertiserIDCollectionEnabled,omitempty"`

	IOS *IOS `json:"ios,omitempty"`
}

// IOS holds the iOS-specific section of the manifest.
type IOS struct {
	BundleIdentifier   string `json:"bundleIdentifier,omitempty"`
	BuildNumber        string `json:"buildNumber,omitempty"`
	SupportsTablet     bool   `json:"supportsTablet,omitempty"`
	IsTabletOnly       bool   `json:"isTabletOnly,omitempty"`
	RequireFullScreen  bool   `json:"requireFullScreen,omitempty"`
	UserInterfaceStyle string `json:"userInterfaceStyle,omitempty"`

	// AppleTeamID is the signing team, needed for iCloud key-value storage.
	AppleTeamID string `json:"appleTeamId,omitempty"`

	// InfoPlist entries are merged verbatim into Info.plist.
	InfoPlist map[string]any `json:"infoPlist,omitempty"`

	GoogleServicesFile   string   `json:"googleServicesFile,omitempty"`
	AssociatedDomains    []string `json:"associatedDomains,omitempty"`
	UsesIcloudStorage    bool     `json:"usesIcloudStorage,omitempty"`
	UsesAppleSignIn      bool     `json:"usesAppleSignIn,omitempty"`
	AccessesContactNotes bool     `json:"accessesContactNotes,omitempty"`

	Icon   string  `json:"icon,omitempty"`
	Splash *Splash `json:"splash,omitempty"`

	Config *IOSConfig `json:"config,omitempty"`
}

// IOSConfig holds third-party service keys.
type IOSConfig struct {
	Branch                  *Branch       `json:"branch,omitempty"`
	GoogleMapsAPIKey        string        `json:"googleMapsApiKey,omitempty"`
	GoogleMobileAdsAppID    string        `json:"googleMobileAdsAppId,omitempty"`
	GoogleMobileAdsAutoInit *bool         `json:"googleMobileAdsAutoInit,omitempty"`
	GoogleSignIn            *GoogleSignIn `json:"googleSignIn,omitempty"`
	UsesNonExemptEncryption *bool         `json:"usesNonExemptEncryption,omitempty"`
}

// Branch holds the Branch SDK configuration.
type Branch struct {
	APIKey string `json:"apiKey,omitempty"`
}

// GoogleSignIn holds the Google Sign-In configuration.
type GoogleSignIn struct {
	ReservedClientID string `json:"reservedClientId,omitempty"`
}

// Splash describes the launch screen.
type Splash struct {
	Image           string `json:"image,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	ResizeMode      string `json:"resizeMode,omitempty"`
}

// Updates configures over-the-air updates.
type Updates struct {
	Enabled                *bool  `json:"enabled,omitempty"`
	URL                    string `json:"url,omitempty"`
	CheckAutomatically     string `json:"checkAutomatically,omitempty"`
	FallbackToCacheTimeout *int   `json:"fallbackToCacheTimeout,omitempty"`
}

// Options controls manifest resolution.
type Options struct {
	// SkipVersionRequirement allows manifests without a resolvable SDK version.
	SkipVersionRequirement bool
}

// BundleIdentifier returns ios.bundleIdentifier, or "" when unset.
func (m *Manifest) BundleIdentifier() string {
	if m == nil || m.IOS == nil {
		return ""
	}
	return m.IOS.BundleIdentifier
}

// IOSSection returns the iOS section, never nil.
func (m *Manifest) IOSSection() *IOS {
	if m == nil || m.IOS == nil {
		return &IOS{}
	}
	return m.IOS
}

// IOSServices returns ios.config, never nil.
func (m *Manifest) IOSServices() *IOSConfig {
	ios := m.IOSSection()
	if ios.Config == nil {
		return &IOSConfig{}
	}
	return ios.Config
}

// SplashFor returns the iOS splash override, falling back to the shared splash.
func (m *Manifest) SplashFor() *Splash {
	if ios := m.IOSSection(); ios.Splash != nil {
		return ios.Splash
	}
	return m.Splash
}

// IconFor returns the iOS icon override, falling back to the shared icon.
func (m *Manifest) IconFor() string {
	if ios := m.IOSSection(); ios.Icon != "" {
		return ios.Icon
	}
	return m.Icon
}
