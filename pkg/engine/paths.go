package engine

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/prebuildkit/prebuild/pkg/iosconfig"
	"github.com/prebuildkit/prebuild/pkg/manifest"
)

// Native project layout, relative to the project root.
const (
	IOSDir          = "ios"
	AssetCatalogDir = iosconfig.AssetCatalogDir
	AppIconSetDir   = "AppIcon.appiconset"
	SupportingDir   = "Supporting"
	InfoPlistName   = "Info"
	ExpoPlistName   = "Expo"
	EntitlementsExt = ".entitlements"
)

// Paths is the resolved native project layout.
type Paths struct {
	// ProjectName is the sanitized manifest name.
	ProjectName string `json:"projectName"`

	// NativeProjectDirectory is <root>/ios/<ProjectName>.
	NativeProjectDirectory string `json:"nativeProjectDirectory"`

	// IconAssetDirectory is the app icon set inside the asset catalog.
	IconAssetDirectory string `json:"iconAssetDirectory"`
}

// SupportingDirectory returns the directory holding Expo.plist and the
// localized strings.
func (p Paths) SupportingDirectory() string {
	return filepath.Join(p.NativeProjectDirectory, SupportingDir)
}

var nonWord = regexp.MustCompile(`[\W_]+`)

// SanitizeName reduces a display name to the word characters Xcode accepts
// in a project directory. Accented letters keep their base letter.
func SanitizeName(name string) string {
	decomposed := norm.NFD.String(name)
	stripped := strings.Map(func(r rune) rune {
		if r >= 0x0300 && r <= 0x036F {
			return -1
		}
		return r
	}, decomposed)
	return nonWord.ReplaceAllString(stripped, "")
}

// ResolvePaths derives the native project layout from the manifest name.
func ResolvePaths(projectRoot string, m *manifest.Manifest) (Paths, error) {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return Paths{}, NewFatalError(ErrMissingName.Message, nil).
			WithCode(ErrCodeMissingName).
			WithResource(projectRoot)
	}

	name := SanitizeName(m.Name)
	if name == "" {
		return Paths{}, NewFatalError(ErrMissingName.Message, nil).
			WithCode(ErrCodeMissingName).
			WithResource(projectRoot).
			WithDetail("name", m.Name)
	}

	native := filepath.Join(projectRoot, IOSDir, name)
	return Paths{
		ProjectName:            name,
		NativeProjectDirectory: native,
		IconAssetDirectory:     filepath.Join(native, AssetCatalogDir, AppIconSetDir),
	}, nil
}

// EntitlementsPath locates the entitlements document in the native project
// directory. Without one, it returns the default <ProjectName>.entitlements
// location, which may not exist.
func EntitlementsPath(paths Paths) string {
	matches, _ := filepath.Glob(filepath.Join(paths.NativeProjectDirectory, "*"+EntitlementsExt))
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches[0]
	}
	return filepath.Join(paths.NativeProjectDirectory, paths.ProjectName+EntitlementsExt)
}
