package iosconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// GoogleServicesFileName is the name the Firebase SDK expects in the native project.
const GoogleServicesFileName = "GoogleService-Info.plist"

var (
	buildSettingsBlock = regexp.MustCompile(`(?s)buildSettings = \{.*?\n\s*\};`)
	bundleIDSetting    = regexp.MustCompile(`(PRODUCT_BUNDLE_IDENTIFIER = )[^;]*;`)
	deviceFamily       = regexp.MustCompile(`(TARGETED_DEVICE_FAMILY = )[^;]*;`)
	unquotedValue      = regexp.MustCompile(`^[A-Za-z0-9_$/:.]+$`)
)

// Project edits the Xcode project of an iOS app. Build settings are edited
// in place so the rest of project.pbxproj keeps its formatting and comments.
type Project struct {
	logger zerolog.Logger
}

// NewProject creates a project mutator.
func NewProject(logger zerolog.Logger) *Project {
	return &Project{logger: logger.With().Str("component", "xcode-project").Logger()}
}

// FindProjectFile returns the project.pbxproj under <root>/ios, or "" when
// the project has none.
func FindProjectFile(projectRoot string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(projectRoot, "ios", "*.xcodeproj", "project.pbxproj"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}

// SetBundleIdentifier writes PRODUCT_BUNDLE_IDENTIFIER in every app build
// configuration. Test targets (those with a TEST_HOST) are left alone.
func (p *Project) SetBundleIdentifier(_ context.Context, projectRoot, bundleID string) error {
	if bundleID == "" {
		return errors.New("bundle identifier is empty")
	}
	return p.editBuildSettings(projectRoot, bundleIDSetting, quote(bundleID))
}

// SetDeviceFamily writes TARGETED_DEVICE_FAMILY: "1" for iPhone, "2" for
// iPad only and "1,2" for universal apps.
func (p *Project) SetDeviceFamily(_ context.Context, m *manifest.Manifest, projectRoot string) error {
	return p.editBuildSettings(projectRoot, deviceFamily, quote(DeviceFamily(m)))
}

// DeviceFamily returns the TARGETED_DEVICE_FAMILY value for m.
func DeviceFamily(m *manifest.Manifest) string {
	ios := m.IOSSection()
	switch {
	case ios.IsTabletOnly:
		return "2"
	case ios.SupportsTablet:
		return "1,2"
	default:
		return "1"
	}
}

// SetGoogleServicesFile copies ios.googleServicesFile into the native
// project directory as GoogleService-Info.plist.
func (p *Project) SetGoogleServicesFile(_ context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error {
	src := m.IOSSection().GoogleServicesFile
	if src == "" {
		return nil
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(projectRoot, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read Google services file: %w", err)
	}
	if _, _, err := plist.Decode(data); err != nil {
		return fmt.Errorf("%w: %s: %v", plist.ErrParse, src, err)
	}

	if err := os.MkdirAll(nativeDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", nativeDir, err)
	}
	dst := filepath.Join(nativeDir, GoogleServicesFileName)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	p.logger.Debug().Str("src", src).Str("dst", dst).Msg("Copied Google services file")
	return nil
}

func (p *Project) editBuildSettings(projectRoot string, setting *regexp.Regexp, value string) error {
	path, err := FindProjectFile(projectRoot)
	if err != nil {
		return err
	}
	if path == "" {
		p.logger.Debug().Str("project_root", projectRoot).Msg("No Xcode project found, skipping build settings")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated, changed := SetBuildSetting(string(data), setting, value)
	if changed == 0 {
		p.logger.Debug().Str("path", path).Str("setting", setting.String()).Msg("Build setting not present")
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	p.logger.Debug().Str("path", path).Int("configurations", changed).Msg("Updated build settings")
	return nil
}

// SetBuildSetting replaces setting with value in every buildSettings block
// that does not belong to a test target. It returns the new source and the
// number of blocks changed.
func SetBuildSetting(source string, setting *regexp.Regexp, value string) (string, int) {
	changed := 0
	out := buildSettingsBlock.ReplaceAllStringFunc(source, func(block string) string {
		if strings.Contains(block, "TEST_HOST") || !setting.MatchString(block) {
			return block
		}
		changed++
		return setting.ReplaceAllString(block, "${1}"+escapeReplacement(value)+";")
	})
	return out, changed
}

func quote(value string) string {
	if unquotedValue.MatchString(value) {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
