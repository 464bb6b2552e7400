package iosconfig

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/manifest"
)

// Asset catalog names.
const (
	AssetCatalogDir        = "Images.xcassets"
	AppIconFileName        = "App-Icon-1024x1024@1x.png"
	SplashImageSetDir      = "SplashScreen.imageset"
	SplashImageFileName    = "splashscreen.png"
	SplashBackgroundSetDir = "SplashScreenBackground.colorset"
	ContentsFileName       = "Contents.json"
	LocaleStringsFileName  = "InfoPlist.strings"

	appIconSize = 1024
)

type catalogInfo struct {
	Version int    `json:"version"`
	Author  string `json:"author"`
}

type catalogImage struct {
	Filename string `json:"filename,omitempty"`
	Idiom    string `json:"idiom"`
	Platform string `json:"platform,omitempty"`
	Size     string `json:"size,omitempty"`
	Scale    string `json:"scale,omitempty"`
}

type catalogColor struct {
	Idiom string `json:"idiom"`
	Color struct {
		ColorSpace string            `json:"color-space"`
		Components map[string]string `json:"components"`
	} `json:"color"`
}

type catalogContents struct {
	Images []catalogImage `json:"images,omitempty"`
	Colors []catalogColor `json:"colors,omitempty"`
	Info   catalogInfo    `json:"info"`
}

var defaultInfo = catalogInfo{Version: 1, Author: "expo"}

// Assets copies icons, splash screens and localized strings into the native project.
type Assets struct {
	logger zerolog.Logger
}

// NewAssets creates an asset placer.
func NewAssets(logger zerolog.Logger) *Assets {
	return &Assets{logger: logger.With().Str("component", "assets").Logger()}
}

// PlaceIcons copies the app icon into iconDir as a single 1024x1024
// universal image and writes the icon set's Contents.json.
func (a *Assets) PlaceIcons(_ context.Context, m *manifest.Manifest, projectRoot, iconDir string) error {
	icon := m.IconFor()
	if icon == "" {
		a.logger.Debug().Msg("No icon configured, skipping")
		return nil
	}

	src := resolveAsset(projectRoot, icon)
	width, height, err := imageSize(src)
	if err != nil {
		return fmt.Errorf("failed to read icon %s: %w", src, err)
	}
	if width != appIconSize || height != appIconSize {
		a.logger.Warn().
			Str("icon", src).
			Int("width", width).
			Int("height", height).
			Msg("App icon should be 1024x1024")
	}

	if err := copyFile(src, filepath.Join(iconDir, AppIconFileName)); err != nil {
		return err
	}
	contents := catalogContents{
		Images: []catalogImage{{
			Filename: AppIconFileName,
			Idiom:    "universal",
			Platform: "ios",
			Size:     fmt.Sprintf("%dx%d", appIconSize, appIconSize),
		}},
		Info: defaultInfo,
	}
	return writeContents(filepath.Join(iconDir, ContentsFileName), contents)
}

// PlaceSplashScreen writes the splash image set and background color set
// into the native project's asset catalog.
func (a *Assets) PlaceSplashScreen(_ context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error {
	splash := m.SplashFor()
	if splash == nil || (splash.Image == "" && splash.BackgroundColor == "") {
		a.logger.Debug().Msg("No splash screen configured, skipping")
		return nil
	}
	catalog := filepath.Join(nativeDir, AssetCatalogDir)

	if splash.Image != "" {
		src := resolveAsset(projectRoot, splash.Image)
		setDir := filepath.Join(catalog, SplashImageSetDir)
		if err := copyFile(src, filepath.Join(setDir, SplashImageFileName)); err != nil {
			return err
		}
		contents := catalogContents{
			Images: []catalogImage{
				{Filename: SplashImageFileName, Idiom: "universal", Scale: "1x"},
				{Idiom: "universal", Scale: "2x"},
				{Idiom: "universal", Scale: "3x"},
			},
			Info: defaultInfo,
		}
		if err := writeContents(filepath.Join(setDir, ContentsFileName), contents); err != nil {
			return err
		}
	}

	color := splash.BackgroundColor
	if color == "" {
		color = "#FFFFFF"
	}
	components, err := ParseHexColor(color)
	if err != nil {
		return err
	}
	entry := catalogColor{Idiom: "universal"}
	entry.Color.ColorSpace = "srgb"
	entry.Color.Components = components
	return writeContents(
		filepath.Join(catalog, SplashBackgroundSetDir, ContentsFileName),
		catalogContents{Colors: []catalogColor{entry}, Info: defaultInfo},
	)
}

// PlaceLocales writes <lang>.lproj/InfoPlist.strings for every entry of
// the manifest's locales. An entry is either a path to a JSON file or an
// inline object of string values.
func (a *Assets) PlaceLocales(_ context.Context, m *manifest.Manifest, projectRoot, nativeDir string) error {
	if len(m.Locales) == 0 {
		return nil
	}

	langs := make([]string, 0, len(m.Locales))
	for lang := range m.Locales {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		values, err := localeValues(projectRoot, m.Locales[lang])
		if err != nil {
			return fmt.Errorf("locale %s: %w", lang, err)
		}
		dir := filepath.Join(nativeDir, "Supporting", lang+".lproj")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		path := filepath.Join(dir, LocaleStringsFileName)
		if err := os.WriteFile(path, []byte(FormatStrings(values)), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		a.logger.Debug().Str("lang", lang).Int("keys", len(values)).Msg("Wrote localized strings")
	}
	return nil
}

func localeValues(projectRoot string, entry any) (map[string]string, error) {
	var raw map[string]any
	switch v := entry.(type) {
	case string:
		data, err := os.ReadFile(resolveAsset(projectRoot, v))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", v, err)
		}
	case map[string]any:
		raw = v
	default:
		return nil, fmt.Errorf("unsupported locale entry of type %T", entry)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	return values, nil
}

// FormatStrings renders values as an Apple .strings file with sorted keys.
func FormatStrings(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s;\n", strconv.Quote(k), strconv.Quote(values[k]))
	}
	return b.String()
}

// ParseHexColor converts #RGB, #RRGGBB or #RRGGBBAA into asset catalog
// color components.
func ParseHexColor(hex string) (map[string]string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "FF"
	}
	if len(s) != 8 {
		return nil, fmt.Errorf("invalid color %q", hex)
	}

	channel := func(i int) (string, error) {
		v, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid color %q: %w", hex, err)
		}
		return strconv.FormatFloat(float64(v)/255, 'f', 3, 64), nil
	}

	components := make(map[string]string, 4)
	for i, name := range []string{"red", "green", "blue", "alpha"} {
		c, err := channel(i * 2)
		if err != nil {
			return nil, err
		}
		components[name] = c
	}
	return components, nil
}

func resolveAsset(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func writeContents(path string, contents catalogContents) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
