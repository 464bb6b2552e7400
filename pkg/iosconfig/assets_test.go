package iosconfig

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/manifest"
)

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, size, size))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestPlaceIcons(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "icon.png"), 16)
	iconDir := filepath.Join(root, "ios", "MyApp", "Images.xcassets", "AppIcon.appiconset")

	m := &manifest.Manifest{Icon: "./icon.png"}
	if err := NewAssets(zerolog.Nop()).PlaceIcons(context.Background(), m, root, iconDir); err != nil {
		t.Fatalf("PlaceIcons failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(iconDir, AppIconFileName)); err != nil {
		t.Errorf("icon not copied: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(iconDir, ContentsFileName))
	if err != nil {
		t.Fatalf("read Contents.json: %v", err)
	}
	var contents catalogContents
	if err := json.Unmarshal(data, &contents); err != nil {
		t.Fatalf("parse Contents.json: %v", err)
	}
	if len(contents.Images) != 1 || contents.Images[0].Size != "1024x1024" || contents.Info.Version != 1 {
		t.Errorf("unexpected contents %+v", contents)
	}
}

func TestPlaceIconsWithoutIcon(t *testing.T) {
	root := t.TempDir()
	iconDir := filepath.Join(root, "icons")
	if err := NewAssets(zerolog.Nop()).PlaceIcons(context.Background(), &manifest.Manifest{}, root, iconDir); err != nil {
		t.Fatalf("PlaceIcons failed: %v", err)
	}
	if _, err := os.Stat(iconDir); !os.IsNotExist(err) {
		t.Error("nothing should be written without an icon")
	}
}

func TestPlaceIconsMissingFile(t *testing.T) {
	root := t.TempDir()
	m := &manifest.Manifest{Icon: "missing.png"}
	if err := NewAssets(zerolog.Nop()).PlaceIcons(context.Background(), m, root, filepath.Join(root, "icons")); err == nil {
		t.Fatal("expected error for a missing icon")
	}
}

func TestPlaceSplashScreen(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "splash.png"), 4)
	native := filepath.Join(root, "ios", "MyApp")

	m := &manifest.Manifest{
		Splash: &manifest.Splash{Image: "splash.png", BackgroundColor: "#000000"},
		IOS:    &manifest.IOS{Splash: &manifest.Splash{Image: "splash.png", BackgroundColor: "#ff0000"}},
	}
	if err := NewAssets(zerolog.Nop()).PlaceSplashScreen(context.Background(), m, root, native); err != nil {
		t.Fatalf("PlaceSplashScreen failed: %v", err)
	}

	catalog := filepath.Join(native, "Images.xcassets")
	if _, err := os.Stat(filepath.Join(catalog, SplashImageSetDir, SplashImageFileName)); err != nil {
		t.Errorf("splash image missing: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(catalog, SplashBackgroundSetDir, ContentsFileName))
	if err != nil {
		t.Fatalf("read colorset: %v", err)
	}
	var contents catalogContents
	if err := json.Unmarshal(data, &contents); err != nil {
		t.Fatalf("parse colorset: %v", err)
	}
	if got := contents.Colors[0].Color.Components["red"]; got != "1.000" {
		t.Errorf("ios splash override should win, red = %q", got)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		red     string
		alpha   string
		wantErr bool
	}{
		{"#FFFFFF", "1.000", "1.000", false},
		{"#000", "0.000", "1.000", false},
		{"ff000080", "1.000", "0.502", false},
		{"#12345", "", "", true},
		{"#GGGGGG", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got["red"] != tt.red || got["alpha"] != tt.alpha {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestPlaceLocales(t *testing.T) {
	root := t.TempDir()
	native := filepath.Join(root, "ios", "MyApp")
	if err := os.WriteFile(filepath.Join(root, "fr.json"), []byte(`{"CFBundleDisplayName": "Mon App", "count": 3}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := &manifest.Manifest{Locales: map[string]any{
		"fr": "./fr.json",
		"de": map[string]any{"NSCameraUsageDescription": `Kamera "bitte"`},
	}}
	if err := NewAssets(zerolog.Nop()).PlaceLocales(context.Background(), m, root, native); err != nil {
		t.Fatalf("PlaceLocales failed: %v", err)
	}

	fr, err := os.ReadFile(filepath.Join(native, "Supporting", "fr.lproj", LocaleStringsFileName))
	if err != nil {
		t.Fatalf("read fr: %v", err)
	}
	if string(fr) != "\"CFBundleDisplayName\" = \"Mon App\";\n" {
		t.Errorf("unexpected fr strings %q", fr)
	}

	de, err := os.ReadFile(filepath.Join(native, "Supporting", "de.lproj", LocaleStringsFileName))
	if err != nil {
		t.Fatalf("read de: %v", err)
	}
	if !strings.Contains(string(de), `"Kamera \"bitte\""`) {
		t.Errorf("quotes must be escaped: %q", de)
	}
}
