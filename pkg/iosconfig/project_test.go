package iosconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

const samplePbxproj = `// !$*UTF8*$!
{
	objects = {
/* Begin XCBuildConfiguration section */
		13B07F941A680F5B00A75B9A /* Debug */ = {
			isa = XCBuildConfiguration;
			buildSettings = {
				INFOPLIST_FILE = MyApp/Info.plist;
				PRODUCT_BUNDLE_IDENTIFIER = "org.reactjs.native.example.$(PRODUCT_NAME:rfc1034identifier)";
				PRODUCT_NAME = MyApp;
				TARGETED_DEVICE_FAMILY = 1;
			};
			name = Debug;
		};
		00E356F61AD99517003FC87E /* Debug */ = {
			isa = XCBuildConfiguration;
			buildSettings = {
				PRODUCT_BUNDLE_IDENTIFIER = "org.reactjs.native.example.$(PRODUCT_NAME:rfc1034identifier)";
				TEST_HOST = "$(BUILT_PRODUCTS_DIR)/MyApp.app/MyApp";
			};
			name = Debug;
		};
/* End XCBuildConfiguration section */
	};
}
`

func writeProject(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "ios", "MyApp.xcodeproj")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "project.pbxproj")
	if err := os.WriteFile(path, []byte(samplePbxproj), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestSetBundleIdentifierInProject(t *testing.T) {
	root := t.TempDir()
	path := writeProject(t, root)

	if err := NewProject(zerolog.Nop()).SetBundleIdentifier(context.Background(), root, "com.x.myapp"); err != nil {
		t.Fatalf("SetBundleIdentifier failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "PRODUCT_BUNDLE_IDENTIFIER = com.x.myapp;") {
		t.Errorf("app target not updated:\n%s", content)
	}
	if strings.Count(content, "org.reactjs.native.example") != 1 {
		t.Errorf("test target must keep its identifier:\n%s", content)
	}
	if !strings.Contains(content, "/* Begin XCBuildConfiguration section */") {
		t.Error("comments must be preserved")
	}
}

func TestSetDeviceFamily(t *testing.T) {
	tests := []struct {
		name string
		ios  *manifest.IOS
		want string
	}{
		{"phone", &manifest.IOS{}, "TARGETED_DEVICE_FAMILY = 1;"},
		{"universal", &manifest.IOS{SupportsTablet: true}, `TARGETED_DEVICE_FAMILY = "1,2";`},
		{"tablet only", &manifest.IOS{SupportsTablet: true, IsTabletOnly: true}, "TARGETED_DEVICE_FAMILY = 2;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := writeProject(t, root)

			if err := NewProject(zerolog.Nop()).SetDeviceFamily(context.Background(), &manifest.Manifest{IOS: tt.ios}, root); err != nil {
				t.Fatalf("SetDeviceFamily failed: %v", err)
			}
			data, _ := os.ReadFile(path)
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, data)
			}
		})
	}
}

func TestProjectWithoutXcodeProject(t *testing.T) {
	p := NewProject(zerolog.Nop())
	root := t.TempDir()
	if err := p.SetBundleIdentifier(context.Background(), root, "com.x.myapp"); err != nil {
		t.Errorf("expected missing project to be skipped, got %v", err)
	}
	if err := p.SetDeviceFamily(context.Background(), &manifest.Manifest{}, root); err != nil {
		t.Errorf("expected missing project to be skipped, got %v", err)
	}
}

func TestSetGoogleServicesFile(t *testing.T) {
	root := t.TempDir()
	native := filepath.Join(root, "ios", "MyApp")
	src := filepath.Join(root, "GoogleService-Info.plist")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict><key>API_KEY</key><string>abc</string></dict></plist>`
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := &manifest.Manifest{IOS: &manifest.IOS{GoogleServicesFile: "./GoogleService-Info.plist"}}
	if err := NewProject(zerolog.Nop()).SetGoogleServicesFile(context.Background(), m, root, native); err != nil {
		t.Fatalf("SetGoogleServicesFile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(native, GoogleServicesFileName)); err != nil {
		t.Errorf("expected copied file: %v", err)
	}
}

func TestSetGoogleServicesFileInvalid(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bad.plist"), []byte("<plist><dict>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := &manifest.Manifest{IOS: &manifest.IOS{GoogleServicesFile: "bad.plist"}}
	err := NewProject(zerolog.Nop()).SetGoogleServicesFile(context.Background(), m, root, filepath.Join(root, "ios", "MyApp"))
	if !errors.Is(err, plist.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}
