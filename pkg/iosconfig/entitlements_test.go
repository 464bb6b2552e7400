package iosconfig

import (
	"reflect"
	"testing"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

func TestSetICloudEntitlement(t *testing.T) {
	m := &manifest.Manifest{IOS: &manifest.IOS{BundleIdentifier: "com.x.myapp", UsesIcloudStorage: true}}
	doc := SetICloudEntitlement(m, "ABCDE12345", plist.New())

	if got := doc.StringArray(KeyICloudContainers); !reflect.DeepEqual(got, []string{"iCloud.com.x.myapp"}) {
		t.Errorf("containers = %v", got)
	}
	if got := doc.StringArray(KeyICloudServices); !reflect.DeepEqual(got, []string{"CloudDocuments"}) {
		t.Errorf("services = %v", got)
	}
	if got := doc.String(KeyUbiquityKVStore); got != "ABCDE12345.com.x.myapp" {
		t.Errorf("kvstore = %q", got)
	}

	off := SetICloudEntitlement(&manifest.Manifest{IOS: &manifest.IOS{BundleIdentifier: "com.x.myapp"}}, "T", plist.New())
	if len(off) != 0 {
		t.Errorf("expected no entitlements when iCloud is off, got %v", off)
	}
}

func TestOtherEntitlements(t *testing.T) {
	m := &manifest.Manifest{IOS: &manifest.IOS{
		UsesAppleSignIn:      true,
		AccessesContactNotes: true,
		AssociatedDomains:    []string{"applinks:example.com", "webcredentials:example.com"},
	}}
	doc := SetAssociatedDomains(m, SetAccessesContactNotes(m, SetAppleSignInEntitlement(m, plist.New())))

	if got := doc.StringArray(KeyAppleSignIn); !reflect.DeepEqual(got, []string{"Default"}) {
		t.Errorf("apple sign in = %v", got)
	}
	if v, ok := doc.Bool(KeyContactNotes); !ok || !v {
		t.Errorf("contact notes = %v", doc[KeyContactNotes])
	}
	if got := doc.StringArray(KeyAssociatedDomains); len(got) != 2 {
		t.Errorf("associated domains = %v", got)
	}
}

func TestUpdatesURL(t *testing.T) {
	tests := []struct {
		name     string
		m        *manifest.Manifest
		username string
		want     string
	}{
		{"explicit url", &manifest.Manifest{Slug: "s", Updates: &manifest.Updates{URL: "https://u.example/m"}}, "jane", "https://u.example/m"},
		{"owner", &manifest.Manifest{Slug: "s", Owner: "team"}, "jane", "https://exp.host/@team/s"},
		{"username", &manifest.Manifest{Slug: "s"}, "jane", "https://exp.host/@jane/s"},
		{"anonymous", &manifest.Manifest{Slug: "s"}, "", "https://exp.host/@anonymous/s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpdatesURL(tt.m, tt.username); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetUpdatesConfig(t *testing.T) {
	timeout := 3000
	m := &manifest.Manifest{
		Slug:       "app",
		SDKVersion: "40.0.0",
		Updates: &manifest.Updates{
			Enabled:                boolPtr(false),
			CheckAutomatically:     "ON_ERROR_RECOVERY",
			FallbackToCacheTimeout: &timeout,
		},
	}
	doc := SetUpdatesConfig(m, plist.Document{KeyUpdatesRuntimeVersion: "stale"}, "jane")

	if v, _ := doc.Bool(KeyUpdatesEnabled); v {
		t.Error("expected updates disabled")
	}
	if doc.String(KeyUpdatesCheckOnLaunch) != "NEVER" {
		t.Errorf("check on launch = %v", doc[KeyUpdatesCheckOnLaunch])
	}
	if doc[KeyUpdatesLaunchWaitMs] != 3000 {
		t.Errorf("launch wait = %v", doc[KeyUpdatesLaunchWaitMs])
	}
	if doc.String(KeyUpdatesSDKVersion) != "40.0.0" {
		t.Errorf("sdk version = %v", doc[KeyUpdatesSDKVersion])
	}
	if _, ok := doc[KeyUpdatesRuntimeVersion]; ok {
		t.Error("runtime version must be removed when the SDK version is used")
	}
	if doc.String(KeyUpdatesURL) != "https://exp.host/@jane/app" {
		t.Errorf("url = %v", doc[KeyUpdatesURL])
	}
}

func TestSetUpdatesConfigDefaults(t *testing.T) {
	doc := SetUpdatesConfig(&manifest.Manifest{Slug: "app", RuntimeVersion: "1.0"}, plist.New(), "")

	if v, _ := doc.Bool(KeyUpdatesEnabled); !v {
		t.Error("updates are enabled by default")
	}
	if doc.String(KeyUpdatesCheckOnLaunch) != "ALWAYS" {
		t.Errorf("check on launch = %v", doc[KeyUpdatesCheckOnLaunch])
	}
	if doc[KeyUpdatesLaunchWaitMs] != 0 {
		t.Errorf("launch wait = %v", doc[KeyUpdatesLaunchWaitMs])
	}
	if doc.String(KeyUpdatesRuntimeVersion) != "1.0" {
		t.Errorf("runtime version = %v", doc[KeyUpdatesRuntimeVersion])
	}
}
