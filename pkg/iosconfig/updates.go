package iosconfig

import (
	"fmt"

	"github.com/prebuildkit/prebuild/pkg/manifest"
	"github.com/prebuildkit/prebuild/pkg/plist"
)

// Expo.plist keys.
const (
	KeyUpdatesEnabled        = "EXUpdatesEnabled"
	KeyUpdatesURL            = "EXUpdatesURL"
	KeyUpdatesCheckOnLaunch  = "EXUpdatesCheckOnLaunch"
	KeyUpdatesLaunchWaitMs   = "EXUpdatesLaunchWaitMs"
	KeyUpdatesSDKVersion     = "EXUpdatesSDKVersion"
	KeyUpdatesRuntimeVersion = "EXUpdatesRuntimeVersion"
)

const anonymousUser = "anonymous"

// UpdatesURL returns the update manifest URL: updates.url when set,
// otherwise https://exp.host/@<owner>/<slug> where owner falls back to the
// signed-in username and then "anonymous".
func UpdatesURL(m *manifest.Manifest, username string) string {
	if m.Updates != nil && m.Updates.URL != "" {
		return m.Updates.URL
	}
	owner := m.Owner
	if owner == "" {
		owner = username
	}
	if owner == "" {
		owner = anonymousUser
	}
	return fmt.Sprintf("https://exp.host/@%s/%s", owner, m.Slug)
}

// SetUpdatesConfig writes the over-the-air updates configuration.
func SetUpdatesConfig(m *manifest.Manifest, doc plist.Document, username string) plist.Document {
	updates := m.Updates
	if updates == nil {
		updates = &manifest.Updates{}
	}

	doc[KeyUpdatesEnabled] = updates.Enabled == nil || *updates.Enabled
	doc[KeyUpdatesURL] = UpdatesURL(m, username)

	if updates.CheckAutomatically == "ON_ERROR_RECOVERY" {
		doc[KeyUpdatesCheckOnLaunch] = "NEVER"
	} else {
		doc[KeyUpdatesCheckOnLaunch] = "ALWAYS"
	}

	waitMs := 0
	if updates.FallbackToCacheTimeout != nil {
		waitMs = *updates.FallbackToCacheTimeout
	}
	doc[KeyUpdatesLaunchWaitMs] = waitMs

	switch {
	case m.RuntimeVersion != "":
		doc[KeyUpdatesRuntimeVersion] = m.RuntimeVersion
		doc.Delete(KeyUpdatesSDKVersion)
	case m.SDKVersion != "":
		doc[KeyUpdatesSDKVersion] = m.SDKVersion
		doc.Delete(KeyUpdatesRuntimeVersion)
	}
	return doc
}
