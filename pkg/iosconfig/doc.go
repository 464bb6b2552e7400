// Package iosconfig is the catalog of iOS configuration changes derived from
// an application manifest.
//
// Document transforms (Info.plist, Expo.plist and entitlements) are plain
// functions of the manifest and the current document. They are composed
// into pipelines by the engine package.
//
// Project holds the changes made to project.pbxproj and the Google services
// file. Assets copies icons, splash screen images and localized strings
// into the native project.
package iosconfig
