// Package fileutil holds the small filesystem checks shared by the installer
// and the preflight report.
package fileutil
