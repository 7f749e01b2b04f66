// Package staging finds and removes archives left behind in the download
// staging directory by interrupted installs.
package staging
