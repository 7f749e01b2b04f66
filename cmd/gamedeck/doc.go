// Command gamedeck scans the local game library, looks up artwork, searches
// the catalog and installs downloaded archives.
package main
