// Package installer turns downloaded zip archives into installed titles.
//
// DirectInstall streams an archive from a direct-download API into a
// uniquely named temp file and extracts it under the install root. The
// destination folder is only created once the download has finished.
// BatchInstall sweeps a downloads folder and extracts every zip archive it
// finds, one at a time, deleting each archive after a clean extraction and
// leaving failed ones in place for the user to inspect.
//
// Both operations hold an advisory lock in the install root so concurrent
// CLI and daemon installs never extract into the same tree, and both report
// through Outcome instead of returning errors.
package installer
