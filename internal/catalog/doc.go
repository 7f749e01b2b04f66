// Package catalog scrapes a community game catalog for titles that are not
// installed yet.
//
// Search reads the listing page and decorates hits with posters. FetchDetails
// turns a detail page into Details: description, size, the download link per
// known host, and the priority and direct-install links derived from the host
// table in hosts.go. Each extraction step reports its own error; the caller
// decides the fallback values.
package catalog
