// Command gamedeckd keeps the library snapshot fresh and serves the local
// HTTP API.
package main
