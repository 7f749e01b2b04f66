// Package daemonrun wires pipeline components from configuration and hosts
// the long-running daemon process used by gamedeckd and `gamedeck daemon`.
package daemonrun
