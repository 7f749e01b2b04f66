// Package testsupport provides config, file and archive fixtures shared by
// package tests.
package testsupport
