// Package gzip wraps the compression codec used by background workers.
// The codec's contract is deliberately narrow: compress bytes, return
// bytes or fail.
package gzip
