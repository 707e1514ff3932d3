// Package filestore implements named blob storage on a filesystem root.
// It backs both the incoming upload area and the compressed output area,
// keyed by file name.
package filestore
