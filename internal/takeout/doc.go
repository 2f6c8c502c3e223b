// Package takeout recognizes bulk export bundles (Google Takeout and similar)
// and flattens them into a plain folder of media files.
//
// Sidecar JSON files and the export's administrative pages are discarded; the
// photo server reads embedded metadata itself.
package takeout
