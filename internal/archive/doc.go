// Package archive expands zip files dropped into a staging root.
//
// Archives still being uploaded are detected by comparing two size
// observations taken a settle interval apart and are left for the next run.
// Each settled archive is integrity-tested and then extracted into a fresh
// directory under the extraction scratch area, where export bundles are
// flattened by the takeout package.
package archive
