// Package upload drives the external upload client over the eligible
// folders, one folder at a time with a pause in between.
//
// A folder is deleted only after the client exits with status 0 and deletion
// is enabled; any other outcome keeps it for the next run.
package upload
