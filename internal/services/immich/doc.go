// Package immich implements upload clients for an Immich photo server.
//
// ContainerClient runs the official CLI image through a container runtime
// with the folder mounted read-only. APIClient talks to the server's asset
// endpoint directly and needs no runtime.
package immich
