// Package media recognizes photo and video files and finds the staging
// folders worth uploading.
//
// Classification is by file extension only; content is never sniffed. Walk
// performs a bounded, ordered directory traversal and EligibleFolders turns
// it into the upload job list.
package media
