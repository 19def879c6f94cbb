// Package contentstore persists the site content document on one of three
// mediums and hides which one is active from the rest of the server.
//
// The medium is chosen once per operation by [Store.Select]:
//
//   - [GitBacked] when a GitHub token is configured. Reads and writes go
//     through the contents API; writes carry the blob sha as a
//     compare-and-swap marker and a stale marker fails with [ErrConflict].
//   - [FileBacked] when the local file is present and writable.
//   - [ObjectStoreBacked] otherwise, when a bucket is configured; a missing
//     object falls through to the (read-only) local file.
//
// Writes on the file and object store mediums are last-writer-wins. Every
// write replaces the whole document; there is no replication between
// mediums.
//
// [Manager] sits in front of a Store for page rendering and keeps the last
// document that was read successfully so the site keeps rendering through
// store outages, falling back to the copy embedded at build time.
package contentstore
