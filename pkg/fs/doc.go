/*
Package fs wraps filesystem operations to provide a simple and resilient API.

It holds two layouts under the root directory:
  - "<root>/db/<collection>/<hash(id)>.json" for documents;
  - "<root>/assetstore/<hash(fileId)>" for file contents.

Writes go through a temporary file then a rename, so a concurrent reader
either sees the previous or the new content, never a partial one.
The storage is based on a filesystem, future works could move the assets
to an object store such a S3-compliant solution.
*/
package fs
