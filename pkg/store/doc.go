/*
Package store persists covalic documents.

Documents are JSON encoded and grouped by collection. The storage itself
is a Backend: the filesystem (default, see package fs) or a SQL database
(SQLite or PostgreSQL). Queries load the collection then filter in
memory, which fits the volumes a challenge platform handles.
*/
package store
