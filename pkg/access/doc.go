/*
Package access implements the access control lists carried by every
access-controlled document (challenges, phases, folders, groups).

A document grants a Level to users and groups. A user passes a check
when it is a site admin, when the document is public and only READ is
required, or when the user or one of its groups holds at least the
requested level.
*/
package access
