package access

import (
	"fmt"
	"strings"
)

// Level of access granted on a document.
type Level int

const (
	Read  Level = 0
	Write Level = 1
	Admin Level = 2
)

func (lvl Level) String() string {
	switch lvl {
	case Read:
		return "read"
	case Write:
		return "write"
	case Admin:
		return "admin"
	}
	return fmt.Sprintf("level(%d)", int(lvl))
}

// ParseLevel reads a level either from its name or its numeric value.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "read":
		return Read, nil
	case "1", "write":
		return Write, nil
	case "2", "admin":
		return Admin, nil
	}
	return 0, fmt.Errorf("invalid access level %q", s)
}

// Entry grants a level to a principal, either a user or a group.
type Entry struct {
	ID    string `json:"id"`
	Level Level  `json:"level"`
}

// ACL holds the user and group entries of a document.
type ACL struct {
	Users  []Entry `json:"users"`
	Groups []Entry `json:"groups"`
}

// Principal is the subject of an access check.
type Principal interface {
	PrincipalID() string
	IsAdmin() bool
	GroupIDs() []string
}

// Controlled is implemented by documents carrying an ACL.
type Controlled interface {
	ACL() *ACL
	IsPublic() bool
}

// HasAccess tells whether the principal holds at least lvl on the document.
// A nil principal is an anonymous user.
func HasAccess(doc Controlled, p Principal, lvl Level) bool {
	if p != nil && p.IsAdmin() {
		return true
	}
	if lvl == Read && doc.IsPublic() {
		return true
	}
	if p == nil {
		return false
	}
	acl := doc.ACL()
	if l, ok := find(acl.Users, p.PrincipalID()); ok && l >= lvl {
		return true
	}
	for _, gid := range p.GroupIDs() {
		if l, ok := find(acl.Groups, gid); ok && l >= lvl {
			return true
		}
	}
	return false
}

// UserLevel returns the level directly granted to the user, if any.
func (acl *ACL) UserLevel(id string) (Level, bool) {
	return find(acl.Users, id)
}

// GroupLevel returns the level granted to the group, if any.
func (acl *ACL) GroupLevel(id string) (Level, bool) {
	return find(acl.Groups, id)
}

// SetUserAccess grants lvl to the user, or revokes any access when lvl is nil.
// It returns whether the ACL changed.
func (acl *ACL) SetUserAccess(id string, lvl *Level) bool {
	return set(&acl.Users, id, lvl)
}

// SetGroupAccess grants lvl to the group, or revokes any access when lvl is nil.
// It returns whether the ACL changed.
func (acl *ACL) SetGroupAccess(id string, lvl *Level) bool {
	return set(&acl.Groups, id, lvl)
}

// Clone returns a deep copy of the ACL.
func (acl ACL) Clone() ACL {
	out := ACL{
		Users:  make([]Entry, len(acl.Users)),
		Groups: make([]Entry, len(acl.Groups)),
	}
	copy(out.Users, acl.Users)
	copy(out.Groups, acl.Groups)
	return out
}

// FullAccessList returns the user entries holding at least lvl.
func (acl *ACL) FullAccessList(lvl Level) []Entry {
	out := []Entry{}
	for _, e := range acl.Users {
		if e.Level >= lvl {
			out = append(out, e)
		}
	}
	return out
}

// Ptr is a helper to pass a level to the setters.
func Ptr(lvl Level) *Level {
	return &lvl
}

func find(entries []Entry, id string) (Level, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e.Level, true
		}
	}
	return 0, false
}

func set(entries *[]Entry, id string, lvl *Level) bool {
	for i, e := range *entries {
		if e.ID != id {
			continue
		}
		if lvl == nil {
			*entries = append((*entries)[:i], (*entries)[i+1:]...)
			return true
		}
		if e.Level == *lvl {
			return false
		}
		(*entries)[i].Level = *lvl
		return true
	}
	if lvl == nil {
		return false
	}
	*entries = append(*entries, Entry{ID: id, Level: *lvl})
	return true
}
