package model

import (
	"time"

	"github.com/ctfer-io/covalic/pkg/access"
)

type User struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Admin     bool      `json:"admin"`
	Groups    []string  `json:"groups"`
	Salt      string    `json:"salt"`
	Created   time.Time `json:"created"`
}

var _ access.Principal = (*User)(nil)

// Principal methods accept a nil user, which is anonymous.
func (u *User) PrincipalID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Admin
}

func (u *User) GroupIDs() []string {
	if u == nil {
		return nil
	}
	return u.Groups
}

// Name returns the user full name.
func (u *User) Name() string {
	return u.FirstName + " " + u.LastName
}

// InGroup tells whether the user is a member of the group.
func (u *User) InGroup(id string) bool {
	if u == nil {
		return false
	}
	for _, gid := range u.Groups {
		if gid == id {
			return true
		}
	}
	return false
}

// UserView is the public projection of a user, without credentials.
type UserView struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Admin     bool      `json:"admin"`
	Groups    []string  `json:"groups,omitempty"`
	Created   time.Time `json:"created"`
}

// View projects the user for the viewer. Email and groups are only
// shown to the user itself and to site admins.
func (u *User) View(viewer *User) *UserView {
	v := &UserView{
		ID:        u.ID,
		Login:     u.Login,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Admin:     u.Admin,
		Created:   u.Created,
	}
	if viewer != nil && (viewer.Admin || viewer.ID == u.ID) {
		v.Email = u.Email
		v.Groups = u.Groups
	}
	return v
}

type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Public      bool       `json:"public"`
	Access      access.ACL `json:"access"`
	Created     time.Time  `json:"created"`
}

func (g *Group) ACL() *access.ACL { return &g.Access }
func (g *Group) IsPublic() bool   { return g.Public }

type Token struct {
	ID      string    `json:"id"`
	UserID  string    `json:"userId"`
	Scope   string    `json:"scope,omitempty"`
	Created time.Time `json:"created"`
	Expires time.Time `json:"expires"`
}

// Expired tells whether the token can no longer be used at the given time.
func (t *Token) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
