package model

import (
	"time"

	"github.com/ctfer-io/covalic/pkg/access"
)

// Folder is a flat container of files. Submissions and phases ground
// truths are folders.
type Folder struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatorID   string     `json:"creatorId"`
	Public      bool       `json:"public"`
	Access      access.ACL `json:"access"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`
}

func (f *Folder) ACL() *access.ACL { return &f.Access }
func (f *Folder) IsPublic() bool   { return f.Public }

type File struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType"`
	SHA256    string    `json:"sha256"`
	CreatorID string    `json:"creatorId"`
	Created   time.Time `json:"created"`
}
