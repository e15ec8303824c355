package model

import (
	"time"

	"github.com/ctfer-io/covalic/pkg/access"
)

type Challenge struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	Organizers   string     `json:"organizers"`
	CreatorID    string     `json:"creatorId"`
	Public       bool       `json:"public"`
	Access       access.ACL `json:"access"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Created      time.Time  `json:"created"`
	Updated      time.Time  `json:"updated"`
}

func (c *Challenge) ACL() *access.ACL { return &c.Access }
func (c *Challenge) IsPublic() bool   { return c.Public }
