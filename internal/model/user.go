package model

import "time"

type Role string

const (
	RoleParent Role = "PARENT"
	RoleChild  Role = "CHILD"
)

type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	FamilyID  int64      `json:"family_id"`
	Age       *int       `json:"age,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
