package entities

import "time"

type User struct {
	ID           uint64
	Username     string
	FullName     string
	PasswordHash string
	RoleID       uint64
	RoleCode     string
	IsSuperuser  bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
