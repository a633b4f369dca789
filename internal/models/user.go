package models

import "time"

// User is a row of the users table.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email,omitempty"`
	Phone          string     `db:"phone" json:"phone,omitempty"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	ProfilePicture *string    `db:"profile_picture" json:"profilePicture"`
	Bio            *string    `db:"bio" json:"bio"`
	IsOnline       bool       `db:"is_online" json:"isOnline"`
	LastSeen       *time.Time `db:"last_seen" json:"lastSeen"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"-"`
}

// Public strips contact details for profiles viewed by someone else.
func (u User) Public() User {
	u.Email = ""
	u.Phone = ""
	return u
}

// Presence is the durable online state of a user.
type Presence struct {
	UserID   int64      `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

// NewUser carries a registration that passed validation.
type NewUser struct {
	Username     string
	Email        string
	Phone        string
	PasswordHash string
}

// ProfileUpdate holds optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Bio == nil && p.ProfilePicture == nil
}

// UserPage is one page of user search results.
type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}
