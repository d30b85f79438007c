package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrInvalidInput = errors.New("invalid user input")
)

// Record is the persisted shape of a user. ID is assigned by the store on the
// first save; CreatedAt is set once by the service and never rewritten.
type Record struct {
	ID           int64
	Email        string
	UserName     string
	PasswordHash string
	Mobile       string
	FullName     string
	Role         Role
	CreatedAt    time.Time
}

// Request is the payload for create and full update. Every field is written on
// update, so callers must resend the values they want to keep.
type Request struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	UserName string `json:"userName" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Mobile   string `json:"mobile" binding:"omitempty,max=32"`
	FullName string `json:"fullName" binding:"omitempty,max=120"`
	Role     Role   `json:"role" binding:"required,oneof=CUSTOMER ADMIN"`
}

// with pointers, a nil field is left untouched
type PatchRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=254"`
	UserName *string `json:"userName" binding:"omitempty,min=2,max=64"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	Mobile   *string `json:"mobile" binding:"omitempty,max=32"`
	FullName *string `json:"fullName" binding:"omitempty,max=120"`
	Role     *Role   `json:"role" binding:"omitempty,oneof=CUSTOMER ADMIN"`
}

func (p PatchRequest) IsEmpty() bool {
	return p.Email == nil && p.UserName == nil && p.Password == nil &&
		p.Mobile == nil && p.FullName == nil && p.Role == nil
}

type Response struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	Mobile    string    `json:"mobile"`
	FullName  string    `json:"fullName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
