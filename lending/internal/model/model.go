package model

import "time"

type Kind string

const (
	KindBook   Kind = "book"
	KindLaptop Kind = "laptop"
)

func (k Kind) Valid() bool {
	return k == KindBook || k == KindLaptop
}

type State string

const (
	StateAvailable State = "available"
	StateBorrowed  State = "borrowed"
)

// Resource is a lendable item. Exactly one of Book or Laptop is set, matching Kind.
type Resource struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	Book      *Book     `json:"book,omitempty"`
	Laptop    *Laptop   `json:"laptop,omitempty"`
}

func (r Resource) Available() bool {
	return r.State == StateAvailable
}

type Book struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Genre  string `json:"genre" validate:"required"`
}

type Laptop struct {
	Brand string `json:"brand" validate:"required"`
	Model string `json:"model" validate:"required"`
}

func NewBook(b Book) Resource {
	return Resource{Kind: KindBook, Book: &b}
}

func NewLaptop(l Laptop) Resource {
	return Resource{Kind: KindLaptop, Laptop: &l}
}

// SearchFields lists the payload columns that may be searched per kind.
var SearchFields = map[Kind][]string{
	KindBook:   {"title", "author", "genre"},
	KindLaptop: {"brand", "model"},
}

func Searchable(kind Kind, field string) bool {
	for _, f := range SearchFields[kind] {
		if f == field {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleUnset   Role = "unset"
)

type User struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name" validate:"required"`
	Email string `json:"email" db:"email" validate:"required,email"`
	Role  Role   `json:"role" db:"role" validate:"omitempty,oneof=student teacher unset"`
}

func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

type LendRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
	UserID     string `json:"userId" validate:"required"`
}

type LendLaptopRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type Availability struct {
	ResourceID string `json:"resourceId"`
	Available  bool   `json:"available"`
}
