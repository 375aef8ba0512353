package models

import "time"

// SpaceRole is the role an identity holds inside a document space.
type SpaceRole string

const (
	SpaceRoleOwner   SpaceRole = "owner"
	SpaceRoleManager SpaceRole = "manager"
	SpaceRoleWriter  SpaceRole = "writer"
	SpaceRoleNone    SpaceRole = "none"
)

// MemberKind selects one of the two collaborator sets of a space.
type MemberKind string

const (
	MemberKindManager MemberKind = "manager"
	MemberKindWriter  MemberKind = "writer"
)

// Valid reports whether the kind is a known collaborator set.
func (k MemberKind) Valid() bool {
	return k == MemberKindManager || k == MemberKindWriter
}

// Role maps the collaborator set onto the space role it grants.
func (k MemberKind) Role() SpaceRole {
	if k == MemberKindManager {
		return SpaceRoleManager
	}
	return SpaceRoleWriter
}

// DocumentSpace is the per-owner container of data files and collaborators.
type DocumentSpace struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SpaceSummary is a space listed together with its owner details.
type SpaceSummary struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	OwnerEmail string    `db:"owner_email" json:"owner_email"`
	OwnerFirst string    `db:"owner_first_name" json:"owner_first_name"`
	OwnerLast  string    `db:"owner_last_name" json:"owner_last_name"`
	Role       SpaceRole `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SpaceMember is a manager or writer of a space.
type SpaceMember struct {
	UserID    string     `db:"user_id" json:"user_id"`
	Email     string     `db:"email" json:"email"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Kind      MemberKind `db:"kind" json:"kind"`
}

// Membership lists which collaborator sets an identity belongs to.
type Membership struct {
	Manager bool
	Writer  bool
}
