package dto

import "github.com/noah-isme/leads-portal-api/internal/models"

// SpaceCreationPhrase must be typed to initialize a space.
const SpaceCreationPhrase = "create space"

// InitializeSpaceRequest confirms the creation of the owner's space.
type InitializeSpaceRequest struct {
	ConfirmationText string `json:"confirmationText" validate:"required"`
}

// InitializeSpaceResult describes the space and the provisioned folders.
type InitializeSpaceResult struct {
	Space     models.DocumentSpace   `json:"space"`
	Structure models.FolderStructure `json:"structure"`
	Created   bool                   `json:"created"`
}

// DeleteSpaceRequest confirms the teardown of a space.
type DeleteSpaceRequest struct {
	ConfirmationText string `json:"confirmationText" validate:"required"`
}

// DeleteSpaceResult reports what the teardown removed.
type DeleteSpaceResult struct {
	Message       string `json:"message"`
	FoldersPurged bool   `json:"foldersPurged"`
}

// SpaceOverview is the landing view of a space.
type SpaceOverview struct {
	Space     models.DocumentSpace    `json:"space"`
	Owner     models.UserInfo         `json:"owner"`
	Role      models.SpaceRole        `json:"role"`
	CanManage bool                    `json:"canManage"`
	Files     []models.DataFileDetail `json:"files"`
	Managers  []models.SpaceMember    `json:"managers,omitempty"`
	Writers   []models.SpaceMember    `json:"writers,omitempty"`
	Warning   string                  `json:"warning,omitempty"`
	ErrorID   string                  `json:"errorId,omitempty"`
}

// MemberRequest identifies an existing user to add to or remove from a space.
type MemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// MemberChangeResult is returned by member add and remove operations.
type MemberChangeResult struct {
	Message string           `json:"message"`
	User    *models.UserInfo `json:"user,omitempty"`
	Changed bool             `json:"changed"`
}

// CreateMemberRequest creates a manager or writer account inside a space.
type CreateMemberRequest struct {
	Email     string            `json:"email" validate:"required,email"`
	FirstName string            `json:"firstName" validate:"required,max=150"`
	LastName  string            `json:"lastName" validate:"max=150"`
	Password  string            `json:"password" validate:"required,min=8"`
	Kind      models.MemberKind `json:"kind" validate:"required,oneof=manager writer"`
}
