package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

// Operation is an action performed inside a document space.
type Operation string

const (
	OpInitializeSpace Operation = "initialize_space"
	OpDeleteSpace     Operation = "delete_space"
	OpDeleteFile      Operation = "delete_file"
	OpUploadFile      Operation = "upload_file"
	OpCreateMember    Operation = "create_member"
	OpListMembers     Operation = "list_members"
	OpViewSpace       Operation = "view_space"
	OpWriteEntry      Operation = "write_entry"
	OpManageMembers   Operation = "manage_members"
)

var grants = map[Operation][]models.SpaceRole{
	OpInitializeSpace: {models.SpaceRoleOwner},
	OpDeleteSpace:     {models.SpaceRoleOwner},
	OpDeleteFile:      {models.SpaceRoleOwner},
	OpManageMembers:   {models.SpaceRoleOwner},
	OpUploadFile:      {models.SpaceRoleOwner, models.SpaceRoleManager},
	OpCreateMember:    {models.SpaceRoleOwner, models.SpaceRoleManager},
	OpListMembers:     {models.SpaceRoleOwner, models.SpaceRoleManager},
	OpViewSpace:       {models.SpaceRoleOwner, models.SpaceRoleManager, models.SpaceRoleWriter},
	OpWriteEntry:      {models.SpaceRoleOwner, models.SpaceRoleManager, models.SpaceRoleWriter},
}

// ResolveRole returns the role actorID holds in space. Ownership wins over any
// membership row and manager wins over writer.
func ResolveRole(space models.DocumentSpace, membership models.Membership, actorID string) models.SpaceRole {
	switch {
	case actorID != "" && space.OwnerID == actorID:
		return models.SpaceRoleOwner
	case membership.Manager:
		return models.SpaceRoleManager
	case membership.Writer:
		return models.SpaceRoleWriter
	default:
		return models.SpaceRoleNone
	}
}

// Authorize checks the grant table for op.
func Authorize(role models.SpaceRole, op Operation) error {
	if role == models.SpaceRoleNone || role == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not a member of this space")
	}
	for _, allowed := range grants[op] {
		if allowed == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "your role in this space does not allow this action")
}

// CanManage reports whether role may see and change the space collaborators.
func CanManage(role models.SpaceRole) bool {
	return Authorize(role, OpListMembers) == nil
}

type spaceLookup interface {
	FindByID(ctx context.Context, id string) (*models.DocumentSpace, error)
	Membership(ctx context.Context, spaceID, userID string) (models.Membership, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// spaceScope is an authorized view of a space for one request.
type spaceScope struct {
	Space *models.DocumentSpace
	Owner *models.User
	Role  models.SpaceRole
}

// spaceGate loads a space, resolves the actor's role and authorizes the operation.
type spaceGate struct {
	spaces spaceLookup
	users  userLookup
}

func (g spaceGate) enter(ctx context.Context, spaceID, actorID string, op Operation) (*spaceScope, error) {
	space, err := g.spaces.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "space not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
	}

	var membership models.Membership
	if space.OwnerID != actorID {
		membership, err = g.spaces.Membership(ctx, space.ID, actorID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
		}
	}

	role := ResolveRole(*space, membership, actorID)
	if err := Authorize(role, op); err != nil {
		return nil, err
	}

	owner, err := g.users.FindByID(ctx, space.OwnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space owner")
	}
	return &spaceScope{Space: space, Owner: owner, Role: role}, nil
}
