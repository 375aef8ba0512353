package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/google"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/database"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

type spaceRepository interface {
	spaceLookup
	FindByOwner(ctx context.Context, ownerID string) (*models.DocumentSpace, error)
	GetOrCreate(ctx context.Context, ownerID string) (*models.DocumentSpace, bool, error)
	Delete(ctx context.Context, id string) error
	ListMembers(ctx context.Context, spaceID string) ([]models.SpaceMember, error)
	ListForMember(ctx context.Context, userID string) ([]models.SpaceSummary, error)
	AddMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error)
	RemoveMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error)
}

type spaceUserRepository interface {
	userLookup
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type spaceFileLister interface {
	ListBySpace(ctx context.Context, spaceID string) ([]models.DataFileDetail, error)
}

// workspaceFactory opens the provider workspace of a space owner.
type workspaceFactory interface {
	For(ctx context.Context, owner models.User) (google.Workspace, error)
}

// SpaceService coordinates document spaces and their collaborators.
type SpaceService struct {
	spaces     spaceRepository
	users      spaceUserRepository
	files      spaceFileLister
	workspaces workspaceFactory
	gate       spaceGate
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSpaceService constructs a SpaceService.
func NewSpaceService(spaces spaceRepository, users spaceUserRepository, files spaceFileLister, workspaces workspaceFactory, validate *validator.Validate, logger *zap.Logger) *SpaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SpaceService{
		spaces:     spaces,
		users:      users,
		files:      files,
		workspaces: workspaces,
		gate:       spaceGate{spaces: spaces, users: users},
		validator:  validate,
		logger:     logger,
	}
}

// Initialize provisions the owner's folder structure and returns their space,
// creating it on first use.
func (s *SpaceService) Initialize(ctx context.Context, actorID string, req dto.InitializeSpaceRequest) (*dto.InitializeSpaceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid initialize payload")
	}
	if !strings.EqualFold(strings.TrimSpace(req.ConfirmationText), dto.SpaceCreationPhrase) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please type in the correct message")
	}

	owner, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !owner.IsSpaceOwner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only space owners can initialize a space")
	}

	ws, err := s.workspaces.For(ctx, *owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}

	structure, err := ws.EnsureFolderStructure(ctx)
	if google.IsKind(err, google.KindMissingFolderStructure) {
		structure, err = ws.CreateFolderStructure(ctx)
	}
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to provision folder structure")
	}

	space, created, err := s.spaces.GetOrCreate(ctx, owner.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create space")
	}
	if created {
		s.logger.Info("space initialized", zap.String("space_id", space.ID), zap.String("owner_id", owner.ID))
	}

	return &dto.InitializeSpaceResult{Space: *space, Structure: structure, Created: created}, nil
}

// ListSpaces returns the spaces the actor can open: their own first, then the
// spaces they collaborate on.
func (s *SpaceService) ListSpaces(ctx context.Context, actorID string) ([]models.SpaceSummary, error) {
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SpaceSummary, 0)
	if actor.IsSpaceOwner {
		own, err := s.spaces.FindByOwner(ctx, actor.ID)
		switch {
		case err == nil:
			summaries = append(summaries, models.SpaceSummary{
				ID:         own.ID,
				OwnerID:    actor.ID,
				OwnerEmail: actor.Email,
				OwnerFirst: actor.FirstName,
				OwnerLast:  actor.LastName,
				Role:       models.SpaceRoleOwner,
				CreatedAt:  own.CreatedAt,
			})
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
		}
		return summaries, nil
	}

	member, err := s.spaces.ListForMember(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list spaces")
	}
	return append(summaries, member...), nil
}

// Overview returns files, collaborators and provider health of a space.
func (s *SpaceService) Overview(ctx context.Context, actorID, spaceID string) (*dto.SpaceOverview, error) {
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpViewSpace)
	if err != nil {
		return nil, err
	}

	files, err := s.files.ListBySpace(ctx, scope.Space.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	if files == nil {
		files = []models.DataFileDetail{}
	}

	overview := &dto.SpaceOverview{
		Space:     *scope.Space,
		Owner:     models.NewUserInfo(*scope.Owner),
		Role:      scope.Role,
		CanManage: CanManage(scope.Role),
		Files:     files,
	}

	if overview.CanManage {
		members, err := s.spaces.ListMembers(ctx, scope.Space.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
		}
		overview.Managers, overview.Writers = splitMembers(members)
	}

	if scope.Role == models.SpaceRoleOwner {
		if err := s.checkStructure(ctx, *scope.Owner); err != nil {
			mapped := appErrors.FromError(providerError(ctx, s.logger, err, "failed to check folder structure"))
			overview.Warning = mapped.Message
			overview.ErrorID = mapped.ErrorID
		}
	}

	return overview, nil
}

// AddMember grants an existing user the manager or writer role.
func (s *SpaceService) AddMember(ctx context.Context, actorID, spaceID string, kind models.MemberKind, req dto.MemberRequest) (*dto.MemberChangeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown member kind")
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpManageMembers)
	if err != nil {
		return nil, err
	}

	user, err := s.findMember(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user.IsSpaceOwner {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is a space owner and cannot be added as %s", user.Email, kind))
	}

	changed, err := s.spaces.AddMember(ctx, scope.Space.ID, user.ID, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	info := models.NewUserInfo(*user)
	message := fmt.Sprintf("%s added as %s", user.Email, kind)
	if !changed {
		message = fmt.Sprintf("%s is already a %s of this space", user.Email, kind)
	}
	return &dto.MemberChangeResult{Message: message, User: &info, Changed: changed}, nil
}

// RemoveMember revokes a role. Removing a user who does not hold it succeeds
// without changes.
func (s *SpaceService) RemoveMember(ctx context.Context, actorID, spaceID string, kind models.MemberKind, req dto.MemberRequest) (*dto.MemberChangeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown member kind")
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpManageMembers)
	if err != nil {
		return nil, err
	}

	user, err := s.findMember(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	changed, err := s.spaces.RemoveMember(ctx, scope.Space.ID, user.ID, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}

	info := models.NewUserInfo(*user)
	return &dto.MemberChangeResult{
		Message: fmt.Sprintf("%s removed as %s", user.Email, kind),
		User:    &info,
		Changed: changed,
	}, nil
}

// CreateMember creates an account and adds it to the space in one step.
func (s *SpaceService) CreateMember(ctx context.Context, actorID, spaceID string, req dto.CreateMemberRequest) (*dto.MemberChangeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpCreateMember)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if _, err := s.spaces.AddMember(ctx, scope.Space.ID, user.ID, req.Kind); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	info := models.NewUserInfo(*user)
	return &dto.MemberChangeResult{
		Message: fmt.Sprintf("%s created as %s", user.Email, req.Kind),
		User:    &info,
		Changed: true,
	}, nil
}

// DeleteSpace removes the provider folder structure and then the space with
// everything it owns.
func (s *SpaceService) DeleteSpace(ctx context.Context, actorID, spaceID string, req dto.DeleteSpaceRequest) (*dto.DeleteSpaceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid delete payload")
	}
	if !strings.EqualFold(strings.TrimSpace(req.ConfirmationText), "delete space") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please type in the correct message")
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpDeleteSpace)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}
	purged, err := ws.DeleteFolderStructure(ctx)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to delete folder structure")
	}

	if err := s.spaces.Delete(ctx, scope.Space.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete space")
	}

	return &dto.DeleteSpaceResult{Message: "The space has been deleted", FoldersPurged: purged}, nil
}

func (s *SpaceService) checkStructure(ctx context.Context, owner models.User) error {
	ws, err := s.workspaces.For(ctx, owner)
	if err != nil {
		return err
	}
	_, err = ws.EnsureFolderStructure(ctx)
	return err
}

func (s *SpaceService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *SpaceService) findMember(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no user with this email")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func splitMembers(members []models.SpaceMember) (managers, writers []models.SpaceMember) {
	managers, writers = []models.SpaceMember{}, []models.SpaceMember{}
	for _, m := range members {
		if m.Kind == models.MemberKindManager {
			managers = append(managers, m)
		} else {
			writers = append(writers, m)
		}
	}
	return managers, writers
}
