package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/database"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

type dataFileRepository interface {
	spaceFileLister
	FileNameTaken(ctx context.Context, name string) (bool, error)
	FindDetail(ctx context.Context, spaceID, id string) (*models.DataFileDetail, error)
	CreateWithResponseFile(ctx context.Context, file *models.DataFile, resp *models.ResponseFile) error
	Delete(ctx context.Context, id string) error
}

// FileConfig limits what may be uploaded into a space.
type FileConfig struct {
	MaxUploadBytes int64
	AllowedMIMEs   []string
}

const duplicateFileMessage = "File with the same name already exists. Please choose different file"

// FileService uploads, lists and deletes the spreadsheets of a space.
type FileService struct {
	files      dataFileRepository
	gate       spaceGate
	workspaces workspaceFactory
	validator  *validator.Validate
	logger     *zap.Logger
	config     FileConfig
	allowed    map[string]struct{}
}

// NewFileService constructs a FileService.
func NewFileService(files dataFileRepository, spaces spaceLookup, users userLookup, workspaces workspaceFactory, validate *validator.Validate, logger *zap.Logger, config FileConfig) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	allowed := make(map[string]struct{}, len(config.AllowedMIMEs))
	for _, m := range config.AllowedMIMEs {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &FileService{
		files:      files,
		gate:       spaceGate{spaces: spaces, users: users},
		workspaces: workspaces,
		validator:  validate,
		logger:     logger,
		config:     config,
		allowed:    allowed,
	}
}

// List returns the data files of a space with their response files.
func (s *FileService) List(ctx context.Context, actorID, spaceID string) ([]models.DataFileDetail, error) {
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
	return files, nil
}

// Upload stores a spreadsheet in the owner's data folder, creates its paired
// response spreadsheet and registers both.
func (s *FileService) Upload(ctx context.Context, actorID, spaceID string, in dto.UploadFileInput) (*models.DataFileDetail, error) {
	if err := s.checkUpload(in); err != nil {
		return nil, err
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpUploadFile)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(in.Name)
	taken, err := s.files.FileNameTaken(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check file name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, duplicateFileMessage)
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}
	if _, err := ws.EnsureFolderStructure(ctx); err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to load folder structure")
	}

	uploaded, err := ws.UploadSpreadsheet(ctx, in.Body, name, in.ContentType)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to upload spreadsheet")
	}
	responseFile, err := ws.CreateResponseSpreadsheet(ctx, uploaded.Name)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to create response spreadsheet")
	}

	file := &models.DataFile{
		SpaceID:     scope.Space.ID,
		FileID:      uploaded.ID,
		FileName:    name,
		WebViewLink: uploaded.WebViewLink,
		CurrentRow:  1,
	}
	resp := &models.ResponseFile{FileID: responseFile.ID, WebViewLink: responseFile.WebViewLink}
	if err := s.files.CreateWithResponseFile(ctx, file, resp); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, duplicateFileMessage)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register file")
	}

	if err := ws.WriteResponseHeader(ctx, resp.FileID); err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to write response header")
	}

	s.logger.Info("spreadsheet uploaded",
		zap.String("space_id", scope.Space.ID),
		zap.String("data_file_id", file.ID),
		zap.String("file_id", file.FileID),
	)

	return &models.DataFileDetail{DataFile: *file, ResponseFileID: resp.FileID, ResponseWebViewLink: resp.WebViewLink}, nil
}

// Delete trashes both spreadsheets of a data file and removes its records. The
// caller must repeat the exact file name.
func (s *FileService) Delete(ctx context.Context, actorID, spaceID, fileID string, req dto.DeleteFileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid delete payload")
	}
	if !req.Confirmation {
		return appErrors.Clone(appErrors.ErrValidation, "Are you sure you want to delete this file")
	}
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpDeleteFile)
	if err != nil {
		return err
	}

	file, err := s.files.FindDetail(ctx, scope.Space.ID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.FileName != req.FileName {
		return appErrors.Clone(appErrors.ErrValidation, "The file name is not correct")
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return providerError(ctx, s.logger, err, "failed to open google workspace")
	}
	if _, err := ws.EnsureFolderStructure(ctx); err != nil {
		return providerError(ctx, s.logger, err, "failed to load folder structure")
	}
	if err := ws.TrashFile(ctx, file.FileID); err != nil {
		return providerError(ctx, s.logger, err, "failed to delete data file")
	}
	if file.ResponseFileID != "" {
		if err := ws.TrashFile(ctx, file.ResponseFileID); err != nil {
			return providerError(ctx, s.logger, err, "failed to delete response file")
		}
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	return nil
}

func (s *FileService) checkUpload(in dto.UploadFileInput) error {
	if strings.TrimSpace(in.Name) == "" || in.Body == nil {
		return appErrors.Clone(appErrors.ErrValidation, "a spreadsheet file is required")
	}
	if s.config.MaxUploadBytes > 0 && in.Size > s.config.MaxUploadBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File size must not exceed %d MB", s.config.MaxUploadBytes/(1024*1024)))
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil {
		mediaType = in.ContentType
	}
	if _, ok := s.allowed[strings.ToLower(mediaType)]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "Unsupported file type. Upload a spreadsheet document")
	}
	return nil
}
