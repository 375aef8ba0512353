package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/google"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/internal/repository"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
	"github.com/noah-isme/leads-portal-api/pkg/export"
)

type entryFileRepository interface {
	FindDetail(ctx context.Context, spaceID, id string) (*models.DataFileDetail, error)
	MoveCursor(ctx context.Context, id string, expected, next int, completed bool) (bool, error)
	RecordSubmission(ctx context.Context, dataFileID string, sub repository.Submission, beforeCommit func(context.Context) error) error
}

type studentRepository interface {
	FindByID(ctx context.Context, dataFileID, id string) (*models.Student, error)
	ListFollowUps(ctx context.Context, dataFileID string) ([]models.StudentWithLatest, error)
	ListResponses(ctx context.Context, studentID string) ([]models.Response, error)
	RecordUpdate(ctx context.Context, student *models.Student, resp *models.Response, beforeCommit func(context.Context) error) error
	Resolve(ctx context.Context, id string) (bool, error)
}

type rowRecorder interface {
	RecordRow(action string)
}

type nopRowRecorder struct{}

func (nopRowRecorder) RecordRow(string) {}

// EntryConfig tunes the row cursor.
type EntryConfig struct {
	ScanWindow int
}

// cursorStep is the cursor change implied by a row read.
type cursorStep struct {
	Row       int
	Completed bool
	Info      *models.StudentInfo
}

// stepFor turns a read outcome at current into the next cursor position.
func stepFor(current int, res google.RowResult) cursorStep {
	switch res.Outcome {
	case google.RowFound:
		info := res.Info
		return cursorStep{Row: res.Row, Info: &info}
	case google.RowEndOfWindow:
		return cursorStep{Row: current, Completed: true}
	default:
		return cursorStep{Row: current}
	}
}

// EntryService walks collaborators through the rows of a data file and keeps
// the response spreadsheet aligned with the recorded students.
type EntryService struct {
	files      entryFileRepository
	students   studentRepository
	gate       spaceGate
	workspaces workspaceFactory
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    rowRecorder
	config     EntryConfig
}

// NewEntryService constructs an EntryService.
func NewEntryService(files entryFileRepository, students studentRepository, spaces spaceLookup, users userLookup, workspaces workspaceFactory, validate *validator.Validate, metrics rowRecorder, logger *zap.Logger, config EntryConfig) *EntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if metrics == nil {
		metrics = nopRowRecorder{}
	}
	if config.ScanWindow <= 0 {
		config.ScanWindow = 100
	}
	return &EntryService{
		files:      files,
		students:   students,
		gate:       spaceGate{spaces: spaces, users: users},
		workspaces: workspaces,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		config:     config,
	}
}

// Current returns the row at the cursor. An empty row moves the cursor to the
// next populated row of the scan window; an empty window completes the file.
func (s *EntryService) Current(ctx context.Context, actorID, spaceID, fileID string) (*dto.EntryView, error) {
	scope, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	if file.Completed {
		return s.completedView(scope, file), nil
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}

	current := file.Cursor()
	res, err := ws.ReadRow(ctx, file.FileID, current)
	if err == nil && res.Outcome == google.RowEmpty {
		res, err = ws.NextPopulatedRow(ctx, file.FileID, current, current+s.config.ScanWindow)
	}
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to read entry")
	}
	s.metrics.RecordRow("read")

	step := stepFor(current, res)
	if step.Row != file.CurrentRow || step.Completed {
		moved, err := s.files.MoveCursor(ctx, file.ID, file.CurrentRow, step.Row, step.Completed)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move cursor")
		}
		if !moved {
			return nil, appErrors.Clone(appErrors.ErrConflict, "the file was advanced by another request, reload the entry")
		}
		file.CurrentRow, file.Completed = step.Row, step.Completed
		if step.Completed {
			s.metrics.RecordRow("completed")
			s.logger.Info("data file completed", zap.String("data_file_id", file.ID), zap.Int("row", step.Row))
			return s.completedView(scope, file), nil
		}
		if step.Row != current {
			s.metrics.RecordRow("skipped")
		}
	}

	return &dto.EntryView{
		FileID:   file.ID,
		FileName: file.FileName,
		Row:      step.Row,
		Student:  step.Info,
	}, nil
}

// Submit records the first response for the row at the cursor and advances it.
// Concurrent submissions of the same row are rejected with a conflict.
func (s *EntryService) Submit(ctx context.Context, actorID, spaceID, fileID string, req dto.SubmitEntryRequest) (*dto.SubmitEntryResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}
	if !models.InitialStatusAllowed(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q is not allowed for a new entry", req.Status))
	}
	scope, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	if file.Completed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the file is already completed")
	}

	current := file.Cursor()
	if req.Row != 0 && req.Row != current {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the entry was already submitted, reload the entry")
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}
	res, err := ws.ReadRow(ctx, file.FileID, current)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to read entry")
	}
	if res.Outcome != google.RowFound {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the current row is empty, reload the entry")
	}

	student, err := models.NewStudent(file.ID, current, res.Info, req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	response := &models.Response{Content: strings.TrimSpace(req.Response)}
	row := models.ResponseRow{StudentInfo: res.Info, LatestResponse: response.Content, Status: student.Status}

	sub := repository.Submission{ExpectedRow: file.CurrentRow, NextRow: current + 1, Student: student, Response: response}
	err = s.files.RecordSubmission(ctx, file.ID, sub, func(ctx context.Context) error {
		return ws.WriteResponseRow(ctx, file.ResponseFileID, current, row)
	})
	if err != nil {
		if errors.Is(err, repository.ErrCursorMoved) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "the entry was already submitted, reload the entry")
		}
		return nil, providerError(ctx, s.logger, err, "failed to record entry")
	}
	s.metrics.RecordRow("submitted")

	return &dto.SubmitEntryResult{Student: *student, NextRow: current + 1}, nil
}

// Update appends a response to a student, applies the status transition and
// rewrites the student's response row with a fresh read of the source row.
func (s *EntryService) Update(ctx context.Context, actorID, spaceID, fileID, studentID string, req dto.UpdateEntryRequest) (*dto.StudentHistory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}
	scope, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, file.ID, studentID)
	if err != nil {
		return nil, err
	}
	if err := student.Transition(req.Status); err != nil {
		return nil, studentError(err)
	}

	ws, err := s.workspaces.For(ctx, *scope.Owner)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to open google workspace")
	}
	res, err := ws.ReadRow(ctx, file.FileID, student.RowNo)
	if err != nil {
		return nil, providerError(ctx, s.logger, err, "failed to read entry")
	}
	info := student.Info()
	if res.Outcome == google.RowFound {
		info = res.Info
	}

	response := &models.Response{Content: strings.TrimSpace(req.Response)}
	row := models.ResponseRow{StudentInfo: info, LatestResponse: response.Content, Status: student.Status}
	err = s.students.RecordUpdate(ctx, student, response, func(ctx context.Context) error {
		return ws.WriteResponseRow(ctx, file.ResponseFileID, student.RowNo, row)
	})
	if err != nil {
		if errors.Is(err, models.ErrStudentResolved) {
			return nil, studentError(err)
		}
		return nil, providerError(ctx, s.logger, err, "failed to record response")
	}
	s.metrics.RecordRow("updated")

	return s.history(ctx, student)
}

// Resolve finalizes a denied or confirmed student.
func (s *EntryService) Resolve(ctx context.Context, actorID, spaceID, fileID, studentID string) (*models.Student, error) {
	_, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, file.ID, studentID)
	if err != nil {
		return nil, err
	}
	if err := student.Resolve(); err != nil {
		return nil, studentError(err)
	}

	changed, err := s.students.Resolve(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the student changed meanwhile, reload and retry")
	}
	s.metrics.RecordRow("resolved")
	return student, nil
}

// FollowUps lists the unresolved students of a data file.
func (s *EntryService) FollowUps(ctx context.Context, actorID, spaceID, fileID string) ([]dto.FollowUpItem, error) {
	_, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	return s.followUpItems(ctx, file.ID)
}

// Responses returns a student together with its response history.
func (s *EntryService) Responses(ctx context.Context, actorID, spaceID, fileID, studentID string) (*dto.StudentHistory, error) {
	_, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, file.ID, studentID)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, student)
}

// ExportFollowUps renders the follow up list as csv or pdf.
func (s *EntryService) ExportFollowUps(ctx context.Context, actorID, spaceID, fileID, format string) (*dto.ExportResult, error) {
	exporter, err := export.ForFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	_, file, err := s.open(ctx, actorID, spaceID, fileID)
	if err != nil {
		return nil, err
	}
	items, err := s.followUpItems(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Follow ups: " + file.FileName,
		Headers: []string{"Row", "Name", "Parent Name", "Phone Number", "Education", "Status", "Latest Response", "Last Contacted"},
	}
	for _, item := range items {
		contacted := ""
		if item.LastContacted != nil {
			contacted = item.LastContacted.UTC().Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, []string{
			fmt.Sprint(item.RowNo), item.Name, item.ParentName, item.PhoneNumber, item.Education,
			string(item.Status), item.LatestResponse, contacted,
		})
	}

	body, err := exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	base := strings.TrimSuffix(file.FileName, filepath.Ext(file.FileName))
	return &dto.ExportResult{
		FileName:    fmt.Sprintf("%s-followups.%s", base, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func (s *EntryService) open(ctx context.Context, actorID, spaceID, fileID string) (*spaceScope, *models.DataFileDetail, error) {
	scope, err := s.gate.enter(ctx, spaceID, actorID, OpWriteEntry)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.files.FindDetail(ctx, scope.Space.ID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return scope, file, nil
}

func (s *EntryService) followUpItems(ctx context.Context, dataFileID string) ([]dto.FollowUpItem, error) {
	students, err := s.students.ListFollowUps(ctx, dataFileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list follow ups")
	}

	items := make([]dto.FollowUpItem, 0, len(students))
	for _, st := range students {
		item := dto.FollowUpItem{Student: st.Student, LastContacted: st.LastContacted, Resolvable: st.IsResolvable()}
		if st.LatestResponse != nil {
			item.LatestResponse = *st.LatestResponse
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *EntryService) loadStudent(ctx context.Context, dataFileID, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, dataFileID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *EntryService) history(ctx context.Context, student *models.Student) (*dto.StudentHistory, error) {
	responses, err := s.students.ListResponses(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	if responses == nil {
		responses = []models.Response{}
	}
	return &dto.StudentHistory{Student: *student, Responses: responses}, nil
}

func (s *EntryService) completedView(scope *spaceScope, file *models.DataFileDetail) *dto.EntryView {
	return &dto.EntryView{
		FileID:    file.ID,
		FileName:  file.FileName,
		Row:       file.Cursor(),
		Completed: true,
		Message: fmt.Sprintf("No more entries left in the file. If you think that is a mistake, please contact %s and provide row number as %d",
			scope.Owner.FullName(), file.Cursor()),
	}
}

func studentError(err error) error {
	switch {
	case errors.Is(err, models.ErrStudentResolved):
		return appErrors.Wrap(err, appErrors.ErrFinalized.Code, appErrors.ErrFinalized.Status, "the student is already resolved")
	case errors.Is(err, models.ErrNotResolvable):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "only denied or confirmed students can be resolved")
	case errors.Is(err, models.ErrInvalidTransition):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
}
