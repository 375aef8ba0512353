package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/noah-isme/leads-portal-api/internal/google"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/internal/repository"
)

type fakeSpaces struct {
	spaces   map[string]*models.DocumentSpace
	managers map[string]bool
	writers  map[string]bool
	deleted  []string
}

func newFakeSpaces(spaces ...models.DocumentSpace) *fakeSpaces {
	f := &fakeSpaces{spaces: map[string]*models.DocumentSpace{}, managers: map[string]bool{}, writers: map[string]bool{}}
	for i := range spaces {
		sp := spaces[i]
		f.spaces[sp.ID] = &sp
	}
	return f
}

func (f *fakeSpaces) set(kind models.MemberKind) map[string]bool {
	if kind == models.MemberKindManager {
		return f.managers
	}
	return f.writers
}

func (f *fakeSpaces) FindByID(ctx context.Context, id string) (*models.DocumentSpace, error) {
	sp, ok := f.spaces[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *sp
	return &copy, nil
}

func (f *fakeSpaces) FindByOwner(ctx context.Context, ownerID string) (*models.DocumentSpace, error) {
	for _, sp := range f.spaces {
		if sp.OwnerID == ownerID {
			copy := *sp
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSpaces) GetOrCreate(ctx context.Context, ownerID string) (*models.DocumentSpace, bool, error) {
	if sp, err := f.FindByOwner(ctx, ownerID); err == nil {
		return sp, false, nil
	}
	sp := &models.DocumentSpace{ID: "space-" + ownerID, OwnerID: ownerID}
	f.spaces[sp.ID] = sp
	copy := *sp
	return &copy, true, nil
}

func (f *fakeSpaces) Delete(ctx context.Context, id string) error {
	delete(f.spaces, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSpaces) Membership(ctx context.Context, spaceID, userID string) (models.Membership, error) {
	return models.Membership{Manager: f.managers[spaceID+"/"+userID], Writer: f.writers[spaceID+"/"+userID]}, nil
}

func (f *fakeSpaces) ListMembers(ctx context.Context, spaceID string) ([]models.SpaceMember, error) {
	var members []models.SpaceMember
	for key := range f.managers {
		if strings.HasPrefix(key, spaceID+"/") {
			members = append(members, models.SpaceMember{UserID: strings.TrimPrefix(key, spaceID+"/"), Kind: models.MemberKindManager})
		}
	}
	for key := range f.writers {
		if strings.HasPrefix(key, spaceID+"/") {
			members = append(members, models.SpaceMember{UserID: strings.TrimPrefix(key, spaceID+"/"), Kind: models.MemberKindWriter})
		}
	}
	return members, nil
}

func (f *fakeSpaces) ListForMember(ctx context.Context, userID string) ([]models.SpaceSummary, error) {
	var out []models.SpaceSummary
	for _, sp := range f.spaces {
		m, _ := f.Membership(ctx, sp.ID, userID)
		if m.Manager || m.Writer {
			out = append(out, models.SpaceSummary{ID: sp.ID, OwnerID: sp.OwnerID, Role: ResolveRole(*sp, m, userID)})
		}
	}
	return out, nil
}

func (f *fakeSpaces) AddMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error) {
	set := f.set(kind)
	key := spaceID + "/" + userID
	if set[key] {
		return false, nil
	}
	set[key] = true
	return true, nil
}

func (f *fakeSpaces) RemoveMember(ctx context.Context, spaceID, userID string, kind models.MemberKind) (bool, error) {
	set := f.set(kind)
	key := spaceID + "/" + userID
	if !set[key] {
		return false, nil
	}
	delete(set, key)
	return true, nil
}

type fakeUsers struct {
	users map[string]*models.User
	audit []*models.AuditLog
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	copy := *user
	f.users[user.ID] = &copy
	return nil
}

func (f *fakeUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.audit = append(f.audit, log)
	return nil
}

type fakeDataFiles struct {
	mu       sync.Mutex
	files    map[string]*models.DataFileDetail
	students []*models.Student
	created  []*models.DataFile
	deleted  []string
	createFn func() error
}

func newFakeDataFiles(files ...models.DataFileDetail) *fakeDataFiles {
	f := &fakeDataFiles{files: map[string]*models.DataFileDetail{}}
	for i := range files {
		file := files[i]
		f.files[file.ID] = &file
	}
	return f
}

func (f *fakeDataFiles) ListBySpace(ctx context.Context, spaceID string) ([]models.DataFileDetail, error) {
	var out []models.DataFileDetail
	for _, file := range f.files {
		if file.SpaceID == spaceID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeDataFiles) FileNameTaken(ctx context.Context, name string) (bool, error) {
	for _, file := range f.files {
		if file.FileName == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDataFiles) FindDetail(ctx context.Context, spaceID, id string) (*models.DataFileDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok || file.SpaceID != spaceID {
		return nil, sql.ErrNoRows
	}
	copy := *file
	return &copy, nil
}

func (f *fakeDataFiles) CreateWithResponseFile(ctx context.Context, file *models.DataFile, resp *models.ResponseFile) error {
	if f.createFn != nil {
		if err := f.createFn(); err != nil {
			return err
		}
	}
	file.ID = "df-" + file.FileID
	resp.DataFileID = file.ID
	f.created = append(f.created, file)
	f.files[file.ID] = &models.DataFileDetail{DataFile: *file, ResponseFileID: resp.FileID, ResponseWebViewLink: resp.WebViewLink}
	return nil
}

func (f *fakeDataFiles) Delete(ctx context.Context, id string) error {
	delete(f.files, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDataFiles) MoveCursor(ctx context.Context, id string, expected, next int, completed bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := f.files[id]
	if file.CurrentRow != expected {
		return false, nil
	}
	file.CurrentRow, file.Completed = next, completed
	return true, nil
}

func (f *fakeDataFiles) RecordSubmission(ctx context.Context, dataFileID string, sub repository.Submission, beforeCommit func(context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := f.files[dataFileID]
	if file.CurrentRow != sub.ExpectedRow || file.Completed {
		return repository.ErrCursorMoved
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}
	file.CurrentRow = sub.NextRow
	sub.Student.ID = fmt.Sprintf("st-%s-%d", dataFileID, sub.Student.RowNo)
	sub.Student.DataFileID = dataFileID
	sub.Response.StudentID = sub.Student.ID
	f.students = append(f.students, sub.Student)
	return nil
}

type fakeStudents struct {
	students  map[string]*models.Student
	responses map[string][]models.Response
	followUps []models.StudentWithLatest
}

func newFakeStudents(students ...models.Student) *fakeStudents {
	f := &fakeStudents{students: map[string]*models.Student{}, responses: map[string][]models.Response{}}
	for i := range students {
		st := students[i]
		f.students[st.ID] = &st
	}
	return f
}

func (f *fakeStudents) FindByID(ctx context.Context, dataFileID, id string) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok || st.DataFileID != dataFileID {
		return nil, sql.ErrNoRows
	}
	copy := *st
	return &copy, nil
}

func (f *fakeStudents) ListFollowUps(ctx context.Context, dataFileID string) ([]models.StudentWithLatest, error) {
	return f.followUps, nil
}

func (f *fakeStudents) ListResponses(ctx context.Context, studentID string) ([]models.Response, error) {
	return f.responses[studentID], nil
}

func (f *fakeStudents) RecordUpdate(ctx context.Context, student *models.Student, resp *models.Response, beforeCommit func(context.Context) error) error {
	stored := f.students[student.ID]
	if stored.Resolved {
		return models.ErrStudentResolved
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}
	stored.Status = student.Status
	resp.StudentID = student.ID
	f.responses[student.ID] = append(f.responses[student.ID], *resp)
	return nil
}

func (f *fakeStudents) Resolve(ctx context.Context, id string) (bool, error) {
	st := f.students[id]
	if st.Resolved || !st.Status.Resolvable() {
		return false, nil
	}
	st.Resolved = true
	return true, nil
}

type writtenRow struct {
	FileID string
	Row    int
	Record models.ResponseRow
}

// fakeWorkspace serves rows from an in-memory sheet keyed by row number.
type fakeWorkspace struct {
	structure    models.FolderStructure
	ensureErr    error
	createErr    error
	created      bool
	deleted      bool
	rows         map[int]models.StudentInfo
	readErr      error
	writeErr     error
	written      []writtenRow
	headers      []string
	trashed      []string
	uploads      []string
	scans        [][2]int
	trashErr     error
	uploadResult models.DriveFile
}

func (w *fakeWorkspace) EnsureFolderStructure(ctx context.Context) (models.FolderStructure, error) {
	return w.structure, w.ensureErr
}

func (w *fakeWorkspace) CreateFolderStructure(ctx context.Context) (models.FolderStructure, error) {
	if w.createErr != nil {
		return models.FolderStructure{}, w.createErr
	}
	w.created = true
	w.ensureErr = nil
	return w.structure, nil
}

func (w *fakeWorkspace) DeleteFolderStructure(ctx context.Context) (bool, error) {
	w.deleted = true
	return true, nil
}

func (w *fakeWorkspace) UploadSpreadsheet(ctx context.Context, r io.Reader, name, contentType string) (models.DriveFile, error) {
	w.uploads = append(w.uploads, name)
	if w.uploadResult.ID != "" {
		return w.uploadResult, nil
	}
	return models.DriveFile{ID: "drive-" + name, Name: name, WebViewLink: "https://docs.example/" + name}, nil
}

func (w *fakeWorkspace) CreateResponseSpreadsheet(ctx context.Context, name string) (models.DriveFile, error) {
	return models.DriveFile{ID: "resp-" + name, Name: name, WebViewLink: "https://docs.example/resp/" + name}, nil
}

func (w *fakeWorkspace) TrashFile(ctx context.Context, fileID string) error {
	if w.trashErr != nil {
		return w.trashErr
	}
	w.trashed = append(w.trashed, fileID)
	return nil
}

func (w *fakeWorkspace) ReadRow(ctx context.Context, fileID string, row int) (google.RowResult, error) {
	if w.readErr != nil {
		return google.RowResult{}, w.readErr
	}
	if row < 1 {
		row = 1
	}
	if info, ok := w.rows[row]; ok {
		return google.RowResult{Outcome: google.RowFound, Row: row, Info: info}, nil
	}
	return google.RowResult{Outcome: google.RowEmpty, Row: row}, nil
}

func (w *fakeWorkspace) NextPopulatedRow(ctx context.Context, fileID string, start, end int) (google.RowResult, error) {
	w.scans = append(w.scans, [2]int{start, end})
	for row := start; row < end; row++ {
		if info, ok := w.rows[row]; ok {
			return google.RowResult{Outcome: google.RowFound, Row: row, Info: info}, nil
		}
	}
	return google.RowResult{Outcome: google.RowEndOfWindow}, nil
}

func (w *fakeWorkspace) WriteResponseRow(ctx context.Context, responseFileID string, row int, record models.ResponseRow) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.written = append(w.written, writtenRow{FileID: responseFileID, Row: row, Record: record})
	return nil
}

func (w *fakeWorkspace) WriteResponseHeader(ctx context.Context, responseFileID string) error {
	w.headers = append(w.headers, responseFileID)
	return nil
}

type fakeFactory struct {
	ws     *fakeWorkspace
	err    error
	owners []string
}

func (f *fakeFactory) For(ctx context.Context, owner models.User) (google.Workspace, error) {
	f.owners = append(f.owners, owner.ID)
	if f.err != nil {
		return nil, f.err
	}
	return f.ws, nil
}

type countingRows struct {
	actions map[string]int
}

func (c *countingRows) RecordRow(action string) {
	if c.actions == nil {
		c.actions = map[string]int{}
	}
	c.actions[action]++
}

var (
	testOwner   = models.User{ID: "owner-1", Email: "owner@example.com", FirstName: "Olga", LastName: "Owner", IsSpaceOwner: true, Active: true}
	testManager = models.User{ID: "manager-1", Email: "manager@example.com", FirstName: "Max", Active: true}
	testWriter  = models.User{ID: "writer-1", Email: "writer@example.com", FirstName: "Wen", Active: true}
	testOther   = models.User{ID: "other-1", Email: "other@example.com", Active: true}
	testOwner2  = models.User{ID: "owner-2", Email: "owner2@example.com", IsSpaceOwner: true, Active: true}
	testSpace   = models.DocumentSpace{ID: "space-1", OwnerID: "owner-1"}
)

func seededSpaces() *fakeSpaces {
	spaces := newFakeSpaces(testSpace)
	spaces.managers["space-1/manager-1"] = true
	spaces.writers["space-1/writer-1"] = true
	return spaces
}

func seededUsers() *fakeUsers {
	return newFakeUsers(testOwner, testManager, testWriter, testOther, testOwner2)
}
