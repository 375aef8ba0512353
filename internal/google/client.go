package google

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/cache"
)

// Workspace is the provider surface the space workflow depends on. It is bound
// to the Google account of one space owner.
type Workspace interface {
	EnsureFolderStructure(ctx context.Context) (models.FolderStructure, error)
	CreateFolderStructure(ctx context.Context) (models.FolderStructure, error)
	DeleteFolderStructure(ctx context.Context) (bool, error)
	UploadSpreadsheet(ctx context.Context, r io.Reader, name, contentType string) (models.DriveFile, error)
	CreateResponseSpreadsheet(ctx context.Context, name string) (models.DriveFile, error)
	TrashFile(ctx context.Context, fileID string) error
	ReadRow(ctx context.Context, fileID string, row int) (RowResult, error)
	NextPopulatedRow(ctx context.Context, fileID string, start, end int) (RowResult, error)
	WriteResponseRow(ctx context.Context, responseFileID string, row int, record models.ResponseRow) error
	WriteResponseHeader(ctx context.Context, responseFileID string) error
}

// FolderNames are the fixed names of the provisioned hierarchy.
type FolderNames struct {
	Root      string
	Data      string
	Responses string
}

type callRecorder interface {
	RecordGoogleCall(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGoogleCall(string, string) {}

// Client implements Workspace over the Drive and Sheets APIs.
type Client struct {
	owner     models.User
	files     driveFiles
	values    sheetValues
	cache     entryCache
	entry     cache.Entry
	names     FolderNames
	structure models.FolderStructure
	validate  *rowValidator
	metrics   callRecorder
	logger    *zap.Logger
}

type clientDeps struct {
	cache   entryCache
	entry   cache.Entry
	names   FolderNames
	metrics callRecorder
	logger  *zap.Logger
}

func newClient(owner models.User, files driveFiles, values sheetValues, deps clientDeps) *Client {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	if deps.metrics == nil {
		deps.metrics = nopRecorder{}
	}
	return &Client{
		owner:     owner,
		files:     files,
		values:    values,
		cache:     deps.cache,
		entry:     deps.entry,
		names:     deps.names,
		structure: models.FolderStructure{Name: deps.names.Root, DataFolder: models.Folder{Name: deps.names.Data}, ResponsesFolder: models.Folder{Name: deps.names.Responses}},
		validate:  newRowValidator(),
		metrics:   deps.metrics,
		logger:    deps.logger.With(zap.String("owner_id", owner.ID)),
	}
}

func (c *Client) call(operation string, passNotFound bool, fn func() error) error {
	err := classify(fn(), passNotFound)
	c.metrics.RecordGoogleCall(operation, outcome(err))
	return err
}

// Factory builds a Client per space owner from their resolved credentials.
type Factory struct {
	credentials *CredentialResolver
	deps        clientDeps
}

// NewFactory wires a Factory. structureEntry controls the folder structure cache.
func NewFactory(credentials *CredentialResolver, c entryCache, structureEntry cache.Entry, names FolderNames, metrics callRecorder, logger *zap.Logger) *Factory {
	return &Factory{
		credentials: credentials,
		deps:        clientDeps{cache: c, entry: structureEntry, names: names, metrics: metrics, logger: logger},
	}
}

// For returns a Workspace acting with the owner's Google account.
func (f *Factory) For(ctx context.Context, owner models.User) (Workspace, error) {
	creds, err := f.credentials.Resolve(ctx, owner.ID, false)
	if err != nil {
		return nil, err
	}
	ts := TokenSource(ctx, creds)

	driveSvc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("build drive client: %w", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("build sheets client: %w", err)
	}

	return newClient(owner, &driveAPI{svc: driveSvc}, &sheetsAPI{svc: sheetsSvc}, f.deps), nil
}

// Forget drops cached state of the owner after the account is relinked.
func (f *Factory) Forget(ctx context.Context, ownerID string) error {
	if err := f.credentials.Forget(ctx, ownerID); err != nil {
		return err
	}
	if f.deps.cache == nil {
		return nil
	}
	return f.deps.cache.Delete(ctx, f.deps.entry.Key(ownerID))
}
