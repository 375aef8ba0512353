package google

import (
	"context"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

const (
	folderMIME      = "application/vnd.google-apps.folder"
	spreadsheetMIME = "application/vnd.google-apps.spreadsheet"
	fileFields      = "id, name, webViewLink"
	userEntered     = "USER_ENTERED"
)

// driveFiles is the slice of the Drive files API the portal uses.
type driveFiles interface {
	FindFolder(ctx context.Context, query string) (*models.Folder, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	CreateSpreadsheet(ctx context.Context, name, parentID, contentType string, media io.Reader) (models.DriveFile, error)
	Trash(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
}

// sheetValues is the slice of the Sheets values API the portal uses.
type sheetValues interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

type driveAPI struct {
	svc *drive.Service
}

func (d *driveAPI) FindFolder(ctx context.Context, query string) (*models.Folder, error) {
	list, err := d.svc.Files.List().Q(query).PageSize(1).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return &models.Folder{ID: list.Files[0].Id, Name: list.Files[0].Name}, nil
}

func (d *driveAPI) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{Name: name, MimeType: folderMIME}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := d.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (d *driveAPI) CreateSpreadsheet(ctx context.Context, name, parentID, contentType string, media io.Reader) (models.DriveFile, error) {
	meta := &drive.File{Name: name, MimeType: spreadsheetMIME, Parents: []string{parentID}}
	call := d.svc.Files.Create(meta).Fields(fileFields).Context(ctx)
	if media != nil {
		call = call.Media(media, googleapi.ContentType(contentType), googleapi.ChunkSize(1024*1024))
	}
	created, err := call.Do()
	if err != nil {
		return models.DriveFile{}, err
	}
	return models.DriveFile{ID: created.Id, Name: created.Name, WebViewLink: created.WebViewLink}, nil
}

func (d *driveAPI) Trash(ctx context.Context, fileID string) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{Trashed: true}).Context(ctx).Do()
	return err
}

func (d *driveAPI) Delete(ctx context.Context, fileID string) error {
	return d.svc.Files.Delete(fileID).Context(ctx).Do()
}

type sheetsAPI struct {
	svc *sheets.Service
}

func (s *sheetsAPI) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return vr.Values, nil
}

func (s *sheetsAPI) Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	body := &sheets.ValueRange{MajorDimension: "ROWS", Range: rng, Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, body).
		ValueInputOption(userEntered).
		Context(ctx).
		Do()
	return err
}
