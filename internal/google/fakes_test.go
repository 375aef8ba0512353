package google

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *models.FolderStructure:
		*d = v.(models.FolderStructure)
	case *models.GoogleCredentials:
		*d = *(v.(*models.GoogleCredentials))
	default:
		return false, fmt.Errorf("unsupported cache type %T", dest)
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type fakeCredentialStore struct {
	token    *models.SocialToken
	app      *models.SocialApp
	tokenErr error
	lookups  int
}

func (s *fakeCredentialStore) FindSocialToken(context.Context, string, string) (*models.SocialToken, error) {
	s.lookups++
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	if s.token == nil {
		return nil, sql.ErrNoRows
	}
	return s.token, nil
}

func (s *fakeCredentialStore) LatestSocialApp(context.Context, string) (*models.SocialApp, error) {
	if s.app == nil {
		return nil, sql.ErrNoRows
	}
	return s.app, nil
}

type createdFile struct {
	name, parent, contentType string
	body                      string
}

type fakeDrive struct {
	folders   map[string]models.Folder
	queries   []string
	created   []string
	files     []createdFile
	trashed   []string
	deleted   []string
	findErr   error
	createErr error
	trashErr  error
	deleteErr error
	nextID    int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{folders: map[string]models.Folder{}}
}

func folderKey(name, parent string) string {
	return parent + "/" + name
}

func (d *fakeDrive) addFolder(name, parent, id string) {
	d.folders[folderKey(name, parent)] = models.Folder{ID: id, Name: name}
}

func (d *fakeDrive) FindFolder(_ context.Context, query string) (*models.Folder, error) {
	d.queries = append(d.queries, query)
	if d.findErr != nil {
		return nil, d.findErr
	}
	for key, folder := range d.folders {
		parts := strings.SplitN(key, "/", 2)
		parent, name := parts[0], parts[1]
		if !strings.Contains(query, "name='"+name+"'") {
			continue
		}
		if parent == "" && !strings.Contains(query, "in parents") {
			f := folder
			return &f, nil
		}
		if parent != "" && strings.Contains(query, "'"+parent+"' in parents") {
			f := folder
			return &f, nil
		}
	}
	return nil, nil
}

func (d *fakeDrive) id(prefix string) string {
	d.nextID++
	return fmt.Sprintf("%s-%d", prefix, d.nextID)
}

func (d *fakeDrive) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	if d.createErr != nil {
		return "", d.createErr
	}
	id := d.id("folder")
	d.created = append(d.created, folderKey(name, parentID))
	d.addFolder(name, parentID, id)
	return id, nil
}

func (d *fakeDrive) CreateSpreadsheet(_ context.Context, name, parentID, contentType string, media io.Reader) (models.DriveFile, error) {
	if d.createErr != nil {
		return models.DriveFile{}, d.createErr
	}
	var body string
	if media != nil {
		raw, _ := io.ReadAll(media)
		body = string(raw)
	}
	d.files = append(d.files, createdFile{name: name, parent: parentID, contentType: contentType, body: body})
	id := d.id("sheet")
	return models.DriveFile{ID: id, Name: name, WebViewLink: "https://docs.example/" + id}, nil
}

func (d *fakeDrive) Trash(_ context.Context, fileID string) error {
	if d.trashErr != nil {
		return d.trashErr
	}
	d.trashed = append(d.trashed, fileID)
	return nil
}

func (d *fakeDrive) Delete(_ context.Context, fileID string) error {
	if d.deleteErr != nil {
		return d.deleteErr
	}
	d.deleted = append(d.deleted, fileID)
	return nil
}

type valueWrite struct {
	spreadsheetID, rng string
	values             [][]interface{}
}

type fakeSheets struct {
	rows     map[int][]interface{}
	gets     []string
	writes   []valueWrite
	getErr   error
	writeErr error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{rows: map[int][]interface{}{}}
}

// Get mimics the values API: trailing empty rows are dropped from the result.
func (s *fakeSheets) Get(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	s.gets = append(s.gets, rng)
	if s.getErr != nil {
		return nil, s.getErr
	}
	var start, end int
	if _, err := fmt.Sscanf(rng, "A%d:D%d", &start, &end); err != nil {
		return nil, err
	}
	var out [][]interface{}
	last := -1
	for r := start; r <= end; r++ {
		row := s.rows[r]
		out = append(out, row)
		if len(row) > 0 {
			last = len(out) - 1
		}
	}
	return out[:last+1], nil
}

func (s *fakeSheets) Update(_ context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, valueWrite{spreadsheetID: spreadsheetID, rng: rng, values: values})
	return nil
}

type recorder struct {
	calls map[string][]string
}

func (r *recorder) RecordGoogleCall(operation, outcome string) {
	if r.calls == nil {
		r.calls = map[string][]string{}
	}
	r.calls[operation] = append(r.calls[operation], outcome)
}
