package google

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/cache"
)

var (
	structureEntry = cache.Entry{Prefix: "drive_structure_for_", TTL: time.Hour}
	testNames      = FolderNames{Root: "leads_management", Data: "data", Responses: "responses"}
	testOwner      = models.User{ID: "owner-1", Email: "owner@example.com", FirstName: "Olga", LastName: "Owner"}
	realRootID     = strings.Repeat("r", rootIDLength)
)

func newTestClient(files *fakeDrive, values *fakeSheets, c *memoryCache) (*Client, *recorder) {
	rec := &recorder{}
	deps := clientDeps{entry: structureEntry, names: testNames, metrics: rec}
	if c != nil {
		deps.cache = c
	}
	return newClient(testOwner, files, values, deps), rec
}

func provisioned() *fakeDrive {
	d := newFakeDrive()
	d.addFolder("leads_management", "", realRootID)
	d.addFolder("data", realRootID, "F1")
	d.addFolder("responses", realRootID, "R1")
	return d
}

func TestEnsureFolderStructureResolvesAndCaches(t *testing.T) {
	files := provisioned()
	c := newMemoryCache()
	client, rec := newTestClient(files, newFakeSheets(), c)

	structure, err := client.EnsureFolderStructure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, realRootID, structure.ID)
	assert.Equal(t, "F1", structure.DataFolder.ID)
	assert.Equal(t, "R1", structure.ResponsesFolder.ID)
	assert.Contains(t, c.entries, "drive_structure_for_owner-1")
	require.Len(t, files.queries, 3)
	assert.Equal(t, "name='leads_management' and mimeType='application/vnd.google-apps.folder' and trashed=false", files.queries[0])
	assert.Contains(t, files.queries[1], "'"+realRootID+"' in parents")
	assert.Equal(t, []string{"ok", "ok", "ok"}, rec.calls["drive.find_folder"])

	again, _ := newTestClient(files, newFakeSheets(), c)
	_, err = again.EnsureFolderStructure(context.Background())
	require.NoError(t, err)
	assert.Len(t, files.queries, 3)
}

func TestEnsureFolderStructureMissingFolder(t *testing.T) {
	files := newFakeDrive()
	files.addFolder("leads_management", "", realRootID)
	files.addFolder("data", realRootID, "F1")
	c := newMemoryCache()
	client, _ := newTestClient(files, newFakeSheets(), c)

	structure, err := client.EnsureFolderStructure(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMissingFolderStructure))
	assert.Contains(t, err.Error(), "responses")
	assert.Equal(t, "F1", structure.DataFolder.ID)
	assert.Empty(t, c.entries)
}

func TestCreateFolderStructureOnlyCreatesMissing(t *testing.T) {
	files := newFakeDrive()
	files.addFolder("leads_management", "", realRootID)
	c := newMemoryCache()
	client, _ := newTestClient(files, newFakeSheets(), c)

	_, err := client.EnsureFolderStructure(context.Background())
	require.True(t, IsKind(err, KindMissingFolderStructure))

	structure, err := client.CreateFolderStructure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{realRootID + "/data", realRootID + "/responses"}, files.created)
	assert.True(t, structure.Resolved())
	assert.Contains(t, c.entries, "drive_structure_for_owner-1")
}

func TestCreateFolderStructureFromScratch(t *testing.T) {
	files := newFakeDrive()
	client, _ := newTestClient(files, newFakeSheets(), nil)

	structure, err := client.CreateFolderStructure(context.Background())
	require.NoError(t, err)
	require.Len(t, files.created, 3)
	assert.Equal(t, "/leads_management", files.created[0])
	assert.Equal(t, structure.ID+"/data", files.created[1])
}

func TestCreateFolderStructurePassesProviderErrors(t *testing.T) {
	files := newFakeDrive()
	files.createErr = &googleapi.Error{Code: http.StatusForbidden}
	client, _ := newTestClient(files, newFakeSheets(), nil)

	_, err := client.CreateFolderStructure(context.Background())
	gErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindHTTP, gErr.Kind)
	assert.Equal(t, ReasonForbidden, gErr.Reason)
}

func TestDeleteFolderStructure(t *testing.T) {
	files := provisioned()
	c := newMemoryCache()
	client, _ := newTestClient(files, newFakeSheets(), c)

	deleted, err := client.DeleteFolderStructure(context.Background())
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{realRootID}, files.deleted)
	assert.NotContains(t, c.entries, "drive_structure_for_owner-1")
}

func TestDeleteFolderStructureSkipsUnexpectedIDs(t *testing.T) {
	files := newFakeDrive()
	files.addFolder("leads_management", "", "short-id")
	client, _ := newTestClient(files, newFakeSheets(), nil)

	deleted, err := client.DeleteFolderStructure(context.Background())
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, files.deleted)
}

func TestDeleteFolderStructureToleratesMissingChildren(t *testing.T) {
	files := newFakeDrive()
	files.addFolder("leads_management", "", realRootID)
	client, _ := newTestClient(files, newFakeSheets(), nil)

	deleted, err := client.DeleteFolderStructure(context.Background())
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDeleteFolderStructureWrapsFailures(t *testing.T) {
	files := provisioned()
	files.deleteErr = errors.New("boom")
	client, _ := newTestClient(files, newFakeSheets(), nil)

	deleted, err := client.DeleteFolderStructure(context.Background())
	assert.False(t, deleted)
	assert.True(t, IsKind(err, KindStructureDeletionFailed))
}

func TestUploadSpreadsheetTargetsDataFolder(t *testing.T) {
	files := provisioned()
	client, rec := newTestClient(files, newFakeSheets(), nil)

	file, err := client.UploadSpreadsheet(context.Background(), strings.NewReader("name,parent"), "Batch1.xlsx", "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "Batch1.xlsx", file.Name)
	assert.NotEmpty(t, file.WebViewLink)
	require.Len(t, files.files, 1)
	assert.Equal(t, "F1", files.files[0].parent)
	assert.Equal(t, "text/csv", files.files[0].contentType)
	assert.Equal(t, "name,parent", files.files[0].body)
	assert.Equal(t, []string{"ok"}, rec.calls["drive.upload"])

	resp, err := client.CreateResponseSpreadsheet(context.Background(), "Batch1.xlsx")
	require.NoError(t, err)
	assert.NotEqual(t, file.ID, resp.ID)
	assert.Equal(t, "R1", files.files[1].parent)
}

func TestUploadSpreadsheetAuthExpired(t *testing.T) {
	files := provisioned()
	files.createErr = &googleapi.Error{Code: http.StatusUnauthorized}
	client, rec := newTestClient(files, newFakeSheets(), nil)

	_, err := client.UploadSpreadsheet(context.Background(), strings.NewReader(""), "Batch1.xlsx", "text/csv")
	gErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonAuthExpired, gErr.Reason)
	assert.Equal(t, []string{"auth_expired"}, rec.calls["drive.upload"])
}

func TestTrashFile(t *testing.T) {
	files := provisioned()
	client, _ := newTestClient(files, newFakeSheets(), nil)

	require.NoError(t, client.TrashFile(context.Background(), "sheet-1"))
	assert.Equal(t, []string{"sheet-1"}, files.trashed)

	files.trashErr = &googleapi.Error{Code: http.StatusNotFound}
	err := client.TrashFile(context.Background(), "gone")
	assert.True(t, IsKind(err, KindFileToDeleteNotFound))

	files.trashErr = &googleapi.Error{Code: http.StatusForbidden}
	err = client.TrashFile(context.Background(), "locked")
	assert.True(t, IsKind(err, KindHTTP))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `o\'brien`, escapeQuery("o'brien"))
}
