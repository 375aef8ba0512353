package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

type fileServiceMock struct {
	upload     dto.UploadFileInput
	uploadBody string
	deleteReq  dto.DeleteFileRequest
	deletedID  string
	err        error
}

func (m *fileServiceMock) List(ctx context.Context, actorID, spaceID string) ([]models.DataFileDetail, error) {
	return nil, m.err
}

func (m *fileServiceMock) Upload(ctx context.Context, actorID, spaceID string, in dto.UploadFileInput) (*models.DataFileDetail, error) {
	m.upload = in
	raw, _ := io.ReadAll(in.Body)
	m.uploadBody = string(raw)
	if m.err != nil {
		return nil, m.err
	}
	return &models.DataFileDetail{DataFile: models.DataFile{ID: "file-1", FileName: in.Name}}, nil
}

func (m *fileServiceMock) Delete(ctx context.Context, actorID, spaceID, fileID string, req dto.DeleteFileRequest) error {
	m.deletedID, m.deleteReq = fileID, req
	return m.err
}

func multipartUpload(t *testing.T, name, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestFileHandlerUploadForwardsMultipart(t *testing.T) {
	svc := &fileServiceMock{}
	body, contentType := multipartUpload(t, "leads.csv", "text/csv", "name,phone\n")
	c, w := newTestContext(http.MethodPost, "/spaces/space-1/files", nil, ownerClaims())
	c.Request, _ = http.NewRequest(http.MethodPost, "/spaces/space-1/files", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "spaceId", Value: "space-1"}}

	NewFileHandler(svc).Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "leads.csv", svc.upload.Name)
	assert.Equal(t, "text/csv", svc.upload.ContentType)
	assert.Equal(t, int64(len("name,phone\n")), svc.upload.Size)
	assert.Equal(t, "name,phone\n", svc.uploadBody)
}

func TestFileHandlerUploadRequiresFile(t *testing.T) {
	svc := &fileServiceMock{}
	c, w := newTestContext(http.MethodPost, "/spaces/space-1/files", []byte(`{}`), ownerClaims())

	NewFileHandler(svc).Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.upload.Name)
}

func TestFileHandlerDelete(t *testing.T) {
	svc := &fileServiceMock{}
	c, w := newTestContext(http.MethodDelete, "/spaces/space-1/files/file-1", []byte(`{"fileName":"leads.csv","confirmation":true}`), ownerClaims())
	c.Params = gin.Params{{Key: "spaceId", Value: "space-1"}, {Key: "fileId", Value: "file-1"}}

	NewFileHandler(svc).Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "file-1", svc.deletedID)
	assert.True(t, svc.deleteReq.Confirmation)
	assert.Equal(t, "leads.csv", svc.deleteReq.FileName)
}

func TestFileHandlerDeleteMissingStructure(t *testing.T) {
	svc := &fileServiceMock{err: appErrors.WithID(appErrors.ErrPreconditionFailed, "err-1")}
	c, w := newTestContext(http.MethodDelete, "/spaces/space-1/files/file-1", []byte(`{"fileName":"leads.csv","confirmation":true}`), ownerClaims())

	NewFileHandler(svc).Delete(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "err-1", errBody["error_id"])
}
