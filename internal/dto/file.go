package dto

import "io"

// UploadFileInput carries a multipart spreadsheet upload.
type UploadFileInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DeleteFileRequest confirms deletion by repeating the file name.
type DeleteFileRequest struct {
	FileName     string `json:"fileName" validate:"required,max=255"`
	Confirmation bool   `json:"confirmation"`
}
