package dto

import (
	"time"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// EntryView is the current row of a data file as shown to a collaborator.
type EntryView struct {
	FileID    string              `json:"fileId"`
	FileName  string              `json:"fileName"`
	Row       int                 `json:"row"`
	Completed bool                `json:"completed"`
	Student   *models.StudentInfo `json:"student,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// SubmitEntryRequest records the first response for the current row. Row is
// the row the client was shown; zero means the current cursor.
type SubmitEntryRequest struct {
	Row      int                  `json:"row" validate:"gte=0"`
	Response string               `json:"response" validate:"required,max=5000"`
	Status   models.StudentStatus `json:"status" validate:"required"`
}

// SubmitEntryResult returns the stored student and the next cursor.
type SubmitEntryResult struct {
	Student models.Student `json:"student"`
	NextRow int            `json:"nextRow"`
}

// UpdateEntryRequest appends a response and optionally moves the status.
type UpdateEntryRequest struct {
	Response string               `json:"response" validate:"required,max=5000"`
	Status   models.StudentStatus `json:"status" validate:"required"`
}

// StudentHistory is a student with every response recorded for it.
type StudentHistory struct {
	Student   models.Student    `json:"student"`
	Responses []models.Response `json:"responses"`
}

// FollowUpItem is one unresolved student in the follow up list.
type FollowUpItem struct {
	models.Student
	LatestResponse string     `json:"latestResponse,omitempty"`
	LastContacted  *time.Time `json:"lastContacted,omitempty"`
	Resolvable     bool       `json:"resolvable"`
}

// ExportResult is a rendered follow up export.
type ExportResult struct {
	FileName    string
	ContentType string
	Body        []byte
}
