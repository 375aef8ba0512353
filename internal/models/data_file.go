package models

import "time"

// DataFile is a source spreadsheet registered to a space.
type DataFile struct {
	ID          string    `db:"id" json:"id"`
	SpaceID     string    `db:"space_id" json:"space_id"`
	FileID      string    `db:"file_id" json:"file_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	WebViewLink string    `db:"web_view_link" json:"web_view_link"`
	CurrentRow  int       `db:"current_row" json:"current_row"`
	Completed   bool      `db:"completed" json:"completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ResponseFile is the spreadsheet mirroring a data file's responses.
type ResponseFile struct {
	ID          string    `db:"id" json:"id"`
	DataFileID  string    `db:"data_file_id" json:"data_file_id"`
	FileID      string    `db:"file_id" json:"file_id"`
	WebViewLink string    `db:"web_view_link" json:"web_view_link"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DataFileDetail joins a data file with its paired response file.
type DataFileDetail struct {
	DataFile
	ResponseFileID      string `db:"response_file_id" json:"response_file_id"`
	ResponseWebViewLink string `db:"response_web_view_link" json:"response_web_view_link"`
}

// Cursor returns the row the reader should start from. Row 0 is never used.
func (f DataFile) Cursor() int {
	if f.CurrentRow < 1 {
		return 1
	}
	return f.CurrentRow
}
