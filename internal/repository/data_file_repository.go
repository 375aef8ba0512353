package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// ErrCursorMoved is returned when another submission advanced the cursor first.
var ErrCursorMoved = errors.New("data file cursor moved")

const dataFileDetailSelect = `SELECT f.id, f.space_id, f.file_id, f.file_name, f.web_view_link, f.current_row, f.completed, f.created_at, f.updated_at,
	COALESCE(r.file_id, '') AS response_file_id, COALESCE(r.web_view_link, '') AS response_web_view_link
FROM data_files f LEFT JOIN response_files r ON r.data_file_id = f.id`

// Submission is a consumed source row persisted together with the cursor advance.
type Submission struct {
	ExpectedRow int
	NextRow     int
	Student     *models.Student
	Response    *models.Response
}

// DataFileRepository persists data files, their response files and the row cursor.
type DataFileRepository struct {
	db *sqlx.DB
}

// NewDataFileRepository constructs a data file repository.
func NewDataFileRepository(db *sqlx.DB) *DataFileRepository {
	return &DataFileRepository{db: db}
}

// CreateWithResponseFile inserts a data file and its paired response file atomically.
func (r *DataFileRepository) CreateWithResponseFile(ctx context.Context, file *models.DataFile, resp *models.ResponseFile) (err error) {
	now := time.Now().UTC()
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CurrentRow < 1 {
		file.CurrentRow = 1
	}
	file.CreatedAt, file.UpdatedAt = now, now
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.DataFileID = file.ID
	resp.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create data file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertFile = `INSERT INTO data_files (id, space_id, file_id, file_name, web_view_link, current_row, completed, created_at, updated_at) VALUES (:id, :space_id, :file_id, :file_name, :web_view_link, :current_row, :completed, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertFile, file); err != nil {
		return fmt.Errorf("insert data file: %w", err)
	}

	const insertResponse = `INSERT INTO response_files (id, data_file_id, file_id, web_view_link, created_at) VALUES (:id, :data_file_id, :file_id, :web_view_link, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertResponse, resp); err != nil {
		return fmt.Errorf("insert response file: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create data file: %w", err)
	}
	return nil
}

// FileNameTaken reports whether a data file already uses the name.
func (r *DataFileRepository) FileNameTaken(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM data_files WHERE file_name = $1)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, name); err != nil {
		return false, fmt.Errorf("check file name: %w", err)
	}
	return taken, nil
}

// FindDetail returns a data file of the space with its response file.
func (r *DataFileRepository) FindDetail(ctx context.Context, spaceID, id string) (*models.DataFileDetail, error) {
	query := dataFileDetailSelect + ` WHERE f.id = $1 AND f.space_id = $2`
	var detail models.DataFileDetail
	if err := r.db.GetContext(ctx, &detail, query, id, spaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find data file: %w", err)
	}
	return &detail, nil
}

// ListBySpace returns all data files of a space, newest first.
func (r *DataFileRepository) ListBySpace(ctx context.Context, spaceID string) ([]models.DataFileDetail, error) {
	query := dataFileDetailSelect + ` WHERE f.space_id = $1 ORDER BY f.created_at DESC`
	var files []models.DataFileDetail
	if err := r.db.SelectContext(ctx, &files, query, spaceID); err != nil {
		return nil, fmt.Errorf("list data files: %w", err)
	}
	return files, nil
}

// Delete removes a data file, cascading to its response file, students and responses.
func (r *DataFileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM data_files WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete data file: %w", err)
	}
	return nil
}

// MoveCursor sets the cursor and completion flag if the cursor still equals expected.
func (r *DataFileRepository) MoveCursor(ctx context.Context, id string, expected, next int, completed bool) (bool, error) {
	const query = `UPDATE data_files SET current_row = $3, completed = $4, updated_at = $5 WHERE id = $1 AND current_row = $2`
	res, err := r.db.ExecContext(ctx, query, id, expected, next, completed, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("move cursor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("move cursor rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecordSubmission advances the cursor, stores the student and its first response,
// then runs beforeCommit inside the same transaction. A concurrent submission that
// already advanced the cursor yields ErrCursorMoved and nothing is stored.
func (r *DataFileRepository) RecordSubmission(ctx context.Context, dataFileID string, sub Submission, beforeCommit func(context.Context) error) (err error) {
	now := time.Now().UTC()
	student := sub.Student
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.DataFileID = dataFileID
	student.CreatedAt, student.UpdatedAt = now, now
	resp := sub.Response
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.StudentID = student.ID
	resp.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record submission: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const advance = `UPDATE data_files SET current_row = $3, updated_at = $4 WHERE id = $1 AND current_row = $2 AND completed = FALSE`
	res, err := tx.ExecContext(ctx, advance, dataFileID, sub.ExpectedRow, sub.NextRow, now)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance cursor rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrCursorMoved
		return err
	}

	if _, err = tx.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertResponseQuery, resp); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	if beforeCommit != nil {
		if err = beforeCommit(ctx); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record submission: %w", err)
	}
	return nil
}
