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

const (
	studentColumns      = `id, data_file_id, row_no, name, parent_name, phone_number, education, status, resolved, created_at, updated_at`
	insertStudentQuery  = `INSERT INTO students (id, data_file_id, row_no, name, parent_name, phone_number, education, status, resolved, created_at, updated_at) VALUES (:id, :data_file_id, :row_no, :name, :parent_name, :phone_number, :education, :status, :resolved, :created_at, :updated_at)`
	insertResponseQuery = `INSERT INTO responses (id, student_id, content, created_at) VALUES (:id, :student_id, :content, :created_at)`
)

// StudentRepository persists row lifecycle records and their responses.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student of the data file.
func (r *StudentRepository) FindByID(ctx context.Context, dataFileID, id string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND data_file_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, dataFileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListFollowUps returns unresolved students of a data file with their latest response.
func (r *StudentRepository) ListFollowUps(ctx context.Context, dataFileID string) ([]models.StudentWithLatest, error) {
	const query = `SELECT s.id, s.data_file_id, s.row_no, s.name, s.parent_name, s.phone_number, s.education, s.status, s.resolved, s.created_at, s.updated_at,
	lr.content AS latest_response, lr.created_at AS last_contacted
FROM students s
LEFT JOIN LATERAL (SELECT content, created_at FROM responses WHERE student_id = s.id ORDER BY created_at DESC LIMIT 1) lr ON TRUE
WHERE s.data_file_id = $1 AND s.resolved = FALSE
ORDER BY s.row_no`
	var students []models.StudentWithLatest
	if err := r.db.SelectContext(ctx, &students, query, dataFileID); err != nil {
		return nil, fmt.Errorf("list follow ups: %w", err)
	}
	return students, nil
}

// ListResponses returns the response history of a student, oldest first.
func (r *StudentRepository) ListResponses(ctx context.Context, studentID string) ([]models.Response, error) {
	const query = `SELECT id, student_id, content, created_at FROM responses WHERE student_id = $1 ORDER BY created_at`
	var responses []models.Response
	if err := r.db.SelectContext(ctx, &responses, query, studentID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// RecordUpdate stores a new status and appends a response, running beforeCommit
// inside the transaction. A resolved student is left untouched.
func (r *StudentRepository) RecordUpdate(ctx context.Context, student *models.Student, resp *models.Response, beforeCommit func(context.Context) error) (err error) {
	now := time.Now().UTC()
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.StudentID = student.ID
	resp.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1 AND resolved = FALSE`
	res, err := tx.ExecContext(ctx, update, student.ID, student.Status, now)
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows affected: %w", err)
	}
	if affected == 0 {
		err = models.ErrStudentResolved
		return err
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
		return fmt.Errorf("commit record update: %w", err)
	}
	student.UpdatedAt = now
	return nil
}

// Resolve marks a student resolved when its status allows it. It reports whether a row changed.
func (r *StudentRepository) Resolve(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE students SET resolved = TRUE, updated_at = $2 WHERE id = $1 AND resolved = FALSE AND status IN ('denied', 'confirmed')`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("resolve student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve student rows affected: %w", err)
	}
	return affected > 0, nil
}
