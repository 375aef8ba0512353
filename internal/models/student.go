package models

import (
	"errors"
	"fmt"
	"time"
)

// StudentStatus is the lifecycle state of a spreadsheet row.
type StudentStatus string

const (
	StatusStarted       StudentStatus = "started"
	StatusNotInterested StudentStatus = "not_interested"
	StatusInterested    StudentStatus = "interested"
	StatusDenied        StudentStatus = "denied"
	StatusConfirmed     StudentStatus = "confirmed"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStudentResolved is returned when a resolved student is modified.
	ErrStudentResolved = errors.New("student already resolved")
	// ErrNotResolvable is returned when resolving outside denied or confirmed.
	ErrNotResolvable = errors.New("student status is not resolvable")
)

var transitions = map[StudentStatus][]StudentStatus{
	StatusStarted:       {StatusInterested, StatusNotInterested},
	StatusInterested:    {StatusNotInterested, StatusDenied, StatusConfirmed},
	StatusNotInterested: {StatusInterested, StatusDenied, StatusConfirmed},
	StatusDenied:        {},
	StatusConfirmed:     {},
}

// StudentStatuses lists every status in lifecycle order.
func StudentStatuses() []StudentStatus {
	return []StudentStatus{StatusStarted, StatusNotInterested, StatusInterested, StatusDenied, StatusConfirmed}
}

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Resolvable reports whether a student in this status may be resolved.
func (s StudentStatus) Resolvable() bool {
	return s == StatusDenied || s == StatusConfirmed
}

// CanTransition reports whether from may move to to. Self transitions are allowed.
func CanTransition(from, to StudentStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatusAllowed reports whether a new submission may start in status.
func InitialStatusAllowed(status StudentStatus) bool {
	return CanTransition(StatusStarted, status)
}

// StudentInfo is the four column record read from a source row.
type StudentInfo struct {
	Name        string `json:"name"`
	ParentName  string `json:"parent_name"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Education   string `json:"education"`
}

// ResponseRow is the six column record mirrored into the response spreadsheet.
type ResponseRow struct {
	StudentInfo
	LatestResponse string
	Status         StudentStatus
}

// Values returns the row in column order.
func (r ResponseRow) Values() []interface{} {
	return []interface{}{r.Name, r.ParentName, r.PhoneNumber, r.Education, r.LatestResponse, string(r.Status)}
}

// Student is the portal lifecycle record of one source row.
type Student struct {
	ID          string        `db:"id" json:"id"`
	DataFileID  string        `db:"data_file_id" json:"data_file_id"`
	RowNo       int           `db:"row_no" json:"row_no"`
	Name        string        `db:"name" json:"name"`
	ParentName  string        `db:"parent_name" json:"parent_name"`
	PhoneNumber string        `db:"phone_number" json:"phone_number"`
	Education   string        `db:"education" json:"education"`
	Status      StudentStatus `db:"status" json:"status"`
	Resolved    bool          `db:"resolved" json:"resolved"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// NewStudent builds a student for a freshly submitted row.
func NewStudent(dataFileID string, row int, info StudentInfo, status StudentStatus) (*Student, error) {
	if !InitialStatusAllowed(status) {
		return nil, fmt.Errorf("%w: %s is not reachable from %s", ErrInvalidTransition, status, StatusStarted)
	}
	return &Student{
		DataFileID:  dataFileID,
		RowNo:       row,
		Name:        info.Name,
		ParentName:  info.ParentName,
		PhoneNumber: info.PhoneNumber,
		Education:   info.Education,
		Status:      status,
	}, nil
}

// Info returns the source row fields held by the student.
func (s Student) Info() StudentInfo {
	return StudentInfo{Name: s.Name, ParentName: s.ParentName, PhoneNumber: s.PhoneNumber, Education: s.Education}
}

// AcceptsResponses reports whether new notes may be appended.
func (s Student) AcceptsResponses() bool {
	return !s.Resolved
}

// IsResolvable reports whether Resolve would succeed.
func (s Student) IsResolvable() bool {
	return !s.Resolved && s.Status.Resolvable()
}

// Transition moves the student to the next status.
func (s *Student) Transition(to StudentStatus) error {
	if s.Resolved {
		return ErrStudentResolved
	}
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// Resolve marks the student resolved. State is untouched on failure.
func (s *Student) Resolve() error {
	if s.Resolved {
		return ErrStudentResolved
	}
	if !s.Status.Resolvable() {
		return fmt.Errorf("%w: %s", ErrNotResolvable, s.Status)
	}
	s.Resolved = true
	return nil
}

// StudentWithLatest is a follow up row with its most recent note.
type StudentWithLatest struct {
	Student
	LatestResponse *string    `db:"latest_response" json:"latest_response,omitempty"`
	LastContacted  *time.Time `db:"last_contacted" json:"last_contacted,omitempty"`
}
