package appointment

import "time"

type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment binds one doctor and one patient to a time slot. EndTime is
// only set when a duration was given at creation, CancelledAt only when the
// appointment was cancelled, ReminderSentAt once the reminder worker has
// notified both parties.
type Appointment struct {
	ID             int64
	StartTime      time.Time
	EndTime        *time.Time
	CancelledAt    *time.Time
	ReminderSentAt *time.Time
	Reason         string
	Room           string
	Status         Status
	PatientID      int64
	DoctorID       int64
	SecretaryID    *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
