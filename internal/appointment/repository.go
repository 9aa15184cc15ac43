package appointment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrDoctorSlotTaken is returned by Insert when the storage-level unique
	// index on (doctor_id, start_time) rejects the row. It is the backstop
	// behind the booking lock.
	ErrDoctorSlotTaken = errors.New("doctor already booked at this start time")
)

// Repository contains all DB interactions needed by the lifecycle service.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Appointment, error)

	Insert(ctx context.Context, a *Appointment) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status Status, cancelledAt *time.Time) (*Appointment, error)
	Delete(ctx context.Context, id int64) error

	// Conflict checks: non-cancelled appointments at an exact start time,
	// optionally excluding one appointment id (0 = exclude nothing).
	CountDoctorAt(ctx context.Context, doctorID int64, start time.Time, excludeID int64) (int, error)
	CountPatientAt(ctx context.Context, patientID int64, start time.Time, excludeID int64) (int, error)

	// Availability uses true interval overlap, unlike the booking rule above.
	HasOverlappingDoctorAppointment(ctx context.Context, doctorID int64, start, end time.Time) (bool, error)

	// Query operations
	ListAll(ctx context.Context) ([]Appointment, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]Appointment, error)
	ListBetween(ctx context.Context, start, end time.Time, doctorID *int64) ([]Appointment, error)

	// Reminder worker. ListPlannedBetween only returns appointments whose
	// reminder has not been sent yet; MarkReminderSent claims one for
	// delivery and reports false when another worker got there first.
	ListPlannedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) (bool, error)
}
