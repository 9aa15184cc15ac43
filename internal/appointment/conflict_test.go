package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAppointment(t *testing.T, repo *memRepo, doctorID, patientID int64, start time.Time, status Status) *Appointment {
	t.Helper()
	appt, err := repo.Insert(context.Background(), &Appointment{
		StartTime: start,
		Status:    status,
		DoctorID:  doctorID,
		PatientID: patientID,
	})
	require.NoError(t, err)
	return appt
}

func TestCheckPassesOnFreeSlot(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)

	err := checker.Check(context.Background(), 1, 10, time.Now().Add(time.Hour), 0)
	assert.NoError(t, err)
}

func TestCheckReportsDoctorBeforePatient(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)
	start := time.Now().Add(time.Hour)

	// The existing booking collides on both sides; the doctor wins.
	seedAppointment(t, repo, 1, 10, start, StatusPlanned)

	err := checker.Check(context.Background(), 1, 10, start, 0)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictDoctorDoubleBooked, conflict.Kind)
}

func TestCheckPatientConflict(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)
	start := time.Now().Add(time.Hour)

	seedAppointment(t, repo, 1, 10, start, StatusConfirmed)

	err := checker.Check(context.Background(), 2, 10, start, 0)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictPatientDoubleBooked, conflict.Kind)
	assert.Equal(t, "Le patient a déjà un rendez-vous à cette heure exacte", conflict.Error())
}

func TestCheckExactTimeOnly(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)
	start := time.Now().Add(time.Hour)

	seedAppointment(t, repo, 1, 10, start, StatusPlanned)

	// One minute later is a different slot under the booking rule, even if the
	// intervals would overlap.
	err := checker.Check(context.Background(), 1, 10, start.Add(time.Minute), 0)
	assert.NoError(t, err)
}

func TestCheckIgnoresCancelled(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)
	start := time.Now().Add(time.Hour)

	seedAppointment(t, repo, 1, 10, start, StatusCancelled)

	err := checker.Check(context.Background(), 1, 10, start, 0)
	assert.NoError(t, err)
}

func TestCheckExcludesGivenID(t *testing.T) {
	repo := newMemRepo()
	checker := NewConflictChecker(repo)
	start := time.Now().Add(time.Hour)

	mine := seedAppointment(t, repo, 1, 10, start, StatusPlanned)
	other := seedAppointment(t, repo, 1, 11, start.Add(time.Hour), StatusPlanned)

	// Excluding itself, the appointment can keep its own slot.
	assert.NoError(t, checker.Check(context.Background(), 1, 10, start, mine.ID))

	// Excluding some other appointment does not help.
	var conflict *ConflictError
	err := checker.Check(context.Background(), 1, 10, start, other.ID)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictDoctorDoubleBooked, conflict.Kind)
}
