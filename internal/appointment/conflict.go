package appointment

import (
	"context"
	"fmt"
	"time"
)

type ConflictKind string

const (
	ConflictDoctorDoubleBooked  ConflictKind = "DOCTOR_DOUBLE_BOOKED"
	ConflictPatientDoubleBooked ConflictKind = "PATIENT_DOUBLE_BOOKED"
)

// Messages surfaced to secretaries; the frontend displays them verbatim.
const (
	msgDoctorConflict  = "Le médecin a déjà un rendez-vous à cette heure"
	msgPatientConflict = "Le patient a déjà un rendez-vous à cette heure exacte"
)

// ConflictError reports a scheduling collision.
type ConflictError struct {
	Kind   ConflictKind
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// ConflictChecker decides whether a proposed slot is compatible with the
// existing bookings. The booking rule is exact start-time equality over
// non-cancelled appointments; interval overlap is only used by the separate
// availability query.
type ConflictChecker struct {
	repo Repository
}

func NewConflictChecker(repo Repository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// Check returns a *ConflictError when the doctor or the patient already has
// a non-cancelled appointment at exactly start. excludeID (0 = none) lets an
// update validate a slot without colliding with itself. Read-only.
func (c *ConflictChecker) Check(ctx context.Context, doctorID, patientID int64, start time.Time, excludeID int64) error {
	n, err := c.repo.CountDoctorAt(ctx, doctorID, start, excludeID)
	if err != nil {
		return fmt.Errorf("check doctor conflicts: %w", err)
	}
	if n > 0 {
		return &ConflictError{Kind: ConflictDoctorDoubleBooked, Reason: msgDoctorConflict}
	}

	n, err = c.repo.CountPatientAt(ctx, patientID, start, excludeID)
	if err != nil {
		return fmt.Errorf("check patient conflicts: %w", err)
	}
	if n > 0 {
		return &ConflictError{Kind: ConflictPatientDoubleBooked, Reason: msgPatientConflict}
	}

	return nil
}
