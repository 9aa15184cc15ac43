package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groupeclinic/clinic-scheduling/internal/audit"
	"github.com/groupeclinic/clinic-scheduling/internal/config"
	"github.com/groupeclinic/clinic-scheduling/internal/directory"
	"github.com/groupeclinic/clinic-scheduling/internal/notify"
	redisclient "github.com/groupeclinic/clinic-scheduling/internal/redis"
)

var (
	ErrPastStartTime           = errors.New("start time must not be in the past")
	ErrTooLateToCancel         = errors.New("impossible d'annuler un rendez-vous moins de 24h avant")
	ErrAlreadyCancelled        = errors.New("rendezvous is already cancelled")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnknownStatus           = errors.New("unknown status")
	ErrTerminalRendezvous      = errors.New("rendezvous is completed or cancelled")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
)

type CreateParams struct {
	DoctorID        int64
	PatientID       int64
	SecretaryID     *int64
	StartTime       time.Time
	DurationMinutes int // optional, derives EndTime when > 0
	Reason          string
	Room            string
}

type UpdateParams struct {
	DoctorID        int64
	PatientID       int64
	StartTime       time.Time
	DurationMinutes int
	Reason          string
	Room            string
}

// Service owns the appointment lifecycle: create, reschedule, status
// transitions, cancellation and the read queries. Every mutation is
// attributed to an explicit principal for the audit trail.
type Service struct {
	repo       Repository
	dir        directory.Repository
	checker    *ConflictChecker
	locker     redisclient.Locker
	dispatcher notify.Dispatcher
	auditor    audit.Recorder
	cfg        config.Config
}

func NewService(
	repo Repository,
	dir directory.Repository,
	locker redisclient.Locker,
	dispatcher notify.Dispatcher,
	auditor audit.Recorder,
	cfg config.Config,
) *Service {
	return &Service{
		repo:       repo,
		dir:        dir,
		checker:    NewConflictChecker(repo),
		locker:     locker,
		dispatcher: dispatcher,
		auditor:    auditor,
		cfg:        cfg,
	}
}

// Create books a new appointment in PLANNED status. The conflict check and
// the insert run inside a per-(doctor, start) booking lock so concurrent
// requests for the same slot cannot both pass the check; the unique index on
// (doctor_id, start_time) is the storage-level backstop.
//
// On conflict the doctor and all secretaries are notified before the error
// is returned: failed booking attempts must be visible, not just refused.
func (s *Service) Create(ctx context.Context, principal audit.Principal, p CreateParams) (*Appointment, error) {
	if p.StartTime.Before(time.Now()) {
		return nil, ErrPastStartTime
	}

	doctor, err := s.dir.FindDoctorByID(ctx, p.DoctorID)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if _, err := s.dir.FindPatientByID(ctx, p.PatientID); err != nil {
		if errors.Is(err, directory.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	if p.SecretaryID != nil {
		if _, err := s.dir.FindSecretaryByID(ctx, *p.SecretaryID); err != nil {
			if errors.Is(err, directory.ErrSecretaryNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load secretary: %w", err)
		}
	}

	var endTime *time.Time
	if p.DurationMinutes > 0 {
		t := p.StartTime.Add(time.Duration(p.DurationMinutes) * time.Minute)
		endTime = &t
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, p.DoctorID, p.StartTime, func(lockCtx context.Context) error {
		if err := s.checker.Check(lockCtx, p.DoctorID, p.PatientID, p.StartTime, 0); err != nil {
			return err
		}

		appt, err := s.repo.Insert(lockCtx, &Appointment{
			StartTime:   p.StartTime,
			EndTime:     endTime,
			Reason:      p.Reason,
			Room:        p.Room,
			Status:      StatusPlanned,
			PatientID:   p.PatientID,
			DoctorID:    p.DoctorID,
			SecretaryID: p.SecretaryID,
		})
		if err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrDoctorSlotTaken) {
			err = &ConflictError{Kind: ConflictDoctorDoubleBooked, Reason: msgDoctorConflict}
		}

		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.notifyConflict(ctx, doctor.ID, conflict)
			return nil, conflict
		}
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, notify.Event{
		Type:          notify.EventNewRendezvous,
		Message:       "Nouveau rendez-vous planifié pour " + created.StartTime.Format("2006-01-02"),
		AppointmentID: &created.ID,
		RecipientRole: directory.RoleDoctor,
		RecipientID:   &created.DoctorID,
		Timestamp:     time.Now(),
	})

	s.record(ctx, principal, audit.ActionCreateRendezvous,
		fmt.Sprintf("Création rendez-vous ID: %d", created.ID))

	return created, nil
}

// Update reschedules an appointment: start time, reason and room change, the
// doctor/patient association and the status do not. Completed and cancelled
// appointments cannot be rescheduled. The conflict check excludes the
// appointment itself, and re-validates the stored association when the
// request names different ids.
func (s *Service) Update(ctx context.Context, principal audit.Principal, id int64, p UpdateParams) (*Appointment, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status.Terminal() {
		return nil, ErrTerminalRendezvous
	}

	if p.StartTime.Before(time.Now()) {
		return nil, ErrPastStartTime
	}

	if err := s.checker.Check(ctx, p.DoctorID, p.PatientID, p.StartTime, id); err != nil {
		return nil, err
	}
	if p.DoctorID != existing.DoctorID || p.PatientID != existing.PatientID {
		if err := s.checker.Check(ctx, existing.DoctorID, existing.PatientID, p.StartTime, id); err != nil {
			return nil, err
		}
	}

	existing.StartTime = p.StartTime
	if p.DurationMinutes > 0 {
		t := p.StartTime.Add(time.Duration(p.DurationMinutes) * time.Minute)
		existing.EndTime = &t
	}
	existing.Reason = p.Reason
	existing.Room = p.Room

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, ErrDoctorSlotTaken) {
			return nil, &ConflictError{Kind: ConflictDoctorDoubleBooked, Reason: msgDoctorConflict}
		}
		return nil, err
	}

	s.record(ctx, principal, audit.ActionUpdateRendezvous,
		fmt.Sprintf("Modification rendez-vous ID: %d", updated.ID))

	return updated, nil
}

// UpdateStatus moves an appointment to newStatus. COMPLETED and CANCELLED
// are terminal; any other transition is allowed, including PLANNED straight
// to COMPLETED. Moving to CANCELLED stamps the cancellation time. Re-asserting
// a terminal status never re-stamps or re-notifies: cancelling twice is an
// error, completing twice is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, principal audit.Principal, id int64, newStatus Status) (*Appointment, error) {
	if !newStatus.Valid() {
		return nil, ErrUnknownStatus
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status.Terminal() {
		if newStatus != existing.Status {
			return nil, ErrInvalidStatusTransition
		}
		if newStatus == StatusCancelled {
			return nil, ErrAlreadyCancelled
		}
		return existing, nil
	}

	var cancelledAt *time.Time
	if newStatus == StatusCancelled {
		now := time.Now()
		cancelledAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, id, newStatus, cancelledAt)
	if err != nil {
		return nil, err
	}

	s.notifyStatusChange(ctx, updated)

	s.record(ctx, principal, audit.ActionUpdateRendezvousStatus,
		fmt.Sprintf("Changement statut RDV ID: %d -> %s", updated.ID, newStatus))

	return updated, nil
}

// Cancel is the soft, rule-guarded path: it refuses within the cancellation
// window and refuses to re-cancel. Delete is the unguarded hard removal.
func (s *Service) Cancel(ctx context.Context, principal audit.Principal, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	if existing.StartTime.Before(time.Now().Add(s.cfg.CancelWindow)) {
		return ErrTooLateToCancel
	}

	now := time.Now()
	if _, err := s.repo.UpdateStatus(ctx, id, StatusCancelled, &now); err != nil {
		return err
	}

	s.record(ctx, principal, audit.ActionCancelRendezvous,
		fmt.Sprintf("Annulation rendez-vous ID: %d", id))

	return nil
}

// Delete hard-removes the record with no business-rule guard.
func (s *Service) Delete(ctx context.Context, principal audit.Principal, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, principal, audit.ActionDeleteRendezvous,
		fmt.Sprintf("Suppression rendez-vous ID: %d", id))

	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAll returns every appointment, most recently created first.
func (s *Service) ListAll(ctx context.Context) ([]Appointment, error) {
	return s.repo.ListAll(ctx)
}

// ListUpcoming returns appointments whose start time is strictly in the
// future, soonest first.
func (s *Service) ListUpcoming(ctx context.Context) ([]Appointment, error) {
	return s.repo.ListUpcoming(ctx, time.Now())
}

// ListBetween returns appointments in [start, end] in chronological order,
// optionally restricted to one doctor.
func (s *Service) ListBetween(ctx context.Context, start, end time.Time, doctorID *int64) ([]Appointment, error) {
	return s.repo.ListBetween(ctx, start, end, doctorID)
}

// DoctorAvailable reports whether the doctor has no non-cancelled
// appointment overlapping [start, end). Note the booking rule itself is
// exact start-time equality, not overlap.
func (s *Service) DoctorAvailable(ctx context.Context, doctorID int64, start, end time.Time) (bool, error) {
	if _, err := s.dir.FindDoctorByID(ctx, doctorID); err != nil {
		return false, err
	}

	busy, err := s.repo.HasOverlappingDoctorAppointment(ctx, doctorID, start, end)
	if err != nil {
		return false, err
	}

	return !busy, nil
}

// SendReminders dispatches a reminder to the doctor and the patient of every
// PLANNED appointment starting within lookahead. Called periodically by the
// reminder worker. Each appointment is reminded at most once: the repository
// stamps reminder_sent_at before dispatch, so neither the next tick nor a
// concurrent worker delivers it again.
func (s *Service) SendReminders(ctx context.Context, lookahead time.Duration) error {
	now := time.Now()

	upcoming, err := s.repo.ListPlannedBetween(ctx, now, now.Add(lookahead))
	if err != nil {
		return fmt.Errorf("list planned appointments: %w", err)
	}

	for _, appt := range upcoming {
		claimed, err := s.repo.MarkReminderSent(ctx, appt.ID, now)
		if err != nil {
			log.Error().Err(err).Int64("rendezvous_id", appt.ID).Msg("reminder: mark sent")
			continue
		}
		if !claimed {
			continue
		}

		doctor, err := s.dir.FindDoctorByID(ctx, appt.DoctorID)
		if err != nil {
			log.Error().Err(err).Int64("rendezvous_id", appt.ID).Msg("reminder: load doctor")
			continue
		}
		patient, err := s.dir.FindPatientByID(ctx, appt.PatientID)
		if err != nil {
			log.Error().Err(err).Int64("rendezvous_id", appt.ID).Msg("reminder: load patient")
			continue
		}

		at := appt.StartTime.Format("15:04")
		apptID := appt.ID

		s.dispatcher.Dispatch(ctx, notify.Event{
			Type:           notify.EventReminder,
			Message:        fmt.Sprintf("Rappel: RDV avec %s à %s", patient.DisplayName(), at),
			AppointmentID:  &apptID,
			RecipientRole:  directory.RoleDoctor,
			RecipientID:    &appt.DoctorID,
			Timestamp:      time.Now(),
			RecipientEmail: doctor.Email,
			EmailSubject:   "Rappel de rendez-vous",
		})

		s.dispatcher.Dispatch(ctx, notify.Event{
			Type:           notify.EventReminder,
			Message:        fmt.Sprintf("Rappel: RDV avec %s à %s", doctor.DisplayName(), at),
			AppointmentID:  &apptID,
			RecipientRole:  directory.RolePatient,
			RecipientID:    &appt.PatientID,
			Timestamp:      time.Now(),
			RecipientEmail: patient.Email,
			EmailSubject:   "Rappel de rendez-vous",
		})
	}

	return nil
}

// notifyConflict alerts the doctor privately and every secretary on the
// broadcast channel about a refused booking attempt.
func (s *Service) notifyConflict(ctx context.Context, doctorID int64, conflict *ConflictError) {
	s.dispatcher.Dispatch(ctx, notify.Event{
		Type:          notify.EventConflictDetected,
		Message:       "⚠️ Conflit de rendez-vous: " + conflict.Reason,
		RecipientRole: directory.RoleDoctor,
		RecipientID:   &doctorID,
		Timestamp:     time.Now(),
	})

	s.dispatcher.Dispatch(ctx, notify.Event{
		Type:          notify.EventConflictDetected,
		Message:       "⚠️ Tentative de création échouée: " + conflict.Reason,
		RecipientRole: directory.RoleSecretary,
		Timestamp:     time.Now(),
	})
}

func (s *Service) notifyStatusChange(ctx context.Context, appt *Appointment) {
	var eventType, message string

	switch appt.Status {
	case StatusConfirmed:
		eventType = notify.EventConfirmed
		message = "Rendez-vous confirmé pour " + appt.StartTime.Format("2006-01-02")
	case StatusCompleted:
		eventType = notify.EventCompleted
		message = "Rendez-vous terminé avec succès"
	case StatusCancelled:
		eventType = notify.EventCancelled
		message = "Rendez-vous annulé pour " + appt.StartTime.Format("2006-01-02")
	default:
		return // PLANNED produces no event
	}

	apptID := appt.ID
	s.dispatcher.Dispatch(ctx, notify.Event{
		Type:          eventType,
		Message:       message,
		AppointmentID: &apptID,
		RecipientRole: directory.RoleDoctor,
		RecipientID:   &appt.DoctorID,
		Timestamp:     time.Now(),
	})
}

// record writes an audit entry; failures are logged, never surfaced, so a
// broken audit store cannot block clinic operations.
func (s *Service) record(ctx context.Context, p audit.Principal, action, details string) {
	if err := s.auditor.Record(ctx, audit.NewEntry(p, action, details)); err != nil {
		log.Error().Err(err).Str("action", action).Msg("audit record failed")
	}
}
