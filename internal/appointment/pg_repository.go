package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, start_time, end_time, cancelled_at, reminder_sent_at, reason, room, status,
	patient_id, doctor_id, secretary_id, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.StartTime,
		&a.EndTime,
		&a.CancelledAt,
		&a.ReminderSentAt,
		&a.Reason,
		&a.Room,
		&a.Status,
		&a.PatientID,
		&a.DoctorID,
		&a.SecretaryID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM rendezvous
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO rendezvous (start_time, end_time, reason, room, status,
			patient_id, doctor_id, secretary_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.StartTime, a.EndTime, a.Reason, a.Room, a.Status, a.PatientID, a.DoctorID, a.SecretaryID)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDoctorSlotTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rendezvous
		SET start_time = $2,
		    end_time = $3,
		    reason = $4,
		    room = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.StartTime, a.EndTime, a.Reason, a.Room)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDoctorSlotTaken
		}
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id int64, status Status, cancelledAt *time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rendezvous
		SET status = $2,
		    cancelled_at = COALESCE($3, cancelled_at),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, status, cancelledAt)

	return scanAppointment(row)
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rendezvous WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rendezvous: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

func (r *PgRepository) CountDoctorAt(ctx context.Context, doctorID int64, start time.Time, excludeID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM rendezvous
		WHERE doctor_id = $1
		  AND start_time = $2
		  AND status <> 'CANCELLED'
		  AND id <> $3
	`, doctorID, start, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PgRepository) CountPatientAt(ctx context.Context, patientID int64, start time.Time, excludeID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM rendezvous
		WHERE patient_id = $1
		  AND start_time = $2
		  AND status <> 'CANCELLED'
		  AND id <> $3
	`, patientID, start, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PgRepository) HasOverlappingDoctorAppointment(ctx context.Context, doctorID int64, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM rendezvous
			WHERE doctor_id = $1
			  AND status <> 'CANCELLED'
			  AND start_time < $3
			  AND COALESCE(end_time, start_time + interval '30 minutes') > $2
		)
	`, doctorID, start, end).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM rendezvous
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListUpcoming(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM rendezvous
		WHERE start_time > $1
		ORDER BY start_time
	`, now)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListBetween(ctx context.Context, start, end time.Time, doctorID *int64) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM rendezvous
		WHERE start_time BETWEEN $1 AND $2
		  AND ($3::bigint IS NULL OR doctor_id = $3)
		ORDER BY start_time
	`, start, end, doctorID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListPlannedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM rendezvous
		WHERE status = 'PLANNED'
		  AND start_time BETWEEN $1 AND $2
		  AND reminder_sent_at IS NULL
		ORDER BY start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rendezvous
		SET reminder_sent_at = $2
		WHERE id = $1
		  AND reminder_sent_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
