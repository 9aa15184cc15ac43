package directory

import (
	"context"
	"errors"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSecretaryNotFound = errors.New("secretary not found")
)

// Repository is the read side of the clinic directory. The appointment
// service only ever resolves identities through it, never mutates them.
type Repository interface {
	FindPatientByID(ctx context.Context, id int64) (*Patient, error)
	FindDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	FindSecretaryByID(ctx context.Context, id int64) (*Secretary, error)

	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListPatients(ctx context.Context) ([]Patient, error)
}
