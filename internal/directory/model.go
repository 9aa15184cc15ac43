package directory

import "time"

// Role tags a directory identity. There is no user inheritance hierarchy:
// every record is one concrete role.
type Role string

const (
	RoleDoctor    Role = "MEDECIN"
	RolePatient   Role = "PATIENT"
	RoleSecretary Role = "SECRETAIRE"
	RoleAdmin     Role = "ADMIN"
)

type Patient struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is "Prénom Nom", the form used in notification messages.
func (p *Patient) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

type Doctor struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

type Secretary struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
