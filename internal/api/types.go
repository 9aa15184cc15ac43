package api

import (
	"time"

	"github.com/groupeclinic/clinic-scheduling/internal/appointment"
	"github.com/groupeclinic/clinic-scheduling/internal/directory"
)

// RendezvousRequest is the single typed input contract for create and
// update. Field names match the frontend payloads.
type RendezvousRequest struct {
	MedecinID    int64     `json:"medecinId"`
	PatientID    int64     `json:"patientId"`
	SecretaireID *int64    `json:"secretaireId,omitempty"`
	DateHeure    time.Time `json:"dateHeureDebut"`
	DureeMinutes int       `json:"dureeMinutes,omitempty"`
	Motif        string    `json:"motif"`
	Salle        string    `json:"salle"`
}

type StatusRequest struct {
	Statut string `json:"statut"`
}

type RendezvousResponse struct {
	ID             int64      `json:"id"`
	DateHeureDebut time.Time  `json:"dateHeureDebut"`
	DateHeureFin   *time.Time `json:"dateHeureFin,omitempty"`
	DateAnnulation *time.Time `json:"dateAnnulation,omitempty"`
	Motif          string     `json:"motif"`
	Salle          string     `json:"salle"`
	Statut         string     `json:"statut"`
	MedecinID      int64      `json:"medecinId"`
	PatientID      int64      `json:"patientId"`
	SecretaireID   *int64     `json:"secretaireId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type AvailabilityResponse struct {
	MedecinID int64     `json:"medecinId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type MedecinResponse struct {
	ID         int64   `json:"id"`
	Prenom     string  `json:"prenom"`
	Nom        string  `json:"nom"`
	Email      string  `json:"email"`
	Specialite *string `json:"specialite,omitempty"`
}

type PatientResponse struct {
	ID            int64      `json:"id"`
	Prenom        string     `json:"prenom"`
	Nom           string     `json:"nom"`
	Email         string     `json:"email"`
	Telephone     *string    `json:"telephone,omitempty"`
	DateNaissance *time.Time `json:"dateNaissance,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toRendezvousResponse(a *appointment.Appointment) RendezvousResponse {
	return RendezvousResponse{
		ID:             a.ID,
		DateHeureDebut: a.StartTime,
		DateHeureFin:   a.EndTime,
		DateAnnulation: a.CancelledAt,
		Motif:          a.Reason,
		Salle:          a.Room,
		Statut:         string(a.Status),
		MedecinID:      a.DoctorID,
		PatientID:      a.PatientID,
		SecretaireID:   a.SecretaryID,
		CreatedAt:      a.CreatedAt,
	}
}

func toRendezvousList(appts []appointment.Appointment) []RendezvousResponse {
	out := make([]RendezvousResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toRendezvousResponse(&appts[i]))
	}
	return out
}

func toMedecinList(doctors []directory.Doctor) []MedecinResponse {
	out := make([]MedecinResponse, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, MedecinResponse{
			ID:         d.ID,
			Prenom:     d.FirstName,
			Nom:        d.LastName,
			Email:      d.Email,
			Specialite: d.Specialty,
		})
	}
	return out
}

func toPatientList(patients []directory.Patient) []PatientResponse {
	out := make([]PatientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, PatientResponse{
			ID:            p.ID,
			Prenom:        p.FirstName,
			Nom:           p.LastName,
			Email:         p.Email,
			Telephone:     p.Phone,
			DateNaissance: p.BirthDate,
		})
	}
	return out
}
