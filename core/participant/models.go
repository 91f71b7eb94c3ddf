package participant

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Roles
const (
	RoleAdmin       = "ADMIN"
	RoleParticipant = "PESERTA"
)

// Verification states of an uploaded file.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// RequiredDocuments are the document kinds a registration needs before attendance opens.
var RequiredDocuments = []string{"ktp", "ktm", "kk", "photo", "proposal", "nilai", "pernyataan"}

// User is the account bound to an access token.
type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (u User) IsParticipant() bool { return u.Role == RoleParticipant }

// Profile is the participant's registration profile as seen by the portal.
type Profile struct {
	ID                int        `json:"id"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email"`
	Type              string     `json:"type"`   // Student | General
	Status            string     `json:"status"` // server-side lifecycle label
	Institution       string     `json:"institution"`
	Placement         string     `json:"placement"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	ProfileComplete   bool       `json:"profile_complete"`
	DocumentsComplete bool       `json:"documents_complete"`
	Documents         []Document `json:"documents"`
}

// Document is a registration document uploaded by the participant, one per kind.
type Document struct {
	ID           int       `json:"id"`
	Kind         string    `json:"kind"` // ktp, proposal, pernyataan...
	File         string    `json:"file"`
	UploadedAt   null.Time `json:"uploaded_at"`
	Verification string    `json:"verification"`
	Note         string    `json:"note"`
}

// Document returns the uploaded document of the given kind.
func (p Profile) Document(kind string) (Document, bool) {
	for _, d := range p.Documents {
		if d.Kind == kind {
			return d, true
		}
	}
	return Document{}, false
}

// AttendanceAllowed reports whether the profile and the required documents are complete.
// Attendance features stay locked until both are.
func (p Profile) AttendanceAllowed() bool {
	return p.ProfileComplete && p.DocumentsComplete
}

// MissingDocuments lists the required document kinds not uploaded yet.
func (p Profile) MissingDocuments() []string {
	var missing []string
	for _, kind := range RequiredDocuments {
		if _, ok := p.Document(kind); !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}
