// Package program covers the participant's side of a training program besides attendance:
// the dashboard, documents, reports, the payment proof, the certificate and announcements.
package program

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
)

// Review states of a report
const (
	ReportNew      = "new"
	ReportInReview = "in_review"
	ReportAccepted = "accepted"
	ReportRejected = "rejected"
)

// Certificate states
const (
	CertificateIssued      = "issued"
	CertificatePending     = "pending_issue" // requirements met, waiting for an admin
	CertificateNotEligible = "not_eligible"
)

// Participant types
const (
	TypeStudent = "PELAJAR"
	TypeGeneral = "UMUM"
)

// MaxUploadSize is the largest document, report or payment proof accepted.
const MaxUploadSize = 10 << 20

type (
	// Report is a progress or final report submitted by the participant.
	Report struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		SubmittedOn string `json:"submitted_on"` // YYYY-MM-DD
		Status      string `json:"status"`
		Feedback    string `json:"feedback"`
		FileURL     string `json:"file_url"`
		Filename    string `json:"filename"`
	}

	// Payment is the proof of payment of a general participant. There is at most one.
	Payment struct {
		ID           int       `json:"id"`
		File         string    `json:"file"`
		UploadedAt   null.Time `json:"uploaded_at"`
		Verification string    `json:"verification"`
		AdminNote    string    `json:"admin_note"`
	}

	Requirement struct {
		Description string `json:"description"`
		Met         bool   `json:"met"`
	}

	// Certificate tells where the participant stands with the program certificate.
	// The issued fields are only set once Status is CertificateIssued.
	Certificate struct {
		Status       string        `json:"status"`
		Message      string        `json:"message"`
		Number       string        `json:"number,omitempty"`
		FileURL      string        `json:"file_url,omitempty"`
		IssuedOn     string        `json:"issued_on,omitempty"` // YYYY-MM-DD
		Template     string        `json:"template,omitempty"`
		Requirements []Requirement `json:"requirements,omitempty"`
	}

	Announcement struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Content     string `json:"content"`
		Author      string `json:"author"`
		Category    string `json:"category"`
		Target      string `json:"target"`
		Priority    string `json:"priority"` // high | medium | low
		Status      string `json:"status"`
		CreatedOn   string `json:"created_on"`   // YYYY-MM-DD
		PublishedOn string `json:"published_on"` // YYYY-MM-DD, empty while a draft
	}

	Progress struct {
		DaysLeft    int `json:"days_left"`
		TotalDays   int `json:"total_days"`
		PercentDone int `json:"percent_done"`
	}

	UploadStatus struct {
		Uploaded     bool      `json:"uploaded"`
		UploadedAt   null.Time `json:"uploaded_at"`
		Verification string    `json:"verification,omitempty"`
		FileURL      string    `json:"file_url,omitempty"`
	}

	Mentor struct {
		FullName string `json:"full_name"`
		Position string `json:"position"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		PhotoURL string `json:"photo_url,omitempty"`
	}

	// Dashboard is the participant's summary page.
	Dashboard struct {
		ParticipantType      string         `json:"participant_type"`
		TotalPresent         int            `json:"total_present"`
		Progress             Progress       `json:"progress"`
		CertificateAvailable bool           `json:"certificate_available"`
		Report               UploadStatus   `json:"report"`
		Payment              UploadStatus   `json:"payment"`
		Mentor               *Mentor        `json:"mentor"`
		Announcements        []Announcement `json:"announcements"`
	}
)

// Requests
type (
	DocumentUpload struct {
		Kind string                 `json:"kind" validate:"required,notblank,max=100"`
		File *attendance.Attachment `json:"file" validate:"required"`
	}

	ReportRequest struct {
		Title       string                 `json:"title" validate:"required,notblank,max=255"`
		Description string                 `json:"description" validate:"required,notblank"`
		File        *attendance.Attachment `json:"file" validate:"required"`
	}

	PaymentUpload struct {
		File *attendance.Attachment `json:"file" validate:"required"`
	}
)

func (du *DocumentUpload) Validate(validate *validator.Validate) error {
	du.Kind = core.CleanString(du.Kind, true /* lower */)
	return validate.Struct(du)
}

func (rr *ReportRequest) Validate(validate *validator.Validate) error {
	rr.Title = core.CleanString(rr.Title)
	rr.Description = core.CleanString(rr.Description)
	return validate.Struct(rr)
}

func (pu *PaymentUpload) Validate(validate *validator.Validate) error {
	return validate.Struct(pu)
}

// Latest returns the most recently submitted report.
func Latest(reports []Report) (Report, bool) {
	var latest Report
	var found bool
	for _, r := range reports {
		if !found || r.SubmittedOn > latest.SubmittedOn || (r.SubmittedOn == latest.SubmittedOn && r.ID > latest.ID) {
			latest, found = r, true
		}
	}
	return latest, found
}

func (c Certificate) Issued() bool { return c.Status == CertificateIssued }

// Unmet lists the requirements still standing between the participant and the certificate.
func (c Certificate) Unmet() []Requirement {
	var unmet []Requirement
	for _, r := range c.Requirements {
		if !r.Met {
			unmet = append(unmet, r)
		}
	}
	return unmet
}
