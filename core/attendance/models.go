package attendance

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/bbpbat/portal/core"
)

// Record statuses
const (
	StatusPresent = "present"
	StatusExcused = "excused"
	StatusSick    = "sick"
	StatusAbsent  = "absent"
)

// Leave types
const (
	LeaveExcused = "excused"
	LeaveSick    = "sick"
)

// Day states of today's attendance card.
const (
	DayNoRecord   = "no_record"
	DayCheckedIn  = "checked_in"
	DayCheckedOut = "checked_out"
	DayExcused    = "excused"
	DaySick       = "sick"
	DayAbsent     = "absent"
	DayInactive   = "inactive"
)

// DateLayout is the calendar day format used by the API.
const DateLayout = "2006-01-02"

// MaxEvidenceSize is the largest evidence file accepted with a leave request.
const MaxEvidenceSize = 2 << 20

// Record is one day of attendance, owned by the server.
type Record struct {
	ID       int         `json:"id"`
	Date     string      `json:"date"` // YYYY-MM-DD
	Status   string      `json:"status"`
	CheckIn  null.String `json:"check_in"`  // HH:MM:SS
	CheckOut null.String `json:"check_out"` // HH:MM:SS
	Note     string      `json:"note"`
}

func (r Record) HasCheckIn() bool  { return r.CheckIn.Valid && r.CheckIn.String != "" }
func (r Record) HasCheckOut() bool { return r.CheckOut.Valid && r.CheckOut.String != "" }

// Attachment is a file sent along with a request.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// LeaveRequest is an excused-absence or sick-day claim for a single date.
type LeaveRequest struct {
	Date     string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type     string      `json:"type" validate:"required,oneof=excused sick"`
	Note     string      `json:"note" validate:"required,notblank"`
	Evidence *Attachment `json:"-"` // doctor's letter; only sent for sick leave
}

func (lr *LeaveRequest) Validate(validate *validator.Validate) error {
	lr.Date = core.CleanString(lr.Date)
	lr.Type = core.CleanString(lr.Type, true /* lower */)
	lr.Note = core.CleanString(lr.Note)
	return validate.Struct(lr)
}

// Eligibility tells which actions today's card offers.
// It is advisory; the server has the final word.
type Eligibility struct {
	IsWeekend       bool `json:"is_weekend"`
	CanCheckIn      bool `json:"can_check_in"`
	CanCheckOut     bool `json:"can_check_out"`
	CanRequestLeave bool `json:"can_request_leave"`
	Busy            bool `json:"busy"`
}

type Stats struct {
	Present        int `json:"present"`
	Excused        int `json:"excused"`
	Sick           int `json:"sick"`
	Absent         int `json:"absent"`
	PresentPercent int `json:"present_percent"`
}
