package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/participant"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrRestricted       = errors.New("complete your profile and required documents to use attendance")
	ErrOutOfRange       = errors.New("outside the attendance area")
	ErrBusy             = errors.New("a submission is already in progress")
	ErrNothingToSubmit  = errors.New("no attendance action is available today")
	ErrLeaveUnavailable = errors.New("a leave request cannot be made for this date")
)

type (
	// Client is the remote attendance API, bound to the participant's session.
	Client interface {
		AttendanceHistory(ctx context.Context) ([]Record, error)
		// MarkAttendance records a check-in or check-out; the server decides which.
		MarkAttendance(ctx context.Context) (string, error)
		SubmitLeave(ctx context.Context, req LeaveRequest) (string, error)
	}

	LocationChecker interface {
		CheckLocation(ctx context.Context) bool
		Status() geo.LocationStatus
		Zone() geo.Zone
	}

	Deps struct {
		Client     Client
		Checker    LocationChecker
		Notifier   core.Notifier // optional
		Validate   *validator.Validate
		Translator ut.Translator
		Gate       *Gate          // optional; share one to bound submissions across flows
		Key        string         // Gate key, usually the participant ID
		Location   *time.Location // optional; "today" is computed in this zone
	}

	// Flow drives the attendance page of one participant: it mirrors the server's
	// history, derives today's card and guards every submission with a fresh
	// location check. It never edits records locally.
	Flow struct {
		deps Deps

		mu         sync.RWMutex
		restricted bool
		loading    bool
		history    []Record
		fetchErr   error
	}

	// View is a snapshot of everything the attendance page shows.
	View struct {
		Restricted  bool               `json:"restricted"`
		Loading     bool               `json:"loading"`
		Location    geo.LocationStatus `json:"location"`
		Zone        geo.Zone           `json:"zone"`
		Today       *Record            `json:"today"`
		State       string             `json:"state"`
		Eligibility Eligibility        `json:"eligibility"`
		History     []Record           `json:"history"`
		Stats       Stats              `json:"stats"`
	}
)

func NewFlow(deps Deps) (*Flow, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Client, "Client"),
		vala.IsNotNil(deps.Checker, "Checker"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "attendance.NewFlow")
	}
	if deps.Notifier == nil {
		deps.Notifier = discard{}
	}
	if deps.Gate == nil {
		deps.Gate = NewGate()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Flow{deps: deps, restricted: true}, nil
}

// Mount opens the attendance page for the given profile. An incomplete profile leaves
// the flow restricted and nothing is fetched; otherwise the history is loaded and an
// initial location check is run.
func (f *Flow) Mount(ctx context.Context, profile participant.Profile) error {
	f.mu.Lock()
	f.restricted = !profile.AttendanceAllowed()
	restricted := f.restricted
	f.mu.Unlock()
	if restricted {
		return ErrRestricted
	}

	err := f.Refresh(ctx)
	f.deps.Checker.CheckLocation(ctx)
	return err
}

// Refresh reloads the history from the server. On failure the last fetched history is kept.
func (f *Flow) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.restricted {
		f.mu.Unlock()
		return ErrRestricted
	}
	f.loading = true
	f.mu.Unlock()

	records, err := f.deps.Client.AttendanceHistory(ctx)

	f.mu.Lock()
	f.loading = false
	f.fetchErr = err
	if err == nil {
		f.history = records
	}
	f.mu.Unlock()

	if err != nil {
		f.notify(core.NotifyError, core.UserMessage(err, "Failed to load attendance history."))
		return errors.Wrap(err, "fetching attendance history")
	}
	return nil
}

// Submit checks in or out. Once the gate is held the history is reloaded and the
// location verified again right before sending. Nothing is sent when the reloaded
// day no longer offers the action the caller saw, or when the device is outside the zone.
func (f *Flow) Submit(ctx context.Context) error {
	if f.Restricted() {
		return ErrRestricted
	}
	shown := f.Eligibility()
	if !(shown.CanCheckIn || shown.CanCheckOut) {
		return ErrNothingToSubmit
	}
	if !f.deps.Gate.TryAcquire(f.deps.Key) {
		return ErrBusy
	}
	defer f.deps.Gate.Release(f.deps.Key)

	// another flow sharing the gate may have submitted since our last fetch
	if err := f.Refresh(ctx); err != nil {
		return err
	}
	if elig := EligibilityAt(f.History(), f.now()); elig.CanCheckIn != shown.CanCheckIn || elig.CanCheckOut != shown.CanCheckOut {
		f.notify(core.NotifyError, "Today's attendance was updated elsewhere. Review it and submit again.")
		return ErrNothingToSubmit
	}

	f.notify(core.NotifyLoading, "Re-verifying your location...")
	if !f.deps.Checker.CheckLocation(ctx) {
		f.notify(core.NotifyBlocking, fmt.Sprintf("You must be inside the %s area to record attendance.", f.zoneName()))
		return ErrOutOfRange
	}

	f.notify(core.NotifyLoading, "Sending attendance...")
	detail, err := f.deps.Client.MarkAttendance(ctx)
	if err != nil {
		f.notify(core.NotifyError, core.UserMessage(err, "Failed to record attendance."))
		return errors.Wrap(err, "marking attendance")
	}
	f.notify(core.NotifySuccess, detail)

	return f.Refresh(ctx)
}

// SubmitLeave sends an excused-absence or sick-day request. An empty date means today.
func (f *Flow) SubmitLeave(ctx context.Context, req LeaveRequest) error {
	if f.Restricted() {
		return ErrRestricted
	}
	if err := req.Validate(f.deps.Validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
			f.notify(core.NotifyError, vErrs[0].Translate(f.deps.Translator))
		}
		return err
	}
	if req.Type != LeaveSick {
		req.Evidence = nil
	}

	now := f.now()
	if req.Date == "" {
		req.Date = DateOf(now)
	}
	day, err := time.ParseInLocation(DateLayout, req.Date, f.deps.Location)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
	}
	if _, exists := FindByDate(f.History(), req.Date); exists || IsWeekend(day) {
		f.notify(core.NotifyError, "You already have an attendance record for this date, or it is not a working day.")
		return ErrLeaveUnavailable
	}

	if !f.deps.Gate.TryAcquire(f.deps.Key) {
		return ErrBusy
	}
	defer f.deps.Gate.Release(f.deps.Key)

	f.notify(core.NotifyLoading, "Sending leave request...")
	detail, err := f.deps.Client.SubmitLeave(ctx, req)
	if err != nil {
		f.notify(core.NotifyError, core.UserMessage(err, "Failed to send leave request."))
		return errors.Wrap(err, "submitting leave request")
	}
	if detail == "" {
		detail = "Leave request sent."
	}
	f.notify(core.NotifySuccess, detail)

	return f.Refresh(ctx)
}

// CheckLocation runs a location check on demand ("check again").
func (f *Flow) CheckLocation(ctx context.Context) geo.LocationStatus {
	f.deps.Checker.CheckLocation(ctx)
	return f.deps.Checker.Status()
}

func (f *Flow) Restricted() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.restricted
}

// FetchError is the error of the latest failed history fetch, nil after a successful one.
func (f *Flow) FetchError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetchErr
}

func (f *Flow) History() []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Record(nil), f.history...)
}

func (f *Flow) Today() (Record, bool) {
	return TodayRecord(f.History(), f.now())
}

func (f *Flow) Eligibility() Eligibility {
	elig := EligibilityAt(f.History(), f.now())
	elig.Busy = f.deps.Gate.Busy(f.deps.Key)
	if elig.Busy {
		elig.CanCheckIn, elig.CanCheckOut, elig.CanRequestLeave = false, false, false
	}
	return elig
}

func (f *Flow) DayState() string {
	return DayStateAt(f.History(), f.now())
}

func (f *Flow) Stats() Stats {
	return ComputeStats(f.History())
}

func (f *Flow) Location() geo.LocationStatus {
	return f.deps.Checker.Status()
}

func (f *Flow) View() View {
	f.mu.RLock()
	restricted, loading := f.restricted, f.loading
	f.mu.RUnlock()

	v := View{
		Restricted: restricted,
		Loading:    loading,
		Location:   f.Location(),
		Zone:       f.deps.Checker.Zone(),
		History:    []Record{},
	}
	if restricted {
		return v
	}
	v.History = f.History()
	if today, ok := f.Today(); ok {
		v.Today = &today
	}
	v.State = f.DayState()
	v.Eligibility = f.Eligibility()
	v.Stats = f.Stats()
	return v
}

func (f *Flow) now() time.Time {
	return NowFunc().In(f.deps.Location)
}

func (f *Flow) zoneName() string {
	if name := f.deps.Checker.Zone().Name; name != "" {
		return name
	}
	return "facility"
}

func (f *Flow) notify(level, msg string) {
	f.deps.Notifier.Notify(core.Notification{Level: level, Message: msg})
}

type discard struct{}

func (discard) Notify(core.Notification) {}
