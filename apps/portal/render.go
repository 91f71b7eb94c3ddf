package main

import (
	"fmt"
	"io"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/services/export"
)

const dash = "-"

var dayStateLabels = map[string]string{
	attendance.DayNoRecord:   "Not checked in yet",
	attendance.DayCheckedIn:  "Checked in",
	attendance.DayCheckedOut: "Checked in and out",
	attendance.DayExcused:    "Excused",
	attendance.DaySick:       "Sick",
	attendance.DayAbsent:     "Absent",
	attendance.DayInactive:   "No attendance on weekends",
}

var verificationLabels = map[string]string{
	participant.VerificationPending:  "Waiting for verification",
	participant.VerificationVerified: "Verified",
	participant.VerificationRejected: "Rejected",
}

var reportStatusLabels = map[string]string{
	program.ReportNew:      "New",
	program.ReportInReview: "In review",
	program.ReportAccepted: "Accepted",
	program.ReportRejected: "Rejected",
}

// label falls back to the raw value for states the API added later.
func label(labels map[string]string, value string) string {
	if l, ok := labels[value]; ok {
		return l
	}
	return orDash(value)
}

func baseName(url string) string {
	if url == "" {
		return ""
	}
	return path.Base(url)
}

func successf(format string, args ...interface{}) core.Notification {
	return core.Notification{Level: core.NotifySuccess, Message: fmt.Sprintf(format, args...)}
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return dash
	}
	return s
}

func renderProfile(w io.Writer, p participant.Profile) {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Name:\t%s\n", p.FullName)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Type:\t%s\n", orDash(p.Type))
	fmt.Fprintf(tw, "Institution:\t%s\n", orDash(p.Institution))
	fmt.Fprintf(tw, "Placement:\t%s\n", orDash(p.Placement))
	fmt.Fprintf(tw, "Status:\t%s\n", orDash(p.Status))
	if !p.AttendanceAllowed() {
		fmt.Fprintf(tw, "Attendance:\t%s\n", attendance.ErrRestricted)
	}
	_ = tw.Flush()
}

func renderLocation(w io.Writer, zone geo.Zone, st geo.LocationStatus) {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Area:\t%s (%.0f m radius)\n", zone.Name, zone.RadiusMeters)
	switch {
	case st.Error != nil:
		fmt.Fprintf(tw, "Location:\t%s\n", st.Error.Message)
	case st.InRange:
		fmt.Fprintf(tw, "Location:\tinside the area, %.0f m from the center\n", st.Distance.Float64)
	case st.State == geo.StateResolved:
		fmt.Fprintf(tw, "Location:\toutside the area, %.0f m from the center\n", st.Distance.Float64)
	default:
		fmt.Fprintf(tw, "Location:\tnot checked\n")
	}
	_ = tw.Flush()
}

func renderView(w io.Writer, v attendance.View) {
	if v.Restricted {
		fmt.Fprintln(w, attendance.ErrRestricted)
		return
	}

	renderLocation(w, v.Zone, v.Location)

	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Today:\t%s\n", dayStateLabels[v.State])
	if v.Today != nil {
		fmt.Fprintf(tw, "Check-in:\t%s\n", orDash(v.Today.CheckIn.String))
		fmt.Fprintf(tw, "Check-out:\t%s\n", orDash(v.Today.CheckOut.String))
	}
	var actions []string
	if v.Eligibility.CanCheckIn {
		actions = append(actions, "checkin")
	}
	if v.Eligibility.CanCheckOut {
		actions = append(actions, "checkin (to check out)")
	}
	if v.Eligibility.CanRequestLeave {
		actions = append(actions, "leave")
	}
	for i, a := range actions {
		label := ""
		if i == 0 {
			label = "Available:"
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, a)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	renderHistory(w, v.History, v.Stats)
}

func renderHistory(w io.Writer, records []attendance.Record, stats attendance.Stats) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "DATE\tSTATUS\tIN\tOUT\tNOTE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.Date, export.StatusLabel(rec.Status), orDash(rec.CheckIn.String), orDash(rec.CheckOut.String), orDash(rec.Note))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nPresent %d (%d%%) | Excused %d | Sick %d | Absent %d\n",
		stats.Present, stats.PresentPercent, stats.Excused, stats.Sick, stats.Absent)
}

func renderDashboard(w io.Writer, d program.Dashboard) {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Type:\t%s\n", orDash(d.ParticipantType))
	fmt.Fprintf(tw, "Days present:\t%d\n", d.TotalPresent)
	fmt.Fprintf(tw, "Progress:\t%d%% (%d of %d days left)\n", d.Progress.PercentDone, d.Progress.DaysLeft, d.Progress.TotalDays)
	if d.ParticipantType == program.TypeGeneral {
		fmt.Fprintf(tw, "Payment:\t%s\n", uploadLabel(d.Payment))
	} else {
		fmt.Fprintf(tw, "Report:\t%s\n", uploadLabel(d.Report))
	}
	if d.CertificateAvailable {
		fmt.Fprintf(tw, "Certificate:\tavailable, run: portal certificate\n")
	}
	if m := d.Mentor; m != nil {
		fmt.Fprintf(tw, "Mentor:\t%s (%s)\n", m.FullName, orDash(m.Position))
	}
	_ = tw.Flush()

	if len(d.Announcements) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = newTabWriter(w)
	fmt.Fprintln(tw, "ID\tDATE\tPRIORITY\tANNOUNCEMENT")
	for _, a := range d.Announcements {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, orDash(a.PublishedOn), orDash(a.Priority), a.Title)
	}
	_ = tw.Flush()
}

func uploadLabel(st program.UploadStatus) string {
	if !st.Uploaded {
		return "not uploaded"
	}
	l := "uploaded"
	if st.UploadedAt.Valid {
		l += " on " + attendance.DateOf(st.UploadedAt.Time)
	}
	if st.Verification != "" {
		l += ", " + strings.ToLower(label(verificationLabels, st.Verification))
	}
	return l
}

func renderDocuments(w io.Writer, p participant.Profile) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "KIND\tFILE\tSTATUS\tNOTE")
	for _, d := range p.Documents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Kind, orDash(baseName(d.File)), label(verificationLabels, d.Verification), orDash(d.Note))
	}
	_ = tw.Flush()

	if missing := p.MissingDocuments(); len(missing) > 0 {
		fmt.Fprintf(w, "\nMissing: %s\n", strings.Join(missing, ", "))
	}
}

func renderReports(w io.Writer, reports []program.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No report submitted yet.")
		return
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tSTATUS\tFEEDBACK")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, orDash(r.SubmittedOn), r.Title, label(reportStatusLabels, r.Status), orDash(r.Feedback))
	}
	_ = tw.Flush()
}

func renderCertificate(w io.Writer, c program.Certificate) {
	fmt.Fprintln(w, c.Message)
	if c.Issued() {
		tw := newTabWriter(w)
		fmt.Fprintf(tw, "Number:\t%s\n", c.Number)
		fmt.Fprintf(tw, "Issued on:\t%s\n", orDash(c.IssuedOn))
		fmt.Fprintf(tw, "File:\t%s\n", orDash(c.FileURL))
		_ = tw.Flush()
		return
	}
	for _, r := range c.Requirements {
		mark := " "
		if r.Met {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, r.Description)
	}
}

func renderPayment(w io.Writer, p *program.Payment) {
	if p == nil {
		fmt.Fprintln(w, "No proof of payment uploaded yet.")
		return
	}
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "File:\t%s\n", orDash(baseName(p.File)))
	if p.UploadedAt.Valid {
		fmt.Fprintf(tw, "Uploaded:\t%s\n", attendance.DateOf(p.UploadedAt.Time))
	}
	fmt.Fprintf(tw, "Status:\t%s\n", label(verificationLabels, p.Verification))
	if p.AdminNote != "" {
		fmt.Fprintf(tw, "Note:\t%s\n", p.AdminNote)
	}
	_ = tw.Flush()
}

func renderAnnouncement(w io.Writer, a program.Announcement) {
	fmt.Fprintln(w, a.Title)
	fmt.Fprintf(w, "%s | %s | %s\n\n", orDash(a.PublishedOn), orDash(a.Category), orDash(a.Author))
	fmt.Fprintln(w, a.Content)
}
