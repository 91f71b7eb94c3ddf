package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/services/export"
	"github.com/bbpbat/portal/services/locator"
	notifysvc "github.com/bbpbat/portal/services/notify"
	"github.com/bbpbat/portal/services/portalapi"
)

type (
	// LocationReport is the browser's geolocation result, sent along with attendance requests.
	LocationReport struct {
		Latitude     float64 `json:"latitude" query:"latitude"`
		Longitude    float64 `json:"longitude" query:"longitude"`
		Accuracy     float64 `json:"accuracy" query:"accuracy"`
		Timestamp    int64   `json:"timestamp" query:"timestamp"` // ms since epoch, as browsers report it
		ErrorCode    int     `json:"error_code" query:"error_code"`
		ErrorMessage string  `json:"error_message" query:"error_message"`
	}

	AttendanceResponse struct {
		Detail        string              `json:"detail,omitempty"`
		Profile       participant.Profile `json:"profile"`
		Attendance    attendance.View     `json:"attendance"`
		Notifications []core.Notification `json:"notifications"`
	}

	LocationResponse struct {
		Location geo.LocationStatus `json:"location"`
		Zone     geo.Zone           `json:"zone"`
	}
)

// Fix converts the report. Browsers send an accuracy and a timestamp with every position,
// so a report carrying any of them holds a position even at (0, 0).
func (r LocationReport) Fix() locator.Fix {
	fix := locator.Fix{
		HasPosition:    r.ErrorCode == 0 && (r.Latitude != 0 || r.Longitude != 0 || r.Accuracy > 0 || r.Timestamp > 0),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		AccuracyMeters: r.Accuracy,
		ErrorCode:      r.ErrorCode,
		ErrorMessage:   r.ErrorMessage,
	}
	if r.Timestamp > 0 {
		fix.Timestamp = time.Unix(0, r.Timestamp*int64(time.Millisecond))
	}
	return fix
}

type attendanceApi struct {
	api        *portalapi.Client
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	gate       *attendance.Gate
	zone       geo.Zone
	opts       geo.PositionOptions
	allowance  time.Duration
	location   *time.Location
}

func registerAttendanceAPI(g *echo.Group, auth echo.MiddlewareFunc, h attendanceApi) {
	g.GET("/me", h.me, auth)

	ag := g.Group("/attendance", auth)
	ag.GET("", h.view)
	ag.POST("", h.submit)
	ag.POST("/location", h.checkLocation)
	ag.POST("/leave", h.submitLeave)
	ag.GET("/export", h.export)
}

// page is one request's attendance flow.
type page struct {
	flow    *attendance.Flow
	profile participant.Profile
	notes   *notifysvc.Recorder
}

func (p page) response(status int, ctx echo.Context) error {
	resp := AttendanceResponse{Profile: p.profile, Attendance: p.flow.View()}
	resp.Notifications, resp.Detail = notifications(p.notes)
	return ctx.JSON(status, resp)
}

func (h *attendanceApi) newPage(ctx echo.Context) (page, error) {
	sess, err := contextSession(ctx)
	if err != nil {
		return page{}, err
	}
	client := h.api.For(sess)

	profile, err := client.Profile(ctx.Request().Context())
	if err != nil {
		return page{}, errors.Wrap(err, "fetching participant profile")
	}

	notes := notifysvc.NewRecorder()
	flow, err := attendance.NewFlow(attendance.Deps{
		Client:     client,
		Checker:    h.checker(),
		Notifier:   notifysvc.LogNotifier{Logger: h.logger, Next: notes, Args: []interface{}{contextUser(ctx)}},
		Validate:   h.validate,
		Translator: h.translator,
		Gate:       h.gate,
		Key:        strconv.Itoa(profile.ID),
		Location:   h.location,
	})
	if err != nil {
		return page{}, errors.Wrap(err, "creating attendance flow")
	}
	return page{flow: flow, profile: profile, notes: notes}, nil
}

func (h *attendanceApi) checker() *geo.Checker {
	return geo.NewChecker(h.zone, locator.NewReported(h.allowance), h.opts)
}

func bindReport(ctx echo.Context) (LocationReport, error) {
	var report LocationReport
	if err := ctx.Bind(&report); err != nil {
		return report, errors.Wrap(err, "binding to LocationReport")
	}
	return report, nil
}

// Handlers

func (h *attendanceApi) me(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	profile, err := h.api.Profile(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "fetching participant profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (h *attendanceApi) view(ctx echo.Context) error {
	report, err := bindReport(ctx)
	if err != nil {
		return err
	}
	p, err := h.newPage(ctx)
	if err != nil {
		return err
	}

	reqCtx := locator.WithFix(ctx.Request().Context(), report.Fix())
	if err = p.flow.Mount(reqCtx, p.profile); err != nil && errors.Cause(err) != attendance.ErrRestricted {
		return err
	}
	return p.response(http.StatusOK, ctx)
}

func (h *attendanceApi) checkLocation(ctx echo.Context) error {
	report, err := bindReport(ctx)
	if err != nil {
		return err
	}
	checker := h.checker()
	checker.CheckLocation(locator.WithFix(ctx.Request().Context(), report.Fix()))
	return ctx.JSON(http.StatusOK, LocationResponse{Location: checker.Status(), Zone: checker.Zone()})
}

func (h *attendanceApi) submit(ctx echo.Context) error {
	report, err := bindReport(ctx)
	if err != nil {
		return err
	}
	p, err := h.newPage(ctx)
	if err != nil {
		return err
	}

	reqCtx := locator.WithFix(ctx.Request().Context(), report.Fix())
	if err = p.flow.Mount(reqCtx, p.profile); err != nil {
		return err
	}
	if err = p.flow.Submit(reqCtx); err != nil {
		if errors.Cause(err) == attendance.ErrOutOfRange {
			return p.response(http.StatusUnprocessableEntity, ctx)
		}
		return err
	}
	return p.response(http.StatusOK, ctx)
}

func (h *attendanceApi) submitLeave(ctx echo.Context) error {
	req := attendance.LeaveRequest{
		Date: ctx.FormValue("date"),
		Type: ctx.FormValue("type"),
		Note: ctx.FormValue("note"),
	}
	evidence, err := formAttachment(ctx, "evidence", attendance.MaxEvidenceSize)
	if err != nil {
		return err
	}
	req.Evidence = evidence

	p, err := h.newPage(ctx)
	if err != nil {
		return err
	}
	if err = p.flow.Mount(ctx.Request().Context(), p.profile); err != nil {
		return err
	}
	if err = p.flow.SubmitLeave(ctx.Request().Context(), req); err != nil {
		return err
	}
	return p.response(http.StatusCreated, ctx)
}

func (h *attendanceApi) export(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	client := h.api.For(sess)
	reqCtx := ctx.Request().Context()

	profile, err := client.Profile(reqCtx)
	if err != nil {
		return errors.Wrap(err, "fetching participant profile")
	}
	if !profile.AttendanceAllowed() {
		return attendance.ErrRestricted
	}
	records, err := client.AttendanceHistory(reqCtx)
	if err != nil {
		return errors.Wrap(err, "fetching attendance history")
	}

	buf := new(bytes.Buffer)
	if err = export.WriteAttendanceXLSX(buf, profile, records); err != nil {
		return errors.Wrap(err, "exporting attendance")
	}
	filename := fmt.Sprintf("attendance-%s.xlsx", attendance.DateOf(attendance.NowFunc().In(h.location)))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// formAttachment reads an optional uploaded file. At most one byte past limit is read,
// enough for validation to reject it.
func formAttachment(ctx echo.Context, name string, limit int64) (*attendance.Attachment, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	defer f.Close()

	content, err := ioutil.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return &attendance.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     content,
	}, nil
}
