package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	notifysvc "github.com/bbpbat/portal/services/notify"
	"github.com/bbpbat/portal/services/portalapi"
)

type (
	DocumentResponse struct {
		Detail        string              `json:"detail"`
		Profile       participant.Profile `json:"profile"`
		Missing       []string            `json:"missing"`
		Notifications []core.Notification `json:"notifications"`
	}

	ReportsResponse struct {
		Detail        string              `json:"detail,omitempty"`
		Reports       []program.Report    `json:"reports"`
		Latest        *program.Report     `json:"latest"`
		Notifications []core.Notification `json:"notifications"`
	}

	PaymentResponse struct {
		Detail        string              `json:"detail,omitempty"`
		Payment       *program.Payment    `json:"payment"`
		Notifications []core.Notification `json:"notifications"`
	}
)

type programApi struct {
	api        *portalapi.Client
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func registerProgramAPI(g *echo.Group, auth echo.MiddlewareFunc, h programApi) {
	g.GET("/dashboard", h.dashboard, auth)
	g.POST("/documents", h.uploadDocument, auth)
	g.GET("/reports", h.reports, auth)
	g.POST("/reports", h.submitReport, auth)
	g.GET("/certificate", h.certificate, auth)
	g.GET("/payment", h.payment, auth)
	g.POST("/payment", h.uploadPayment, auth)
	g.GET("/announcements/:id", h.announcement, auth)
}

func (h *programApi) newService(ctx echo.Context) (*program.Service, *notifysvc.Recorder, error) {
	sess, err := contextSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	notes := notifysvc.NewRecorder()
	svc, err := program.NewService(program.Deps{
		Client:     h.api.For(sess),
		Notifier:   notifysvc.LogNotifier{Logger: h.logger, Next: notes, Args: []interface{}{contextUser(ctx)}},
		Validate:   h.validate,
		Translator: h.translator,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating program service")
	}
	return svc, notes, nil
}

// notifications returns what the service reported and the last success message.
func notifications(notes *notifysvc.Recorder) ([]core.Notification, string) {
	all := notes.All()
	if all == nil {
		all = []core.Notification{}
	}
	var detail string
	for _, n := range all {
		if n.Level == core.NotifySuccess {
			detail = n.Message
		}
	}
	return all, detail
}

// Handlers

func (h *programApi) dashboard(ctx echo.Context) error {
	svc, _, err := h.newService(ctx)
	if err != nil {
		return err
	}
	dash, err := svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (h *programApi) uploadDocument(ctx echo.Context) error {
	file, err := formAttachment(ctx, "file", program.MaxUploadSize)
	if err != nil {
		return err
	}
	svc, notes, err := h.newService(ctx)
	if err != nil {
		return err
	}

	profile, err := svc.UploadDocument(ctx.Request().Context(), program.DocumentUpload{Kind: ctx.FormValue("kind"), File: file})
	if err != nil {
		return err
	}
	resp := DocumentResponse{Profile: profile, Missing: profile.MissingDocuments()}
	resp.Notifications, resp.Detail = notifications(notes)
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (h *programApi) reports(ctx echo.Context) error {
	svc, notes, err := h.newService(ctx)
	if err != nil {
		return err
	}
	return h.reportsResponse(ctx, http.StatusOK, svc, notes)
}

func (h *programApi) reportsResponse(ctx echo.Context, status int, svc *program.Service, notes *notifysvc.Recorder) error {
	reports, err := svc.Reports(ctx.Request().Context())
	if err != nil {
		return err
	}
	resp := ReportsResponse{Reports: reports}
	if latest, ok := program.Latest(reports); ok {
		resp.Latest = &latest
	}
	resp.Notifications, resp.Detail = notifications(notes)
	return ctx.JSON(status, resp)
}

func (h *programApi) submitReport(ctx echo.Context) error {
	file, err := formAttachment(ctx, "file", program.MaxUploadSize)
	if err != nil {
		return err
	}
	svc, notes, err := h.newService(ctx)
	if err != nil {
		return err
	}

	req := program.ReportRequest{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		File:        file,
	}
	if err = svc.SubmitReport(ctx.Request().Context(), req); err != nil {
		return err
	}
	return h.reportsResponse(ctx, http.StatusCreated, svc, notes)
}

func (h *programApi) certificate(ctx echo.Context) error {
	svc, _, err := h.newService(ctx)
	if err != nil {
		return err
	}
	cert, err := svc.Certificate(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (h *programApi) payment(ctx echo.Context) error {
	svc, notes, err := h.newService(ctx)
	if err != nil {
		return err
	}
	payment, err := svc.Payment(ctx.Request().Context())
	if err != nil {
		return err
	}
	resp := PaymentResponse{Payment: payment}
	resp.Notifications, resp.Detail = notifications(notes)
	return ctx.JSON(http.StatusOK, resp)
}

func (h *programApi) uploadPayment(ctx echo.Context) error {
	file, err := formAttachment(ctx, "file", program.MaxUploadSize)
	if err != nil {
		return err
	}
	svc, notes, err := h.newService(ctx)
	if err != nil {
		return err
	}

	payment, err := svc.UploadPayment(ctx.Request().Context(), program.PaymentUpload{File: file})
	if err != nil {
		return err
	}
	resp := PaymentResponse{Payment: &payment}
	resp.Notifications, resp.Detail = notifications(notes)
	return ctx.JSON(http.StatusCreated, resp)
}

func (h *programApi) announcement(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return program.ErrAnnouncementNotFound
	}
	svc, _, err := h.newService(ctx)
	if err != nil {
		return err
	}
	ann, err := svc.Announcement(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ann)
}
