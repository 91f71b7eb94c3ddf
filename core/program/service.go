package program

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/participant"
)

var ErrAnnouncementNotFound = errors.New("announcement not found")

type (
	// Client is the remote program API, bound to the participant's session.
	Client interface {
		Dashboard(ctx context.Context) (Dashboard, error)
		UploadDocument(ctx context.Context, req DocumentUpload) (participant.Profile, error)
		Reports(ctx context.Context) ([]Report, error)
		SubmitReport(ctx context.Context, req ReportRequest) (string, error)
		Certificate(ctx context.Context) (Certificate, error)
		// Payment returns nil when no proof was uploaded yet.
		Payment(ctx context.Context) (*Payment, error)
		UploadPayment(ctx context.Context, req PaymentUpload) (Payment, error)
		Announcement(ctx context.Context, id int) (Announcement, error)
	}

	Deps struct {
		Client     Client
		Notifier   core.Notifier // optional
		Validate   *validator.Validate
		Translator ut.Translator
	}

	// Service validates the participant's submissions before they reach the API and
	// reports every outcome through the notifier.
	Service struct {
		deps Deps
	}
)

func NewService(deps Deps) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Client, "Client"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "program.NewService")
	}
	if deps.Notifier == nil {
		deps.Notifier = discard{}
	}
	return &Service{deps: deps}, nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	dash, err := s.deps.Client.Dashboard(ctx)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to load the dashboard."))
		return Dashboard{}, errors.Wrap(err, "fetching dashboard")
	}
	if dash.Announcements == nil {
		dash.Announcements = []Announcement{}
	}
	return dash, nil
}

// UploadDocument uploads one registration document and returns the updated profile.
// A document of the same kind replaces the previous one.
func (s *Service) UploadDocument(ctx context.Context, req DocumentUpload) (participant.Profile, error) {
	if err := s.validate(req.Validate); err != nil {
		return participant.Profile{}, err
	}

	s.notify(core.NotifyLoading, "Uploading document...")
	profile, err := s.deps.Client.UploadDocument(ctx, req)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to upload the document."))
		return participant.Profile{}, errors.Wrap(err, "uploading document")
	}
	s.notify(core.NotifySuccess, "Document uploaded.")
	return profile, nil
}

func (s *Service) Reports(ctx context.Context) ([]Report, error) {
	reports, err := s.deps.Client.Reports(ctx)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to load reports."))
		return nil, errors.Wrap(err, "fetching reports")
	}
	if reports == nil {
		reports = []Report{}
	}
	return reports, nil
}

func (s *Service) SubmitReport(ctx context.Context, req ReportRequest) error {
	if err := s.validate(req.Validate); err != nil {
		return err
	}

	s.notify(core.NotifyLoading, "Uploading report...")
	detail, err := s.deps.Client.SubmitReport(ctx, req)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to upload the report."))
		return errors.Wrap(err, "submitting report")
	}
	if detail == "" {
		detail = "Report uploaded."
	}
	s.notify(core.NotifySuccess, detail)
	return nil
}

func (s *Service) Certificate(ctx context.Context) (Certificate, error) {
	cert, err := s.deps.Client.Certificate(ctx)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to load the certificate status."))
		return Certificate{}, errors.Wrap(err, "fetching certificate")
	}
	return cert, nil
}

func (s *Service) Payment(ctx context.Context) (*Payment, error) {
	payment, err := s.deps.Client.Payment(ctx)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to load the payment proof."))
		return nil, errors.Wrap(err, "fetching payment")
	}
	return payment, nil
}

// UploadPayment sends the proof of payment, replacing an earlier one. The new proof waits
// for verification again.
func (s *Service) UploadPayment(ctx context.Context, req PaymentUpload) (Payment, error) {
	if err := s.validate(req.Validate); err != nil {
		return Payment{}, err
	}

	s.notify(core.NotifyLoading, "Uploading payment proof...")
	payment, err := s.deps.Client.UploadPayment(ctx, req)
	if err != nil {
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to upload the payment proof."))
		return Payment{}, errors.Wrap(err, "uploading payment")
	}
	s.notify(core.NotifySuccess, "Payment proof uploaded.")
	return payment, nil
}

// Announcement returns a published announcement.
func (s *Service) Announcement(ctx context.Context, id int) (Announcement, error) {
	if id <= 0 {
		return Announcement{}, ErrAnnouncementNotFound
	}
	ann, err := s.deps.Client.Announcement(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrAnnouncementNotFound {
			return Announcement{}, ErrAnnouncementNotFound
		}
		s.notify(core.NotifyError, core.UserMessage(err, "Failed to load the announcement."))
		return Announcement{}, errors.Wrap(err, "fetching announcement")
	}
	return ann, nil
}

func (s *Service) validate(fn func(*validator.Validate) error) error {
	err := fn(s.deps.Validate)
	if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
		s.notify(core.NotifyError, vErrs[0].Translate(s.deps.Translator))
	}
	return err
}

func (s *Service) notify(level, msg string) {
	s.deps.Notifier.Notify(core.Notification{Level: level, Message: msg})
}

type discard struct{}

func (discard) Notify(core.Notification) {}
