package portalapi

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/core/session"
)

func (c *Client) Dashboard(ctx context.Context, sess *session.Session) (program.Dashboard, error) {
	var dto dashboardDTO
	if err := c.getJSON(ctx, sess, dashboardPath, &dto); err != nil {
		return program.Dashboard{}, err
	}
	return dto.toDashboard(), nil
}

// UploadDocument sends one registration document. The API answers with the whole profile,
// whose completeness flags may have changed.
func (c *Client) UploadDocument(ctx context.Context, sess *session.Session, req program.DocumentUpload) (participant.Profile, error) {
	body, contentType, err := multipartForm([][2]string{{"jenis_dokumen", req.Kind}}, formFile{name: "file", file: req.File})
	if err != nil {
		return participant.Profile{}, errors.Wrap(err, "encoding document")
	}
	var dto profileDTO
	if err := c.postForm(ctx, sess, documentPath, body, contentType, &dto); err != nil {
		return participant.Profile{}, err
	}
	return dto.toProfile(), nil
}

func (c *Client) Reports(ctx context.Context, sess *session.Session) ([]program.Report, error) {
	var dtos []reportDTO
	if err := c.getJSON(ctx, sess, reportsPath, &dtos); err != nil {
		return nil, err
	}
	return toReports(dtos), nil
}

func (c *Client) SubmitReport(ctx context.Context, sess *session.Session, req program.ReportRequest) (string, error) {
	fields := [][2]string{
		{"judul", req.Title},
		{"deskripsi", req.Description},
	}
	body, contentType, err := multipartForm(fields, formFile{name: "file", file: req.File})
	if err != nil {
		return "", errors.Wrap(err, "encoding report")
	}
	var dto detailDTO
	if err := c.postForm(ctx, sess, reportsPath, body, contentType, &dto); err != nil {
		return "", err
	}
	return dto.Detail, nil
}

func (c *Client) Certificate(ctx context.Context, sess *session.Session) (program.Certificate, error) {
	var dto certificateDTO
	if err := c.getJSON(ctx, sess, certificatePath, &dto); err != nil {
		return program.Certificate{}, err
	}
	return dto.toCertificate(), nil
}

// Payment returns the uploaded proof of payment, nil when there is none.
func (c *Client) Payment(ctx context.Context, sess *session.Session) (*program.Payment, error) {
	var dto *paymentDTO
	if err := c.getJSON(ctx, sess, paymentPath, &dto); err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, nil
	}
	payment := dto.toPayment()
	return &payment, nil
}

func (c *Client) UploadPayment(ctx context.Context, sess *session.Session, req program.PaymentUpload) (program.Payment, error) {
	body, contentType, err := multipartForm(nil, formFile{name: "file", file: req.File})
	if err != nil {
		return program.Payment{}, errors.Wrap(err, "encoding payment proof")
	}
	var dto paymentDTO
	if err := c.postForm(ctx, sess, paymentPath, body, contentType, &dto); err != nil {
		return program.Payment{}, err
	}
	return dto.toPayment(), nil
}

// Announcement fetches a published announcement. Drafts and unknown IDs are not found.
func (c *Client) Announcement(ctx context.Context, sess *session.Session, id int) (program.Announcement, error) {
	path := fmt.Sprintf(announcementPath, id)
	var dto announcementDTO
	if err := c.getJSON(ctx, sess, path, &dto); err != nil {
		if IsNotFound(err) {
			return program.Announcement{}, errors.Wrap(program.ErrAnnouncementNotFound, path)
		}
		return program.Announcement{}, err
	}
	return dto.toAnnouncement(), nil
}

func (c *Client) postForm(ctx context.Context, sess *session.Session, path string, body []byte, contentType string, dest interface{}) error {
	res, err := c.send(ctx, sess, rest.Post, path, body, contentType)
	if err != nil {
		return err
	}
	return c.decode(path, res, dest)
}

var _ program.Client = (*Participant)(nil)

func (p *Participant) Dashboard(ctx context.Context) (program.Dashboard, error) {
	return p.client.Dashboard(ctx, p.sess)
}

func (p *Participant) UploadDocument(ctx context.Context, req program.DocumentUpload) (participant.Profile, error) {
	return p.client.UploadDocument(ctx, p.sess, req)
}

func (p *Participant) Reports(ctx context.Context) ([]program.Report, error) {
	return p.client.Reports(ctx, p.sess)
}

func (p *Participant) SubmitReport(ctx context.Context, req program.ReportRequest) (string, error) {
	return p.client.SubmitReport(ctx, p.sess, req)
}

func (p *Participant) Certificate(ctx context.Context) (program.Certificate, error) {
	return p.client.Certificate(ctx, p.sess)
}

func (p *Participant) Payment(ctx context.Context) (*program.Payment, error) {
	return p.client.Payment(ctx, p.sess)
}

func (p *Participant) UploadPayment(ctx context.Context, req program.PaymentUpload) (program.Payment, error) {
	return p.client.UploadPayment(ctx, p.sess, req)
}

func (p *Participant) Announcement(ctx context.Context, id int) (program.Announcement, error) {
	return p.client.Announcement(ctx, p.sess, id)
}
