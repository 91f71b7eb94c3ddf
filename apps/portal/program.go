package main

import (
	"context"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/core/session"
)

func (cli *commandLine) newService(sess *session.Session) (*program.Service, error) {
	return program.NewService(program.Deps{
		Client:     cli.api.For(sess),
		Notifier:   cli.notifier,
		Validate:   cli.validate,
		Translator: cli.translator,
	})
}

// readAttachment loads a file given on the command line.
func readAttachment(path, what string) (*attendance.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s file", what)
	}
	return &attendance.Attachment{Filename: filepath.Base(path), Content: content}, nil
}

func (cli *commandLine) dashboard(ctx context.Context, sess *session.Session) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	dash, err := svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	renderDashboard(cli.out, dash)
	return nil
}

func (cli *commandLine) documents(ctx context.Context, sess *session.Session) error {
	profile, err := cli.api.Profile(ctx, sess)
	if err != nil {
		return err
	}
	renderDocuments(cli.out, profile)
	return nil
}

func (cli *commandLine) uploadDocument(ctx context.Context, sess *session.Session, req program.DocumentUpload) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	profile, err := svc.UploadDocument(ctx, req)
	if err != nil {
		return err
	}
	renderDocuments(cli.out, profile)
	return nil
}

func (cli *commandLine) reports(ctx context.Context, sess *session.Session) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	reports, err := svc.Reports(ctx)
	if err != nil {
		return err
	}
	renderReports(cli.out, reports)
	return nil
}

func (cli *commandLine) submitReport(ctx context.Context, sess *session.Session, req program.ReportRequest) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	if err = svc.SubmitReport(ctx, req); err != nil {
		return err
	}
	reports, err := svc.Reports(ctx)
	if err != nil {
		return err
	}
	renderReports(cli.out, reports)
	return nil
}

func (cli *commandLine) certificate(ctx context.Context, sess *session.Session) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	cert, err := svc.Certificate(ctx)
	if err != nil {
		return err
	}
	renderCertificate(cli.out, cert)
	return nil
}

// payment shows the payment proof, uploading file first when given.
func (cli *commandLine) payment(ctx context.Context, sess *session.Session, file *attendance.Attachment) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	if file != nil {
		payment, err := svc.UploadPayment(ctx, program.PaymentUpload{File: file})
		if err != nil {
			return err
		}
		renderPayment(cli.out, &payment)
		return nil
	}
	payment, err := svc.Payment(ctx)
	if err != nil {
		return err
	}
	renderPayment(cli.out, payment)
	return nil
}

func (cli *commandLine) announcement(ctx context.Context, sess *session.Session, id int) error {
	svc, err := cli.newService(sess)
	if err != nil {
		return err
	}
	ann, err := svc.Announcement(ctx, id)
	if err != nil {
		return err
	}
	renderAnnouncement(cli.out, ann)
	return nil
}
