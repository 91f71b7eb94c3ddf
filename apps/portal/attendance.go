package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/session"
	"github.com/bbpbat/portal/services/export"
)

func (cli *commandLine) locate(ctx context.Context, loc geo.Locator) error {
	checker := cli.checker(loc)
	checker.CheckLocation(ctx)
	renderLocation(cli.out, checker.Zone(), checker.Status())
	return nil
}

// mount opens the attendance page. A restricted profile is not an error here:
// the view says so.
func (cli *commandLine) mount(ctx context.Context, sess *session.Session, loc geo.Locator) (*attendance.Flow, error) {
	profile, err := cli.api.Profile(ctx, sess)
	if err != nil {
		return nil, err
	}
	flow, err := cli.newFlow(sess, loc, profile)
	if err != nil {
		return nil, err
	}
	if err = flow.Mount(ctx, profile); err != nil && errors.Cause(err) != attendance.ErrRestricted {
		return nil, err
	}
	return flow, nil
}

func (cli *commandLine) status(ctx context.Context, sess *session.Session, loc geo.Locator) error {
	flow, err := cli.mount(ctx, sess, loc)
	if err != nil {
		return err
	}
	renderView(cli.out, flow.View())
	return nil
}

func (cli *commandLine) checkin(ctx context.Context, sess *session.Session, loc geo.Locator) error {
	flow, err := cli.mount(ctx, sess, loc)
	if err != nil {
		return err
	}
	if flow.Restricted() {
		return attendance.ErrRestricted
	}
	if err = flow.Submit(ctx); err != nil {
		if errors.Cause(err) == attendance.ErrOutOfRange {
			renderLocation(cli.out, flow.View().Zone, flow.Location())
		}
		return err
	}
	renderView(cli.out, flow.View())
	return nil
}

// leave never checks the location; a leave request can be sent from anywhere.
func (cli *commandLine) leave(ctx context.Context, sess *session.Session, req attendance.LeaveRequest) error {
	flow, err := cli.mount(ctx, sess, nil)
	if err != nil {
		return err
	}
	if flow.Restricted() {
		return attendance.ErrRestricted
	}
	if err = flow.SubmitLeave(ctx, req); err != nil {
		return err
	}
	renderView(cli.out, flow.View())
	return nil
}

func (cli *commandLine) history(ctx context.Context, sess *session.Session, exportPath string) error {
	profile, err := cli.api.Profile(ctx, sess)
	if err != nil {
		return err
	}
	if !profile.AttendanceAllowed() {
		return attendance.ErrRestricted
	}
	records, err := cli.api.AttendanceHistory(ctx, sess)
	if err != nil {
		return err
	}

	if exportPath == "" {
		renderHistory(cli.out, records, attendance.ComputeStats(records))
		return nil
	}

	f, err := os.Create(exportPath)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	if err = export.WriteAttendanceXLSX(f, profile, records); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "exporting attendance")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing export file")
	}
	cli.notifier.Notify(successf("Attendance history exported to %s", exportPath))
	return nil
}
