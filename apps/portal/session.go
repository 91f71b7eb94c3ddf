package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/session"
)

// login exchanges the credentials for a session and stores it. Only participants may log in.
func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	email = core.CleanString(email, true /* lower */)

	sess, usr, err := cli.api.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	if !usr.IsParticipant() {
		return errNotParticipant
	}
	if err = cli.store.Save(sess); err != nil {
		return errors.Wrap(err, "saving session")
	}
	fmt.Fprintf(cli.out, "Logged in as %s <%s>\n", usr.FullName, usr.Email)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.store.Clear(); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) profile(ctx context.Context, sess *session.Session) error {
	profile, err := cli.api.Profile(ctx, sess)
	if err != nil {
		return err
	}
	renderProfile(cli.out, profile)
	return nil
}
