package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/core/session"
	"github.com/bbpbat/portal/services/locator"
	"github.com/bbpbat/portal/services/portalapi"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp           = errors.New("help provided")
	errNotLoggedIn    = errors.New("not logged in, run: portal login -email EMAIL")
	errNotParticipant = errors.New("this account is not a participant account")
)

type commandLine struct {
	conf       *core.Config
	api        *portalapi.Client
	store      session.Store
	notifier   core.Notifier
	out        io.Writer
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                  - log in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                              - forget the stored session")
	fmt.Fprintln(cli.out, "  profile                             - show the participant profile")
	fmt.Fprintln(cli.out, "  locate [-lat LAT -lng LNG]          - check whether you are inside the attendance area")
	fmt.Fprintln(cli.out, "  status [-lat LAT -lng LNG]          - show today's attendance card")
	fmt.Fprintln(cli.out, "  checkin [-lat LAT -lng LNG]         - check in, or check out if already checked in")
	fmt.Fprintln(cli.out, "  leave -type excused|sick -note NOTE [-date YYYY-MM-DD] [-file PATH]")
	fmt.Fprintln(cli.out, "                                      - request an excused absence or a sick day")
	fmt.Fprintln(cli.out, "  history [-export FILE.xlsx]         - show (or export) the attendance history")
	fmt.Fprintln(cli.out, "  dashboard                           - show the program summary")
	fmt.Fprintln(cli.out, "  documents                           - show the registration documents")
	fmt.Fprintln(cli.out, "  document -kind KIND -file PATH      - upload a registration document")
	fmt.Fprintln(cli.out, "  reports                             - list the submitted reports")
	fmt.Fprintln(cli.out, "  report -title TITLE -desc TEXT -file PATH")
	fmt.Fprintln(cli.out, "                                      - submit a report")
	fmt.Fprintln(cli.out, "  certificate                         - show the certificate status")
	fmt.Fprintln(cli.out, "  payment [-file PATH]                - show (or upload) the proof of payment")
	fmt.Fprintln(cli.out, "  announcement -id ID                 - read an announcement")
}

// positionFlags are the optional -lat/-lng flags of the commands that check the location.
type positionFlags struct {
	lat, lng float64
	set      bool
}

func addPositionFlags(fs *flag.FlagSet) *positionFlags {
	pf := new(positionFlags)
	fs.Float64Var(&pf.lat, "lat", 0, "Latitude of the device.")
	fs.Float64Var(&pf.lng, "lng", 0, "Longitude of the device.")
	return pf
}

// parse also records whether a position was given on the command line.
func (pf *positionFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			pf.set = true
		}
	})
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	newFlagSet := func(name string) *flag.FlagSet {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(cli.out)
		return fs
	}

	loginCmd := newFlagSet("login")
	loginEmail := loginCmd.String("email", "", "The participant's email. The password will be prompted next.")

	locateCmd := newFlagSet("locate")
	locatePos := addPositionFlags(locateCmd)

	statusCmd := newFlagSet("status")
	statusPos := addPositionFlags(statusCmd)

	checkinCmd := newFlagSet("checkin")
	checkinPos := addPositionFlags(checkinCmd)

	leaveCmd := newFlagSet("leave")
	leaveType := leaveCmd.String("type", "", "excused or sick.")
	leaveNote := leaveCmd.String("note", "", "Reason for the absence.")
	leaveDate := leaveCmd.String("date", "", "Date of the absence (YYYY-MM-DD); today when omitted.")
	leaveFile := leaveCmd.String("file", "", "Doctor's letter, sick leave only (max 2 MB).")

	historyCmd := newFlagSet("history")
	historyExport := historyCmd.String("export", "", "Write the history to this XLSX file instead.")

	documentCmd := newFlagSet("document")
	documentKind := documentCmd.String("kind", "", "One of: ktp, ktm, kk, photo, proposal, nilai, pernyataan.")
	documentFile := documentCmd.String("file", "", "The document to upload (max 10 MB).")

	reportCmd := newFlagSet("report")
	reportTitle := reportCmd.String("title", "", "Title of the report.")
	reportDesc := reportCmd.String("desc", "", "Short description of the report.")
	reportFile := reportCmd.String("file", "", "The report file (max 10 MB).")

	paymentCmd := newFlagSet("payment")
	paymentFile := paymentCmd.String("file", "", "Upload this proof of payment, replacing the previous one.")

	announcementCmd := newFlagSet("announcement")
	announcementID := announcementCmd.Int("id", 0, "ID of the announcement, as listed on the dashboard.")

	ctx := context.Background()

	switch args[1] {
	case "login":
		if err := parseFlags(loginCmd, args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginEmail, string(pwd))

	case "logout":
		return cli.logout()

	case "profile":
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.profile(ctx, sess)
		})

	case "locate":
		if err := locatePos.parse(locateCmd, args[2:]); err != nil {
			return err
		}
		return cli.locate(ctx, cli.locator(locatePos))

	case "status":
		if err := statusPos.parse(statusCmd, args[2:]); err != nil {
			return err
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.status(ctx, sess, cli.locator(statusPos))
		})

	case "checkin":
		if err := checkinPos.parse(checkinCmd, args[2:]); err != nil {
			return err
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.checkin(ctx, sess, cli.locator(checkinPos))
		})

	case "leave":
		if err := parseFlags(leaveCmd, args[2:]); err != nil {
			return err
		}
		if *leaveType == "" || *leaveNote == "" {
			leaveCmd.Usage()
			return errHelp
		}
		evidence, err := readAttachment(*leaveFile, "evidence")
		if err != nil {
			return err
		}
		req := attendance.LeaveRequest{Date: *leaveDate, Type: *leaveType, Note: *leaveNote, Evidence: evidence}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.leave(ctx, sess, req)
		})

	case "history":
		if err := parseFlags(historyCmd, args[2:]); err != nil {
			return err
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.history(ctx, sess, *historyExport)
		})

	case "dashboard":
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.dashboard(ctx, sess)
		})

	case "documents":
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.documents(ctx, sess)
		})

	case "document":
		if err := parseFlags(documentCmd, args[2:]); err != nil {
			return err
		}
		if *documentKind == "" || *documentFile == "" {
			documentCmd.Usage()
			return errHelp
		}
		file, err := readAttachment(*documentFile, "document")
		if err != nil {
			return err
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.uploadDocument(ctx, sess, program.DocumentUpload{Kind: *documentKind, File: file})
		})

	case "reports":
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.reports(ctx, sess)
		})

	case "report":
		if err := parseFlags(reportCmd, args[2:]); err != nil {
			return err
		}
		if *reportTitle == "" || *reportFile == "" {
			reportCmd.Usage()
			return errHelp
		}
		file, err := readAttachment(*reportFile, "report")
		if err != nil {
			return err
		}
		req := program.ReportRequest{Title: *reportTitle, Description: *reportDesc, File: file}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.submitReport(ctx, sess, req)
		})

	case "certificate":
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.certificate(ctx, sess)
		})

	case "payment":
		if err := parseFlags(paymentCmd, args[2:]); err != nil {
			return err
		}
		file, err := readAttachment(*paymentFile, "payment")
		if err != nil {
			return err
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.payment(ctx, sess, file)
		})

	case "announcement":
		if err := parseFlags(announcementCmd, args[2:]); err != nil {
			return err
		}
		if *announcementID == 0 {
			announcementCmd.Usage()
			return errHelp
		}
		return cli.withSession(ctx, func(sess *session.Session) error {
			return cli.announcement(ctx, sess, *announcementID)
		})

	default:
		cli.printUsage()
		return errHelp
	}
}

// withSession loads the stored session and saves it back once fn is done, so a
// refreshed access token is kept and an expired session is forgotten. An access
// token already past its expiry is refreshed before fn runs.
func (cli *commandLine) withSession(ctx context.Context, fn func(sess *session.Session) error) error {
	sess, err := cli.store.Load()
	if err != nil {
		if errors.Cause(err) == session.ErrNoSession {
			return errNotLoggedIn
		}
		return err
	}

	if sess.Expired(nowFunc()) {
		err = cli.api.RefreshAccess(ctx, sess)
	}
	if err == nil {
		err = fn(sess)
	}
	if saveErr := cli.store.Save(sess); saveErr != nil && err == nil {
		err = errors.Wrap(saveErr, "saving session")
	}
	if errors.Cause(err) == portalapi.ErrSessionExpired {
		return errors.Wrap(errNotLoggedIn, "session expired")
	}
	return err
}

// locator is the position source for a command: the -lat/-lng flags, then the configured
// device position. Without either, the device counts as having no location sensor.
func (cli *commandLine) locator(pf *positionFlags) geo.Locator {
	switch {
	case pf != nil && pf.set:
		return locator.NewStatic(pf.lat, pf.lng)
	case cli.conf.Device.Enabled:
		return locator.NewStatic(cli.conf.Device.Latitude, cli.conf.Device.Longitude)
	}
	return nil
}

func (cli *commandLine) checker(loc geo.Locator) *geo.Checker {
	return geo.NewChecker(cli.conf.Zone(), loc, cli.conf.PositionOptions())
}

func (cli *commandLine) newFlow(sess *session.Session, loc geo.Locator, profile participant.Profile) (*attendance.Flow, error) {
	return attendance.NewFlow(attendance.Deps{
		Client:     cli.api.For(sess),
		Checker:    cli.checker(loc),
		Notifier:   cli.notifier,
		Validate:   cli.validate,
		Translator: cli.translator,
		Key:        strconv.Itoa(profile.ID),
		Location:   cli.conf.Location(),
	})
}

// userMessage is what the participant reads when a command fails.
func (cli *commandLine) userMessage(err error) string {
	var apiErr *portalapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok && len(vErrs) > 0 {
		fErr := core.FieldErrors(vErrs, cli.translator)[0]
		return fErr.Field + ": " + fErr.Error
	}
	return err.Error()
}
