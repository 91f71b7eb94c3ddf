package main

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/core/session"
	"github.com/bbpbat/portal/services/export"
	notifysvc "github.com/bbpbat/portal/services/notify"
	"github.com/bbpbat/portal/services/portalapi"
	sessionstore "github.com/bbpbat/portal/storage/session"
	"github.com/bbpbat/portal/tests"
)

var monday = time.Date(2024, time.July, 1, 9, 30, 0, 0, time.UTC)

const (
	email    = "budi@example.com"
	password = "rahasia"
)

type fixture struct {
	cli   *commandLine
	api   *testutil.FakeAPI
	acc   *testutil.Account
	store *sessionstore.MemStore
	out   *bytes.Buffer
}

func setup(t *testing.T) *fixture {
	api := testutil.NewFakeAPI(t)
	api.Now = func() time.Time { return monday }
	acc := api.AddParticipant(email, password)

	attendance.NowFunc = func() time.Time { return monday }
	nowFunc = func() time.Time { return monday }
	t.Cleanup(func() {
		attendance.NowFunc = time.Now
		nowFunc = time.Now
	})

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	program.InitValidators(validate, translator)

	conf := testutil.NewConfig(api.BaseURL())
	store := sessionstore.NewMemStore()
	out := new(bytes.Buffer)

	// start CLI
	cli := &commandLine{
		conf:       conf,
		api:        portalapi.NewClient(conf, nil),
		store:      store,
		notifier:   notifysvc.NewConsoleNotifier(out, true),
		out:        out,
		validate:   validate,
		translator: translator,
	}
	return &fixture{cli: cli, api: api, acc: acc, store: store, out: out}
}

// loggedIn stores a fresh session for the participant.
func (fx *fixture) loggedIn(t *testing.T) session.Tokens {
	access, refresh := fx.api.Login(t, fx.acc.Email)
	tokens := session.Tokens{Access: access, Refresh: refresh}
	require.NoError(t, fx.store.Save(session.New(tokens)))
	return tokens
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	fx := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"status", "-h"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"status", "-lat", "north"}, wantErrStr: "invalid value"},
		{name: "login without email", args: []string{"login"}, wantErr: errHelp},
		{name: "leave without note", args: []string{"leave", "-type", "sick"}, wantErr: errHelp},
		{name: "status while logged out", args: []string{"status"}, wantErr: errNotLoggedIn},
		{name: "history while logged out", args: []string{"history"}, wantErr: errNotLoggedIn},
		{name: "dashboard while logged out", args: []string{"dashboard"}, wantErr: errNotLoggedIn},
		{name: "document without file", args: []string{"document", "-kind", "ktp"}, wantErr: errHelp},
		{name: "report without title", args: []string{"report", "-file", "akhir.pdf"}, wantErr: errHelp},
		{name: "announcement without id", args: []string{"announcement"}, wantErr: errHelp},
		{name: "payment with a missing file", args: []string{"payment", "-file", "/nonexistent/bukti.jpg"}, wantErrStr: "reading payment file"},
	}
	for _, tt := range tests {
		args := append([]string{"portal"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, fx.cli.run(args))
		})
	}
	assert.Zero(t, fx.api.TotalCalls())
}

func Test_commandLine_login(t *testing.T) {
	fx := setup(t)
	fx.api.AddAccount(testutil.Account{Email: "admin@example.com", Password: "admin", Role: "ADMIN"})

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"login", "-email", email}, wantErr: errHelp},
		{name: "bad credentials", args: []string{"login", "-email", email}, extra: extra{pwd: "salah"}, wantErrStr: testutil.MsgBadCredentials},
		{name: "not a participant", args: []string{"login", "-email", "admin@example.com"}, extra: extra{pwd: "admin"}, wantErr: errNotParticipant},
		{name: "ok", args: []string{"login", "-email", " BUDI@example.com "}, extra: extra{pwd: password}},
	}
	for _, tt := range tests {
		args := append([]string{"portal"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := fx.cli.run(args)
			tt.check(t, err)

			sess, loadErr := fx.store.Load()
			if err != nil {
				assert.Equal(t, session.ErrNoSession, loadErr)
				return
			}
			require.NoError(t, loadErr)
			claims, claimsErr := sess.Claims()
			require.NoError(t, claimsErr)
			assert.Equal(t, fx.acc.ID, claims.UserID)
			assert.Contains(t, fx.out.String(), "Logged in as Peserta Uji <budi@example.com>")
		})
	}

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, fx.cli.run([]string{"portal", "logout"}))
		_, err := fx.store.Load()
		assert.Equal(t, session.ErrNoSession, err)
	})
}

func Test_commandLine_profile(t *testing.T) {
	fx := setup(t)
	tokens := fx.loggedIn(t)

	require.NoError(t, fx.cli.run([]string{"portal", "profile"}))
	assert.Contains(t, fx.out.String(), "Peserta Uji")
	assert.Contains(t, fx.out.String(), "Universitas Uji")

	t.Run("refreshed access token is saved", func(t *testing.T) {
		fx.api.RevokeAccess(tokens.Access)
		require.NoError(t, fx.cli.run([]string{"portal", "profile"}))

		sess, err := fx.store.Load()
		require.NoError(t, err)
		assert.NotEqual(t, tokens.Access, sess.AccessToken())
		assert.Equal(t, tokens.Refresh, sess.RefreshToken())
	})

	t.Run("access token past its expiry is refreshed first", func(t *testing.T) {
		later := monday.Add(2 * time.Hour)
		nowFunc = func() time.Time { return later }
		fx.api.Now = func() time.Time { return later }
		defer func() {
			nowFunc = func() time.Time { return monday }
			fx.api.Now = func() time.Time { return monday }
		}()
		before, err := fx.store.Load()
		require.NoError(t, err)
		refreshes := fx.api.Calls(http.MethodPost, "/api/auth/token/refresh/")
		profiles := fx.api.Calls(http.MethodGet, "/api/peserta/me/")

		require.NoError(t, fx.cli.run([]string{"portal", "profile"}))
		assert.Equal(t, refreshes+1, fx.api.Calls(http.MethodPost, "/api/auth/token/refresh/"))
		assert.Equal(t, profiles+1, fx.api.Calls(http.MethodGet, "/api/peserta/me/"))

		sess, err := fx.store.Load()
		require.NoError(t, err)
		assert.NotEqual(t, before.AccessToken(), sess.AccessToken())
		assert.False(t, sess.Expired(later))
	})

	t.Run("expired session is forgotten", func(t *testing.T) {
		sess, err := fx.store.Load()
		require.NoError(t, err)
		fx.api.RevokeAccess(sess.AccessToken())
		fx.api.RevokeRefresh(sess.RefreshToken())

		err = fx.cli.run([]string{"portal", "profile"})
		assert.Equal(t, errNotLoggedIn, errors.Cause(err))
		_, err = fx.store.Load()
		assert.Equal(t, session.ErrNoSession, err)
	})
}

func Test_commandLine_locate(t *testing.T) {
	fx := setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no position", args: []string{"locate"}, want: "Geolocation is not supported on this device."},
		{name: "inside", args: []string{"locate", "-lat", "-6.20626", "-lng", "106.83023"}, want: "inside the area, 0 m from the center"},
		{name: "outside", args: []string{"locate", "-lat", "-6.21626", "-lng", "106.83023"}, want: "outside the area, 1112 m from the center"},
		{name: "invalid position", args: []string{"locate", "-lat", "91", "-lng", "0"}, want: "Failed to get your location."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx.out.Reset()
			require.NoError(t, fx.cli.run(append([]string{"portal"}, tt.args...)))
			assert.Contains(t, fx.out.String(), tt.want)
		})
	}

	t.Run("configured device position", func(t *testing.T) {
		fx.cli.conf.Device.Enabled = true
		fx.cli.conf.Device.Latitude = testutil.FacilityLat
		fx.cli.conf.Device.Longitude = testutil.FacilityLng
		defer func() { fx.cli.conf.Device.Enabled = false }()

		fx.out.Reset()
		require.NoError(t, fx.cli.run([]string{"portal", "locate"}))
		assert.Contains(t, fx.out.String(), "inside the area")
	})
	assert.Zero(t, fx.api.TotalCalls())
}

func Test_commandLine_checkin(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)
	inside := []string{"-lat", "-6.20626", "-lng", "106.83023"}

	tests := []cliTest{
		{name: "no position", args: []string{"checkin"}, wantErr: attendance.ErrOutOfRange},
		{name: "outside", args: []string{"checkin", "-lat", "-6.21626", "-lng", "106.83023"}, wantErr: attendance.ErrOutOfRange},
		{name: "check in", args: append([]string{"checkin"}, inside...), extra: testutil.MsgCheckedInPrefix + "09:30."},
		{name: "check out", args: append([]string{"checkin"}, inside...), extra: testutil.MsgCheckedOutPrefix + "09:30."},
		{name: "day complete", args: append([]string{"checkin"}, inside...), wantErr: attendance.ErrNothingToSubmit},
	}
	for _, tt := range tests {
		args := append([]string{"portal"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			fx.out.Reset()
			tt.check(t, fx.cli.run(args))
			if want, ok := tt.extra.(string); ok {
				assert.Contains(t, fx.out.String(), "[ok] "+want)
			}
		})
	}

	assert.Equal(t, 2, fx.api.Calls(http.MethodPost, "/api/peserta/absensi/"))
	recs := fx.api.Records(fx.acc.ID)
	require.Len(t, recs, 1)
	assert.Equal(t, "hadir", recs[0].Status)

	fx.out.Reset()
	require.NoError(t, fx.cli.run([]string{"portal", "status"}))
	assert.Contains(t, fx.out.String(), "Checked in and out")
	assert.Contains(t, fx.out.String(), "Present 1 (100%)")
}

func Test_commandLine_restricted(t *testing.T) {
	fx := setup(t)
	acc := fx.api.AddAccount(testutil.Account{Email: "sari@example.com", Password: "x", FullName: "Sari", ProfilLengkap: true})
	access, refresh := fx.api.Login(t, acc.Email)
	require.NoError(t, fx.store.Save(session.New(session.Tokens{Access: access, Refresh: refresh})))

	require.NoError(t, fx.cli.run([]string{"portal", "status"}))
	assert.Contains(t, fx.out.String(), attendance.ErrRestricted.Error())

	tests := []cliTest{
		{name: "checkin", args: []string{"checkin", "-lat", "-6.20626", "-lng", "106.83023"}, wantErr: attendance.ErrRestricted},
		{name: "leave", args: []string{"leave", "-type", "sick", "-note", "demam"}, wantErr: attendance.ErrRestricted},
		{name: "history", args: []string{"history"}, wantErr: attendance.ErrRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, fx.cli.run(append([]string{"portal"}, tt.args...)))
		})
	}
	assert.Zero(t, fx.api.Calls(http.MethodGet, "/api/peserta/absensi/"))
	assert.Zero(t, fx.api.Calls(http.MethodPost, "/api/peserta/absensi/"))
}

func Test_commandLine_leave(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)

	dir := t.TempDir()
	letter := filepath.Join(dir, "surat.pdf")
	require.NoError(t, ioutil.WriteFile(letter, []byte("%PDF-1.4"), 0600))
	tooBig := filepath.Join(dir, "besar.pdf")
	require.NoError(t, ioutil.WriteFile(tooBig, make([]byte, attendance.MaxEvidenceSize+1), 0600))

	tests := []cliTest{
		{name: "unknown type", args: []string{"leave", "-type", "cuti", "-note", "liburan"}, wantErrStr: "type"},
		{name: "weekend", args: []string{"leave", "-type", "excused", "-note", "acara", "-date", "2024-07-06"}, wantErr: attendance.ErrLeaveUnavailable},
		{name: "missing file", args: []string{"leave", "-type", "sick", "-note", "demam", "-file", filepath.Join(dir, "nope.pdf")}, wantErrStr: "reading evidence file"},
		{name: "file too big", args: []string{"leave", "-type", "sick", "-note", "demam", "-file", tooBig}, wantErrStr: "evidence"},
		{name: "excused tomorrow", args: []string{"leave", "-type", "excused", "-note", "acara keluarga", "-date", "2024-07-02"}},
		{name: "sick today", args: []string{"leave", "-type", "sick", "-note", "demam", "-file", letter}},
		{name: "today already recorded", args: []string{"leave", "-type", "excused", "-note", "acara"}, wantErr: attendance.ErrLeaveUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, fx.cli.run(append([]string{"portal"}, tt.args...)))
		})
	}

	assert.Equal(t, []testutil.LeaveForm{
		{Tanggal: "2024-07-02", StatusKehadiran: "IZIN", Keterangan: "acara keluarga"},
		{Tanggal: "2024-07-01", StatusKehadiran: "SAKIT", Keterangan: "demam", Filename: "surat.pdf", FileSize: 8},
	}, fx.api.Leaves())
	assert.Contains(t, fx.out.String(), "[ok] "+testutil.MsgLeaveSent)
	assert.Zero(t, fx.api.Calls(http.MethodPost, "/api/peserta/absensi/"))
}

func Test_commandLine_history(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)
	fx.api.AddRecord(fx.acc.ID, testutil.WireRecord{Tanggal: "2024-06-27", Status: "hadir", JamMasuk: testutil.StrPtr("08:00:00"), JamKeluar: testutil.StrPtr("16:00:00")})
	fx.api.AddRecord(fx.acc.ID, testutil.WireRecord{Tanggal: "2024-06-28", Status: "izin", Keterangan: testutil.StrPtr("acara")})

	require.NoError(t, fx.cli.run([]string{"portal", "history"}))
	out := fx.out.String()
	assert.Contains(t, out, "2024-06-28  Excused")
	assert.Contains(t, out, "Present 1 (50%) | Excused 1 | Sick 0 | Absent 0")

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absensi.xlsx")
		require.NoError(t, fx.cli.run([]string{"portal", "history", "-export", path}))
		assert.Contains(t, fx.out.String(), "[ok] Attendance history exported to "+path)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows(export.AttendanceSheet)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

func writeFile(t *testing.T, name string, content []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, content, 0600))
	return path
}

func Test_commandLine_documents(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)

	require.NoError(t, fx.cli.run([]string{"portal", "documents"}))
	assert.Contains(t, fx.out.String(), "Missing: ktp, ktm, kk, photo, proposal, nilai, pernyataan")

	tests := []cliTest{
		{name: "missing file", args: []string{"document", "-kind", "ktp", "-file", "/nonexistent/ktp.pdf"}, wantErrStr: "reading document file"},
		{name: "empty file", args: []string{"document", "-kind", "ktp", "-file", writeFile(t, "kosong.pdf", nil)}, wantErrStr: "uploadempty"},
		{name: "upload", args: []string{"document", "-kind", " KTP ", "-file", writeFile(t, "ktp.pdf", []byte("%PDF-1.4"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, fx.cli.run(append([]string{"portal"}, tt.args...)))
		})
	}

	out := fx.out.String()
	assert.Contains(t, out, "[ok] Document uploaded.")
	assert.Contains(t, out, "ktp.pdf")
	assert.Contains(t, out, "Verified")
	assert.Contains(t, out, "Missing: ktm, kk, photo, proposal, nilai, pernyataan")

	docs := fx.api.Documents(fx.acc.ID)
	require.Len(t, docs, 1)
	assert.Equal(t, "ktp", docs[0].JenisDokumen)
}

func Test_commandLine_reports(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)
	report := writeFile(t, "akhir.pdf", []byte("%PDF-1.4"))

	require.NoError(t, fx.cli.run([]string{"portal", "reports"}))
	assert.Contains(t, fx.out.String(), "No report submitted yet.")

	tests := []cliTest{
		{name: "no description", args: []string{"report", "-title", "Laporan Akhir", "-file", report}, wantErrStr: "required"},
		{name: "submit", args: []string{"report", "-title", "Laporan Akhir", "-desc", "Budidaya lele", "-file", report}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, fx.cli.run(append([]string{"portal"}, tt.args...)))
		})
	}
	assert.Contains(t, fx.out.String(), "[ok] "+testutil.MsgReportSent)

	reports := fx.api.Reports(fx.acc.ID)
	require.Len(t, reports, 1)
	assert.Equal(t, "Budidaya lele", reports[0].Deskripsi)

	t.Run("reviewed", func(t *testing.T) {
		fx.api.ReviewReport(fx.acc.ID, reports[0].ID, "ditolak", "Lengkapi data panen")
		fx.out.Reset()
		require.NoError(t, fx.cli.run([]string{"portal", "reports"}))
		out := fx.out.String()
		assert.Contains(t, out, "Laporan Akhir")
		assert.Contains(t, out, "Rejected")
		assert.Contains(t, out, "Lengkapi data panen")
	})
}

func Test_commandLine_certificate(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)

	require.NoError(t, fx.cli.run([]string{"portal", "certificate"}))
	out := fx.out.String()
	assert.Contains(t, out, testutil.MsgCertificateNotEligible)
	assert.Contains(t, out, "[ ] Menyelesaikan periode bimbingan")

	fx.api.SetStatus(fx.acc.ID, "SELESAI")
	fx.api.IssueCertificate(fx.acc.ID, testutil.WireCertificate{NomorSertifikat: "BBPBAT/2024/001", FileURL: "/media/sertifikat/001.pdf"})
	fx.out.Reset()
	require.NoError(t, fx.cli.run([]string{"portal", "certificate"}))
	out = fx.out.String()
	assert.Contains(t, out, testutil.MsgCertificateIssued)
	assert.Contains(t, out, "BBPBAT/2024/001")
	assert.Contains(t, out, "2024-07-01")
}

func Test_commandLine_payment(t *testing.T) {
	fx := setup(t)
	acc := fx.api.AddAccount(testutil.Account{Email: "umum@example.com", Password: "x", FullName: "Umum", Type: program.TypeGeneral, ProfilLengkap: true, DokumenLengkap: true})
	access, refresh := fx.api.Login(t, acc.Email)
	require.NoError(t, fx.store.Save(session.New(session.Tokens{Access: access, Refresh: refresh})))

	require.NoError(t, fx.cli.run([]string{"portal", "payment"}))
	assert.Contains(t, fx.out.String(), "No proof of payment uploaded yet.")

	require.NoError(t, fx.cli.run([]string{"portal", "payment", "-file", writeFile(t, "bukti.jpg", []byte("jpeg"))}))
	out := fx.out.String()
	assert.Contains(t, out, "[ok] Payment proof uploaded.")
	assert.Contains(t, out, "bukti.jpg")
	assert.Contains(t, out, "Waiting for verification")

	fx.api.VerifyPayment(acc.ID, testutil.PaymentRejected, "Bukti buram")
	fx.out.Reset()
	require.NoError(t, fx.cli.run([]string{"portal", "payment"}))
	out = fx.out.String()
	assert.Contains(t, out, "Rejected")
	assert.Contains(t, out, "Bukti buram")

	fx.out.Reset()
	require.NoError(t, fx.cli.run([]string{"portal", "dashboard"}))
	assert.Contains(t, fx.out.String(), "uploaded on 2024-07-01, rejected")
}

func Test_commandLine_announcements(t *testing.T) {
	fx := setup(t)
	fx.loggedIn(t)
	ann := fx.api.AddAnnouncement(testutil.WireAnnouncement{Judul: "Jadwal Panen", Konten: "Panen lele hari Jumat.", Penulis: "Admin"})

	require.NoError(t, fx.cli.run([]string{"portal", "dashboard"}))
	out := fx.out.String()
	assert.Contains(t, out, "Report:")
	assert.Contains(t, out, "not uploaded")
	assert.Contains(t, out, "Jadwal Panen")

	fx.out.Reset()
	require.NoError(t, fx.cli.run([]string{"portal", "announcement", "-id", strconv.Itoa(ann.ID)}))
	assert.Contains(t, fx.out.String(), "Panen lele hari Jumat.")

	err := fx.cli.run([]string{"portal", "announcement", "-id", "999"})
	assert.Equal(t, program.ErrAnnouncementNotFound, errors.Cause(err))
	assert.Equal(t, 1, fx.api.Calls(http.MethodGet, testutil.AnnouncementPath(999)))
}
