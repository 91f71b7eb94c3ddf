// Package portalapi is the only place that talks to the remote program API.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/session"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api"
	DefaultTimeout = 10 * time.Second
)

// endpoints
const (
	tokenPath        = "/auth/token/"
	tokenRefreshPath = "/auth/token/refresh/"
	mePath           = "/auth/me/"
	profilePath      = "/peserta/me/"
	attendancePath   = "/peserta/absensi/"
	leavePath        = "/peserta/ajukan-izin/"
	dashboardPath    = "/peserta/dashboard/"
	documentPath     = "/peserta/dokumen/upload/"
	reportsPath      = "/peserta/laporan/"
	certificatePath  = "/peserta/sertifikat/"
	paymentPath      = "/peserta/pembayaran/"
	announcementPath = "/pengumuman/%d/"
)

type Client struct {
	baseURL string
	rest    *rest.Client
	logger  core.Logger
}

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return New(conf.API.BaseURL, conf.API.Timeout, logger)
}

func New(baseURL string, timeout time.Duration, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:  logger,
	}
}

// Login exchanges credentials for a new session.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, participant.User, error) {
	body, err := json.Marshal(loginDTO{Email: core.CleanString(email, true /* lower */), Password: password})
	if err != nil {
		return nil, participant.User{}, errors.Wrap(err, "encoding credentials")
	}
	res, err := c.send(ctx, nil, rest.Post, tokenPath, body, "application/json")
	if err != nil {
		return nil, participant.User{}, err
	}
	var dto tokensDTO
	if err := c.decode(tokenPath, res, &dto); err != nil {
		return nil, participant.User{}, err
	}
	if dto.Access == "" {
		return nil, participant.User{}, &NetworkError{Op: tokenPath, Err: errors.New("no access token in response")}
	}
	return session.New(dto.toTokens()), dto.User.toUser(), nil
}

// RefreshAccess obtains a new access token for sess. The session is cleared when the
// refresh token is rejected.
func (c *Client) RefreshAccess(ctx context.Context, sess *session.Session) error {
	refresh := sess.RefreshToken()
	if refresh == "" {
		return ErrSessionExpired
	}
	body, err := json.Marshal(refreshDTO{Refresh: refresh})
	if err != nil {
		return errors.Wrap(err, "encoding refresh token")
	}
	res, err := c.send(ctx, nil, rest.Post, tokenRefreshPath, body, "application/json")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			sess.Clear()
			return ErrSessionExpired
		}
		return err
	}
	var dto accessDTO
	if err := c.decode(tokenRefreshPath, res, &dto); err != nil {
		return err
	}
	if dto.Access == "" {
		sess.Clear()
		return ErrSessionExpired
	}
	sess.SetAccessToken(dto.Access)
	return nil
}

func (c *Client) Me(ctx context.Context, sess *session.Session) (participant.User, error) {
	var dto userDTO
	if err := c.getJSON(ctx, sess, mePath, &dto); err != nil {
		return participant.User{}, err
	}
	return dto.toUser(), nil
}

func (c *Client) Profile(ctx context.Context, sess *session.Session) (participant.Profile, error) {
	var dto profileDTO
	if err := c.getJSON(ctx, sess, profilePath, &dto); err != nil {
		return participant.Profile{}, err
	}
	return dto.toProfile(), nil
}

func (c *Client) AttendanceHistory(ctx context.Context, sess *session.Session) ([]attendance.Record, error) {
	var dtos []recordDTO
	if err := c.getJSON(ctx, sess, attendancePath, &dtos); err != nil {
		return nil, err
	}
	return toRecords(dtos), nil
}

// MarkAttendance posts an empty check-in/check-out; the server infers which one it is.
func (c *Client) MarkAttendance(ctx context.Context, sess *session.Session) (string, error) {
	res, err := c.send(ctx, sess, rest.Post, attendancePath, nil, "")
	if err != nil {
		return "", err
	}
	var dto detailDTO
	if err := c.decode(attendancePath, res, &dto); err != nil {
		return "", err
	}
	return dto.Detail, nil
}

// SubmitLeave sends a multipart leave request. The evidence file only goes out with sick leave.
func (c *Client) SubmitLeave(ctx context.Context, sess *session.Session, req attendance.LeaveRequest) (string, error) {
	body, contentType, err := leaveForm(req)
	if err != nil {
		return "", errors.Wrap(err, "encoding leave request")
	}
	res, err := c.send(ctx, sess, rest.Post, leavePath, body, contentType)
	if err != nil {
		return "", err
	}
	var dto detailDTO
	if err := c.decode(leavePath, res, &dto); err != nil {
		return "", err
	}
	return dto.Detail, nil
}

func leaveForm(req attendance.LeaveRequest) ([]byte, string, error) {
	fields := [][2]string{
		{"tanggal", req.Date},
		{"status_kehadiran", leaveToWire[req.Type]},
		{"keterangan", req.Note},
	}
	var files []formFile
	if req.Type == attendance.LeaveSick {
		files = append(files, formFile{name: "surat_dokter", file: req.Evidence})
	}
	return multipartForm(fields, files...)
}

type formFile struct {
	name string
	file *attendance.Attachment
}

// multipartForm encodes fields and files as multipart/form-data. Nil files are skipped.
func multipartForm(fields [][2]string, files ...formFile) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	for _, ff := range files {
		if ff.file == nil {
			continue
		}
		contentType := ff.file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ff.name, ff.file.Filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(ff.file.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) getJSON(ctx context.Context, sess *session.Session, path string, dest interface{}) error {
	res, err := c.send(ctx, sess, rest.Get, path, nil, "")
	if err != nil {
		return err
	}
	return c.decode(path, res, dest)
}

// send performs the request, authenticated with sess when given. On a 401 the access token
// is refreshed once and the request replayed.
func (c *Client) send(ctx context.Context, sess *session.Session, method rest.Method, path string, body []byte, contentType string) (*rest.Response, error) {
	if sess != nil && !sess.IsAuthenticated() {
		return nil, ErrSessionExpired
	}

	res, err := c.do(ctx, sess, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if sess != nil && res.StatusCode == http.StatusUnauthorized {
		if err := c.RefreshAccess(ctx, sess); err != nil {
			return nil, err
		}
		if res, err = c.do(ctx, sess, method, path, body, contentType); err != nil {
			return nil, err
		}
		if res.StatusCode == http.StatusUnauthorized {
			sess.Clear()
			return nil, ErrSessionExpired
		}
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, c.responseError(path, res)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, sess *session.Session, method rest.Method, path string, body []byte, contentType string) (*rest.Response, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Accept":       "application/json",
			"X-Request-ID": uuid.New().String(),
		},
		Body: body,
	}
	if contentType != "" {
		req.Headers["Content-Type"] = contentType
	}
	if sess != nil {
		req.Headers["Authorization"] = "Bearer " + sess.AccessToken()
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		c.log(func(l core.Logger) { l.Warn(fmt.Sprintf("%s %s failed: %v", method, path, err), err) })
		return nil, &NetworkError{Op: string(method) + " " + path, Err: err}
	}
	return res, nil
}

func (c *Client) responseError(path string, res *rest.Response) error {
	if apiErr := decodeError(res.StatusCode, res.Body); apiErr != nil {
		return apiErr
	}
	if res.StatusCode >= http.StatusInternalServerError {
		c.log(func(l core.Logger) { l.Error(fmt.Sprintf("%s - status: %d - body: %s", path, res.StatusCode, res.Body)) })
		return &NetworkError{Op: path, Err: errors.Errorf("server error %d", res.StatusCode)}
	}
	return &APIError{StatusCode: res.StatusCode}
}

func (c *Client) decode(path string, res *rest.Response, dest interface{}) error {
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return &NetworkError{Op: path, Err: errors.Wrap(err, "decoding response")}
	}
	return nil
}

func (c *Client) log(fn func(core.Logger)) {
	if c.logger != nil {
		fn(c.logger)
	}
}

// Participant binds the client to one participant's session.
type Participant struct {
	client *Client
	sess   *session.Session
}

var _ attendance.Client = (*Participant)(nil)

func (c *Client) For(sess *session.Session) *Participant {
	return &Participant{client: c, sess: sess}
}

func (p *Participant) Session() *session.Session { return p.sess }

func (p *Participant) Me(ctx context.Context) (participant.User, error) {
	return p.client.Me(ctx, p.sess)
}

func (p *Participant) Profile(ctx context.Context) (participant.Profile, error) {
	return p.client.Profile(ctx, p.sess)
}

func (p *Participant) AttendanceHistory(ctx context.Context) ([]attendance.Record, error) {
	return p.client.AttendanceHistory(ctx, p.sess)
}

func (p *Participant) MarkAttendance(ctx context.Context) (string, error) {
	return p.client.MarkAttendance(ctx, p.sess)
}

func (p *Participant) SubmitLeave(ctx context.Context, req attendance.LeaveRequest) (string, error) {
	return p.client.SubmitLeave(ctx, p.sess, req)
}
