package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/geo"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/services/export"
	logsvc "github.com/bbpbat/portal/services/logger"
	"github.com/bbpbat/portal/services/portalapi"
	"github.com/bbpbat/portal/tests"
)

var (
	monday = time.Date(2024, time.July, 1, 9, 30, 0, 0, time.UTC)

	inRange  = []byte(`{"latitude": -6.20626, "longitude": 106.83023, "accuracy": 12}`)
	outRange = []byte(`{"latitude": -6.21626, "longitude": 106.83023, "accuracy": 12}`)

	errMissingToken = httpErr{Error: "missing or malformed token"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func setup(t *testing.T) (*testutil.FakeAPI, Server) {
	api, srv, _ := setupWithGate(t)
	return api, srv
}

func setupWithGate(t *testing.T) (*testutil.FakeAPI, Server, *attendance.Gate) {
	api := testutil.NewFakeAPI(t)
	api.Now = func() time.Time { return monday }
	attendance.NowFunc = func() time.Time { return monday }
	t.Cleanup(func() { attendance.NowFunc = time.Now })

	conf := testutil.NewConfig(api.BaseURL())
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	program.InitValidators(validate, translator)

	gate := attendance.NewGate()
	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logsvc.NewDiscardLogger(),
		API:        portalapi.NewClient(conf, nil),
		Validate:   validate,
		Translator: translator,
		Gate:       gate,
	})
	return api, srv, gate
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeAttendance(t *testing.T, rec *httptest.ResponseRecorder) AttendanceResponse {
	var resp AttendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodeAttendance(): %v; body %s", err, rec.Body.String())
	}
	return resp
}

func Test_authApi(t *testing.T) {
	api, srv := setup(t)
	api.AddParticipant("budi@example.com", "rahasia")
	api.AddAccount(testutil.Account{Email: "admin@example.com", Password: "rahasia", Role: "ADMIN"})

	tests := []httpTest{
		{
			name:     "bad credentials",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"email": "budi@example.com", "password": "salah"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: testutil.MsgBadCredentials}),
		},
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"email": "budi@example.com"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "this field is required"}`),
		},
		{
			name:     "not a participant",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"email": "admin@example.com", "password": "rahasia"}`),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "bad refresh token",
			method:   http.MethodPost,
			path:     "/v1/auth/refresh",
			body:     []byte(`{"refresh": "nope"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: portalapi.ErrSessionExpired.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login and refresh", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"email": " BUDI@example.com", "password": "rahasia"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var login LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
		assert.NotEmpty(t, login.Access)
		assert.Equal(t, "budi@example.com", login.User.Email)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

		req, rec = newRequest(http.MethodPost, "/v1/auth/refresh", marshallObj(t, RefreshRequest{Refresh: login.Refresh}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var refreshed RefreshResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
		assert.NotEmpty(t, refreshed.Access)
		assert.NotEqual(t, login.Access, refreshed.Access)

		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", refreshed.Access)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var me participant.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
		assert.Equal(t, login.User, me)
		assert.Equal(t, 1, api.Calls(http.MethodGet, "/api/auth/me/"))
	})

	t.Run("me without a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/me")
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)
	})
}


func Test_attendanceApi_auth(t *testing.T) {
	api, srv := setup(t)
	admin := api.AddAccount(testutil.Account{Email: "admin@example.com", Password: "x", Role: "ADMIN"})
	adminToken, _ := api.Login(t, admin.Email)

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/attendance", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "garbage token", method: http.MethodGet, path: "/v1/attendance", token: "garbage", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "admin token", method: http.MethodPost, path: "/v1/attendance", token: adminToken, wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Zero(t, api.Calls(http.MethodGet, "/api/peserta/absensi/"))
}

func Test_attendanceApi_view(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	api.AddRecord(acc.ID, testutil.WireRecord{Tanggal: "2024-06-28", Status: "sakit"})
	token, _ := api.Login(t, acc.Email)

	req, rec := newAuthRequest(http.MethodGet, "/v1/attendance?latitude=-6.20626&longitude=106.83023&accuracy=10", token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeAttendance(t, rec)
	v := resp.Attendance
	assert.False(t, v.Restricted)
	assert.Equal(t, geo.StateResolved, v.Location.State)
	assert.True(t, v.Location.InRange)
	assert.InDelta(t, 0, v.Location.Distance.Float64, 0.001)
	assert.Equal(t, attendance.DayNoRecord, v.State)
	assert.Equal(t, attendance.Eligibility{CanCheckIn: true, CanRequestLeave: true}, v.Eligibility)
	assert.Len(t, v.History, 1)
	assert.Equal(t, attendance.Stats{Sick: 1}, v.Stats)
	assert.Equal(t, "BBPBAT Sukabumi", v.Zone.Name)
	assert.Equal(t, "Peserta Uji", resp.Profile.FullName)

	t.Run("location error reported by the browser", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance?error_code=1", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		loc := decodeAttendance(t, rec).Attendance.Location
		assert.Equal(t, geo.StateFailed, loc.State)
		require.NotNil(t, loc.Error)
		assert.Equal(t, geo.ErrKindPermissionDenied, loc.Error.Kind)
	})
}

func Test_attendanceApi_restricted(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddAccount(testutil.Account{Email: "sari@example.com", Password: "x", FullName: "Sari", ProfilLengkap: true})
	token, _ := api.Login(t, acc.Email)

	req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeAttendance(t, rec).Attendance.Restricted)

	tests := []httpTest{
		{name: "submit", method: http.MethodPost, path: "/v1/attendance", body: inRange, token: token, wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: attendance.ErrRestricted.Error()})},
		{name: "export", method: http.MethodGet, path: "/v1/attendance/export", token: token, wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: attendance.ErrRestricted.Error()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	assert.Zero(t, api.Calls(http.MethodGet, "/api/peserta/absensi/"))
	assert.Zero(t, api.Calls(http.MethodPost, "/api/peserta/absensi/"))
}

func Test_attendanceApi_submit(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	token, _ := api.Login(t, acc.Email)

	t.Run("out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, outRange)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

		resp := decodeAttendance(t, rec)
		assert.False(t, resp.Attendance.Location.InRange)
		assert.InDelta(t, 1112, resp.Attendance.Location.Distance.Float64, 2)
		require.NotEmpty(t, resp.Notifications)
		last := resp.Notifications[len(resp.Notifications)-1]
		assert.Equal(t, core.NotifyBlocking, last.Level)
		assert.Contains(t, last.Message, "BBPBAT Sukabumi")
		assert.Zero(t, api.Calls(http.MethodPost, "/api/peserta/absensi/"))
	})

	t.Run("check in", func(t *testing.T) {
		gets := api.Calls(http.MethodGet, "/api/peserta/absensi/")

		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeAttendance(t, rec)
		assert.Equal(t, testutil.MsgCheckedInPrefix+"09:30.", resp.Detail)
		assert.Equal(t, attendance.DayCheckedIn, resp.Attendance.State)
		assert.True(t, resp.Attendance.Eligibility.CanCheckOut)
		require.NotNil(t, resp.Attendance.Today)
		assert.Equal(t, "09:30:00", resp.Attendance.Today.CheckIn.String)

		assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/peserta/absensi/"))
		assert.Equal(t, gets+3, api.Calls(http.MethodGet, "/api/peserta/absensi/")) // page load + reload + refetch
	})

	t.Run("check out", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, attendance.DayCheckedOut, decodeAttendance(t, rec).Attendance.State)
	})

	t.Run("day complete", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: attendance.ErrNothingToSubmit.Error()}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
		assert.Equal(t, 2, api.Calls(http.MethodPost, "/api/peserta/absensi/"))
	})
}

func Test_attendanceApi_submitInProgress(t *testing.T) {
	api, srv, gate := setupWithGate(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	token, _ := api.Login(t, acc.Email)
	require.NotEqual(t, acc.ID, acc.ProfileID)

	// a submission running under the account ID does not block the participant
	userKey := strconv.Itoa(acc.ID)
	require.True(t, gate.TryAcquire(userKey))
	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gate.Release(userKey)

	profileKey := strconv.Itoa(acc.ProfileID)
	require.True(t, gate.TryAcquire(profileKey))
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: attendance.ErrBusy.Error()})}, rec)
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/peserta/absensi/"))

	gate.Release(profileKey)
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, inRange)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, attendance.DayCheckedOut, decodeAttendance(t, rec).Attendance.State)
	assert.False(t, gate.Busy(profileKey))
}

func Test_attendanceApi_refreshedToken(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	access, refresh := api.Login(t, acc.Email)
	api.RevokeAccess(access)

	req, rec := newAuthRequest(http.MethodGet, "/v1/me", access)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/me", access)
	req.Header.Set(headerRefreshToken, refresh)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	newAccess := rec.Header().Get(headerAccessToken)
	assert.NotEmpty(t, newAccess)
	assert.NotEqual(t, access, newAccess)

	req, rec = newAuthRequest(http.MethodGet, "/v1/me", newAccess)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(headerAccessToken))
}

func newLeaveRequest(t *testing.T, token string, fields map[string]string, file []byte) (*http.Request, *httptest.ResponseRecorder) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("evidence", "surat.pdf")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/attendance/leave", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_attendanceApi_leave(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	token, _ := api.Login(t, acc.Email)

	t.Run("blank note", func(t *testing.T) {
		req, rec := newLeaveRequest(t, token, map[string]string{"type": "sick", "note": "  "}, nil)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"note": "this field is required"}`)}, rec)
	})

	t.Run("oversized evidence", func(t *testing.T) {
		req, rec := newLeaveRequest(t, token, map[string]string{"type": "sick", "note": "demam"}, make([]byte, attendance.MaxEvidenceSize+10))
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"evidence": "evidence file must not exceed 2 MB"}`)}, rec)
	})

	t.Run("weekend", func(t *testing.T) {
		req, rec := newLeaveRequest(t, token, map[string]string{"date": "2024-07-06", "type": "excused", "note": "acara"}, nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
	assert.Empty(t, api.Leaves())

	t.Run("sick leave with evidence", func(t *testing.T) {
		req, rec := newLeaveRequest(t, token, map[string]string{"type": "sick", "note": "demam"}, []byte("%PDF-1.4"))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decodeAttendance(t, rec)
		assert.Equal(t, testutil.MsgLeaveSent, resp.Detail)
		assert.Equal(t, attendance.DaySick, resp.Attendance.State)
		assert.Equal(t, attendance.Eligibility{}, resp.Attendance.Eligibility)

		leaves := api.Leaves()
		require.Len(t, leaves, 1)
		assert.Equal(t, testutil.LeaveForm{Tanggal: "2024-07-01", StatusKehadiran: "SAKIT", Keterangan: "demam", Filename: "surat.pdf", FileSize: 8}, leaves[0])
	})

	t.Run("date already recorded", func(t *testing.T) {
		api.AddRecord(acc.ID, testutil.WireRecord{Tanggal: "2024-07-02", Status: "izin"})
		req, rec := newLeaveRequest(t, token, map[string]string{"date": "2024-07-02", "type": "excused", "note": "acara"}, nil)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: attendance.ErrLeaveUnavailable.Error()})}, rec)
		assert.Len(t, api.Leaves(), 1)
	})
}

func Test_attendanceApi_location(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	token, _ := api.Login(t, acc.Email)

	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/location", token, outRange)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, geo.StateResolved, resp.Location.State)
	assert.False(t, resp.Location.InRange)
	assert.Equal(t, 150.0, resp.Zone.RadiusMeters)

	stale := []byte(`{"latitude": -6.20626, "longitude": 106.83023, "timestamp": 1000}`)
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/location", token, stale)
	srv.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Location.Error)
	assert.Equal(t, geo.ErrKindTimeout, resp.Location.Error.Kind)
	assert.Zero(t, api.TotalCalls())
}

func TestLocationReport_Fix(t *testing.T) {
	tests := []struct {
		name      string
		report    LocationReport
		wantEmpty bool
	}{
		{name: "nothing sent", report: LocationReport{}, wantEmpty: true},
		{name: "position", report: LocationReport{Latitude: -6.20626, Longitude: 106.83023}},
		{name: "position at 0,0", report: LocationReport{Accuracy: 25, Timestamp: monday.UnixNano() / int64(time.Millisecond)}},
		{name: "browser error", report: LocationReport{ErrorCode: geo.CodePermissionDenied, Accuracy: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := tt.report.Fix()
			assert.Equal(t, tt.wantEmpty, fix.Empty())
			assert.Equal(t, tt.report.ErrorCode == 0 && !tt.wantEmpty, fix.HasPosition)
		})
	}
}

func Test_attendanceApi_export(t *testing.T) {
	api, srv := setup(t)
	acc := api.AddParticipant("budi@example.com", "rahasia")
	api.AddRecord(acc.ID, testutil.WireRecord{Tanggal: "2024-06-28", Status: "hadir", JamMasuk: testutil.StrPtr("08:00:00"), JamKeluar: testutil.StrPtr("16:00:00")})
	token, _ := api.Login(t, acc.Email)

	req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/export", token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "attendance-2024-07-01.xlsx"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(export.AttendanceSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-28", "Present", "08:00:00", "16:00:00"}, rows[1])
}

func Test_home(t *testing.T) {
	_, srv := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BBPBAT Portal")
}
