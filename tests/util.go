// Package testutil provides a fake of the remote program API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	MsgCheckedInPrefix  = "Absen masuk berhasil dicatat pada pukul "
	MsgCheckedOutPrefix = "Absen keluar berhasil dicatat pada pukul "
	MsgDayComplete      = "Anda sudah menyelesaikan absensi hari ini (masuk dan keluar)."
	MsgRecordExists     = "Anda sudah memiliki catatan absensi pada tanggal tersebut."
	MsgLeaveSent        = "Pengajuan izin/sakit berhasil dikirim."
	MsgBadCredentials   = "No active account found with the given credentials"
	MsgTokenInvalid     = "Given token not valid for any token type"

	signingKey = "fake-api-secret"
)

type (
	// WireRecord is an attendance record as the remote API serializes it.
	WireRecord struct {
		ID         int     `json:"id"`
		Tanggal    string  `json:"tanggal"`
		Status     string  `json:"status"`
		JamMasuk   *string `json:"jam_masuk"`
		JamKeluar  *string `json:"jam_keluar"`
		Keterangan *string `json:"keterangan"`
	}

	// LeaveForm is a received leave request.
	LeaveForm struct {
		Tanggal         string
		StatusKehadiran string
		Keterangan      string
		Filename        string
		FileSize        int
	}

	Account struct {
		ID             int
		ProfileID      int // the profile's own ID, distinct from the user ID
		Email          string
		Password       string
		FullName       string
		Role           string
		Type           string // PELAJAR | UMUM
		Status         string // AKTIF | SELESAI | LULUS
		StartDate      string
		EndDate        string
		Mentor         string
		ProfilLengkap  bool
		DokumenLengkap bool
	}

	// FakeAPI serves the subset of the remote API the portal uses.
	// The attendance endpoints follow the server's rules: the first POST of the day
	// checks in, the second checks out, the third is rejected.
	FakeAPI struct {
		*httptest.Server
		Now func() time.Time

		mu            sync.Mutex
		accounts      map[string]*Account // by email
		access        map[string]int      // token -> account ID
		refresh       map[string]int
		records       map[int][]WireRecord
		leaves        []LeaveForm
		documents     map[int][]WireDocument
		reports       map[int][]WireReport
		payments      map[int]*WirePayment
		certificates  map[int]*WireCertificate
		announcements []WireAnnouncement
		calls         map[string]int // "METHOD /path/"
		seq           int
		fail          map[string]int // endpoint -> status to answer with
	}
)

func NewFakeAPI(t *testing.T) *FakeAPI {
	api := &FakeAPI{
		Now:          time.Now,
		accounts:     make(map[string]*Account),
		access:       make(map[string]int),
		refresh:      make(map[string]int),
		records:      make(map[int][]WireRecord),
		documents:    make(map[int][]WireDocument),
		reports:      make(map[int][]WireReport),
		payments:     make(map[int]*WirePayment),
		certificates: make(map[int]*WireCertificate),
		calls:        make(map[string]int),
		fail:         make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/token/", api.handleToken)
	mux.HandleFunc("/api/auth/token/refresh/", api.handleRefresh)
	mux.HandleFunc("/api/auth/me/", api.authenticated(api.handleMe))
	mux.HandleFunc("/api/peserta/me/", api.authenticated(api.handleProfile))
	mux.HandleFunc("/api/peserta/absensi/", api.authenticated(api.handleAttendance))
	mux.HandleFunc("/api/peserta/ajukan-izin/", api.authenticated(api.handleLeave))
	mux.HandleFunc("/api/peserta/dashboard/", api.authenticated(api.handleDashboard))
	mux.HandleFunc("/api/peserta/dokumen/upload/", api.authenticated(api.handleDocumentUpload))
	mux.HandleFunc("/api/peserta/laporan/", api.authenticated(api.handleReports))
	mux.HandleFunc("/api/peserta/sertifikat/", api.authenticated(api.handleCertificate))
	mux.HandleFunc("/api/peserta/pembayaran/", api.authenticated(api.handlePayment))
	mux.HandleFunc("/api/pengumuman/", api.authenticated(api.handleAnnouncement))
	api.Server = httptest.NewServer(api.count(mux))
	t.Cleanup(api.Close)
	return api
}

// BaseURL is the API root to configure clients with.
func (api *FakeAPI) BaseURL() string {
	return api.URL + "/api"
}

func (api *FakeAPI) AddAccount(acc Account) *Account {
	api.mu.Lock()
	defer api.mu.Unlock()
	if acc.ID == 0 {
		acc.ID = len(api.accounts) + 1
	}
	if acc.ProfileID == 0 {
		acc.ProfileID = acc.ID + 100
	}
	if acc.Role == "" {
		acc.Role = "PESERTA"
	}
	if acc.Type == "" {
		acc.Type = "PELAJAR"
	}
	if acc.Status == "" {
		acc.Status = "AKTIF"
	}
	if acc.StartDate == "" {
		acc.StartDate = "2024-07-01"
	}
	api.accounts[strings.ToLower(acc.Email)] = &acc
	return &acc
}

// AddParticipant registers a participant with a complete profile.
func (api *FakeAPI) AddParticipant(email, password string) *Account {
	return api.AddAccount(Account{Email: email, Password: password, FullName: "Peserta Uji", ProfilLengkap: true, DokumenLengkap: true})
}

func (api *FakeAPI) AddRecord(accountID int, rec WireRecord) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.seq++
	if rec.ID == 0 {
		rec.ID = api.seq
	}
	api.records[accountID] = append(api.records[accountID], rec)
}

func (api *FakeAPI) Records(accountID int) []WireRecord {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]WireRecord(nil), api.records[accountID]...)
}

func (api *FakeAPI) Leaves() []LeaveForm {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]LeaveForm(nil), api.leaves...)
}

// Calls returns how many times "METHOD /api/path/" was hit.
func (api *FakeAPI) Calls(method, path string) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.calls[method+" "+path]
}

func (api *FakeAPI) TotalCalls() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	var n int
	for _, c := range api.calls {
		n += c
	}
	return n
}

// Fail makes every request to path answer with status until reset with 0.
func (api *FakeAPI) Fail(path string, status int) {
	api.mu.Lock()
	api.fail[path] = status
	api.mu.Unlock()
}

// Login issues a token pair for an account directly.
func (api *FakeAPI) Login(t *testing.T, email string) (access, refresh string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	acc, ok := api.accounts[strings.ToLower(email)]
	if !ok {
		t.Fatalf("Login(): no account %q", email)
	}
	return api.issue(acc)
}

// RevokeAccess invalidates an access token, as if it expired.
func (api *FakeAPI) RevokeAccess(token string) {
	api.mu.Lock()
	delete(api.access, token)
	api.mu.Unlock()
}

func (api *FakeAPI) RevokeRefresh(token string) {
	api.mu.Lock()
	delete(api.refresh, token)
	api.mu.Unlock()
}

func (api *FakeAPI) issue(acc *Account) (access, refresh string) {
	api.seq++
	access = api.sign(acc, "access", api.seq, time.Hour)
	refresh = api.sign(acc, "refresh", api.seq, 24*time.Hour)
	api.access[access] = acc.ID
	api.refresh[refresh] = acc.ID
	return access, refresh
}

func (api *FakeAPI) sign(acc *Account, typ string, jti int, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"token_type":   typ,
		"exp":          api.Now().Add(ttl).Unix(),
		"jti":          fmt.Sprintf("%s-%d", typ, jti),
		"user_id":      acc.ID,
		"nama_lengkap": acc.FullName,
		"role":         acc.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return token
}

func (api *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls[r.Method+" "+r.URL.Path]++
		status := api.fail[r.URL.Path]
		api.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (api *FakeAPI) authenticated(next func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		api.mu.Lock()
		id, ok := api.access[token]
		var acc *Account
		for _, a := range api.accounts {
			if a.ID == id {
				acc = a
			}
		}
		api.mu.Unlock()
		if !ok || acc == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": MsgTokenInvalid, "code": "token_not_valid"})
			return
		}
		next(w, r, acc)
	}
}

func (api *FakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"This field is required."}})
		return
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	acc, ok := api.accounts[strings.ToLower(creds.Email)]
	if !ok || acc.Password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": MsgBadCredentials})
		return
	}
	access, refresh := api.issue(acc)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access":  access,
		"refresh": refresh,
		"user":    userJSON(acc),
	})
}

func (api *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	api.mu.Lock()
	defer api.mu.Unlock()
	id, ok := api.refresh[body.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	for _, acc := range api.accounts {
		if acc.ID == id {
			api.seq++
			access := api.sign(acc, "access", api.seq, time.Hour)
			api.access[access] = acc.ID
			writeJSON(w, http.StatusOK, map[string]string{"access": access})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found"})
}

func (api *FakeAPI) handleMe(w http.ResponseWriter, _ *http.Request, acc *Account) {
	writeJSON(w, http.StatusOK, userJSON(acc))
}

func (api *FakeAPI) handleProfile(w http.ResponseWriter, _ *http.Request, acc *Account) {
	api.mu.Lock()
	defer api.mu.Unlock()
	writeJSON(w, http.StatusOK, api.profileJSON(acc))
}

// profileJSON must be called with api.mu held.
func (api *FakeAPI) profileJSON(acc *Account) map[string]interface{} {
	var end interface{}
	if acc.EndDate != "" {
		end = acc.EndDate
	}
	return map[string]interface{}{
		"id":              acc.ProfileID,
		"user":            acc.ID,
		"nama_lengkap":    acc.FullName,
		"email":           acc.Email,
		"tipe_peserta":    acc.Type,
		"status":          acc.Status,
		"nama_institusi":  "Universitas Uji",
		"penempatan":      "Budidaya",
		"tanggal_mulai":   acc.StartDate,
		"tanggal_selesai": end,
		"profil_lengkap":  acc.ProfilLengkap,
		"dokumen_lengkap": acc.DokumenLengkap,
		"dokumen":         append([]WireDocument{}, api.documents[acc.ID]...),
	}
}

func (api *FakeAPI) handleAttendance(w http.ResponseWriter, r *http.Request, acc *Account) {
	api.mu.Lock()
	defer api.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		recs := append([]WireRecord{}, api.records[acc.ID]...)
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Tanggal > recs[j].Tanggal })
		writeJSON(w, http.StatusOK, recs)

	case http.MethodPost:
		now := api.Now()
		today, clock := now.Format("2006-01-02"), now.Format("15:04:05")
		recs := api.records[acc.ID]
		idx := -1
		for i, rec := range recs {
			if rec.Tanggal == today {
				idx = i
			}
		}
		if idx < 0 {
			api.seq++
			recs = append(recs, WireRecord{ID: api.seq, Tanggal: today, Status: "alpha"})
			idx = len(recs) - 1
		}
		rec := &recs[idx]

		var msg string
		status := http.StatusOK
		switch {
		case rec.JamMasuk == nil:
			rec.Status = "hadir"
			rec.JamMasuk = &clock
			msg = MsgCheckedInPrefix + now.Format("15:04") + "."
			status = http.StatusCreated
		case rec.JamKeluar == nil:
			rec.JamKeluar = &clock
			msg = MsgCheckedOutPrefix + now.Format("15:04") + "."
		default:
			api.records[acc.ID] = recs
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": MsgDayComplete})
			return
		}
		api.records[acc.ID] = recs
		writeJSON(w, status, map[string]interface{}{"detail": msg, "data": *rec})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (api *FakeAPI) handleLeave(w http.ResponseWriter, r *http.Request, acc *Account) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Multipart form parse error."})
		return
	}
	form := LeaveForm{
		Tanggal:         r.FormValue("tanggal"),
		StatusKehadiran: r.FormValue("status_kehadiran"),
		Keterangan:      r.FormValue("keterangan"),
	}
	if f, hdr, err := r.FormFile("surat_dokter"); err == nil {
		data, _ := ioutil.ReadAll(f)
		_ = f.Close()
		form.Filename, form.FileSize = hdr.Filename, len(data)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, rec := range api.records[acc.ID] {
		if form.Tanggal != "" && rec.Tanggal == form.Tanggal {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": MsgRecordExists})
			return
		}
	}

	errs := make(map[string][]string)
	if form.Tanggal == "" {
		errs["tanggal"] = []string{"This field is required."}
	}
	if form.StatusKehadiran != "IZIN" && form.StatusKehadiran != "SAKIT" {
		errs["status_kehadiran"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", form.StatusKehadiran)}
	}
	if strings.TrimSpace(form.Keterangan) == "" {
		errs["keterangan"] = []string{"This field may not be blank."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	api.seq++
	note := form.Keterangan
	api.records[acc.ID] = append(api.records[acc.ID], WireRecord{
		ID:         api.seq,
		Tanggal:    form.Tanggal,
		Status:     strings.ToLower(form.StatusKehadiran),
		Keterangan: &note,
	})
	api.leaves = append(api.leaves, form)
	writeJSON(w, http.StatusCreated, map[string]string{"detail": MsgLeaveSent})
}

func userJSON(acc *Account) map[string]interface{} {
	return map[string]interface{}{
		"id":           acc.ID,
		"email":        acc.Email,
		"nama_lengkap": acc.FullName,
		"role":         acc.Role,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StrPtr is a shortcut for optional wire fields.
func StrPtr(s string) *string { return &s }
