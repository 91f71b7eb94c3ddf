package testutil

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MsgDocumentFieldsRequired = "Kedua field 'jenis_dokumen' dan 'file' wajib diisi."
	MsgReportSent             = "Laporan berhasil diunggah."
	MsgPaymentFileRequired    = "File bukti pembayaran wajib diunggah."
	MsgNotFound               = "Not found."

	MsgCertificateIssued      = "Sertifikat Anda telah berhasil diterbitkan."
	MsgCertificatePending     = "Selamat, Anda telah memenuhi semua persyaratan! Sertifikat Anda sedang menunggu untuk diterbitkan oleh admin."
	MsgCertificateNotEligible = "Anda belum memenuhi semua syarat untuk mendapatkan sertifikat."

	PaymentPending  = "Menunggu Verifikasi"
	PaymentVerified = "Telah Diverifikasi"
	PaymentRejected = "Ditolak"
)

type (
	WireDocument struct {
		ID                int     `json:"id"`
		JenisDokumen      string  `json:"jenis_dokumen"`
		File              string  `json:"file"`
		DiunggahPada      string  `json:"diunggah_pada"`
		StatusVerifikasi  string  `json:"status_verifikasi"`
		CatatanVerifikasi *string `json:"catatan_verifikasi"`
	}

	WireReport struct {
		ID            int     `json:"id"`
		Judul         string  `json:"judul"`
		Deskripsi     string  `json:"deskripsi"`
		TanggalSubmit string  `json:"tanggalSubmit"`
		Status        string  `json:"status"`
		FeedbackAdmin *string `json:"feedback_admin"`
		FileURL       string  `json:"fileUrl"`
		Filename      string  `json:"filename"`

		submittedAt string
	}

	WirePayment struct {
		ID               int     `json:"id"`
		File             string  `json:"file"`
		DiunggahPada     string  `json:"diunggah_pada"`
		StatusVerifikasi string  `json:"status_verifikasi"`
		CatatanAdmin     *string `json:"catatan_admin"`
	}

	WireCertificate struct {
		ID                int    `json:"id"`
		NomorSertifikat   string `json:"nomor_sertifikat"`
		FileSertifikat    string `json:"file_sertifikat"`
		FileURL           string `json:"file_url"`
		TanggalTerbit     string `json:"tanggal_terbit"`
		TemplateDigunakan string `json:"template_digunakan"`
	}

	WireAnnouncement struct {
		ID             int     `json:"id"`
		Judul          string  `json:"judul"`
		Konten         string  `json:"konten"`
		Penulis        string  `json:"penulis"`
		Kategori       string  `json:"kategori"`
		Target         string  `json:"target"`
		Prioritas      string  `json:"prioritas"`
		Status         string  `json:"status"`
		TanggalBuat    string  `json:"tanggalBuat"`
		TanggalPublish *string `json:"tanggalPublish"`
	}
)

// AddAnnouncement publishes an announcement for everyone unless told otherwise.
func (api *FakeAPI) AddAnnouncement(ann WireAnnouncement) WireAnnouncement {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.seq++
	if ann.ID == 0 {
		ann.ID = api.seq
	}
	if ann.Status == "" {
		ann.Status = "published"
	}
	if ann.Target == "" {
		ann.Target = "Semua Peserta"
	}
	if ann.Prioritas == "" {
		ann.Prioritas = "sedang"
	}
	if ann.Kategori == "" {
		ann.Kategori = "Umum"
	}
	if ann.TanggalBuat == "" {
		ann.TanggalBuat = api.Now().Format("2006-01-02")
	}
	if ann.Status == "published" && ann.TanggalPublish == nil {
		ann.TanggalPublish = StrPtr(ann.TanggalBuat)
	}
	api.announcements = append(api.announcements, ann)
	return ann
}

func (api *FakeAPI) Documents(accountID int) []WireDocument {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]WireDocument(nil), api.documents[accountID]...)
}

func (api *FakeAPI) Reports(accountID int) []WireReport {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]WireReport(nil), api.reports[accountID]...)
}

// ReviewReport sets the review status ("direview", "diterima", "ditolak") of a report.
func (api *FakeAPI) ReviewReport(accountID, reportID int, status, feedback string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	for i, r := range api.reports[accountID] {
		if r.ID == reportID {
			api.reports[accountID][i].Status = status
			api.reports[accountID][i].FeedbackAdmin = &feedback
		}
	}
}

func (api *FakeAPI) Payment(accountID int) *WirePayment {
	api.mu.Lock()
	defer api.mu.Unlock()
	if p := api.payments[accountID]; p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// VerifyPayment sets the verification status of the account's payment proof.
func (api *FakeAPI) VerifyPayment(accountID int, status, note string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if p := api.payments[accountID]; p != nil {
		p.StatusVerifikasi = status
		p.CatatanAdmin = &note
	}
}

func (api *FakeAPI) IssueCertificate(accountID int, cert WireCertificate) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.seq++
	if cert.ID == 0 {
		cert.ID = api.seq
	}
	if cert.TanggalTerbit == "" {
		cert.TanggalTerbit = api.Now().Format("2006-01-02")
	}
	api.certificates[accountID] = &cert
}

// SetStatus moves the participant through the program lifecycle (AKTIF, SELESAI, LULUS).
func (api *FakeAPI) SetStatus(accountID int, status string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if acc := api.account(accountID); acc != nil {
		acc.Status = status
	}
}

// account must be called with api.mu held.
func (api *FakeAPI) account(id int) *Account {
	for _, acc := range api.accounts {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}

func (api *FakeAPI) timestamp() string {
	return api.Now().Format(time.RFC3339)
}

func (api *FakeAPI) handleDocumentUpload(w http.ResponseWriter, r *http.Request, acc *Account) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	kind, filename, ok := formUpload(r, "jenis_dokumen")
	if !ok || kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": MsgDocumentFieldsRequired})
		return
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	docs := api.documents[acc.ID]
	doc := WireDocument{JenisDokumen: kind, StatusVerifikasi: "Telah Diverifikasi"}
	idx := -1
	for i, d := range docs {
		if d.JenisDokumen == kind {
			idx, doc = i, d
		}
	}
	doc.File = "/media/dokumen_peserta/" + filename
	doc.DiunggahPada = api.timestamp()
	if idx < 0 {
		api.seq++
		doc.ID = api.seq
		docs = append(docs, doc)
	} else {
		docs[idx] = doc
	}
	api.documents[acc.ID] = docs

	uploaded := make(map[string]bool, len(docs))
	for _, d := range docs {
		uploaded[d.JenisDokumen] = true
	}
	complete := true
	for _, kind := range []string{"ktp", "ktm", "kk", "photo", "proposal", "nilai", "pernyataan"} {
		complete = complete && uploaded[kind]
	}
	// seeded accounts may be complete without any document on file
	acc.DokumenLengkap = acc.DokumenLengkap || complete
	writeJSON(w, http.StatusOK, api.profileJSON(acc))
}

func (api *FakeAPI) handleReports(w http.ResponseWriter, r *http.Request, acc *Account) {
	switch r.Method {
	case http.MethodGet:
		api.mu.Lock()
		defer api.mu.Unlock()
		reports := append([]WireReport{}, api.reports[acc.ID]...)
		sort.SliceStable(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })
		writeJSON(w, http.StatusOK, reports)

	case http.MethodPost:
		_, filename, hasFile := formUpload(r, "")
		report := WireReport{
			Judul:     strings.TrimSpace(r.FormValue("judul")),
			Deskripsi: strings.TrimSpace(r.FormValue("deskripsi")),
			Status:    "baru",
			Filename:  filename,
		}
		errs := make(map[string][]string)
		if report.Judul == "" {
			errs["judul"] = []string{"Judul laporan wajib diisi."}
		}
		if report.Deskripsi == "" {
			errs["deskripsi"] = []string{"Deskripsi laporan wajib diisi."}
		}
		if !hasFile {
			errs["file"] = []string{"File laporan wajib diunggah."}
		}
		if len(errs) > 0 {
			writeJSON(w, http.StatusBadRequest, errs)
			return
		}

		api.mu.Lock()
		defer api.mu.Unlock()
		api.seq++
		report.ID = api.seq
		report.TanggalSubmit = api.Now().Format("2006-01-02")
		report.FileURL = "/media/laporan_peserta/" + filename
		report.submittedAt = api.timestamp()
		api.reports[acc.ID] = append(api.reports[acc.ID], report)
		writeJSON(w, http.StatusCreated, map[string]string{"detail": MsgReportSent})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (api *FakeAPI) handlePayment(w http.ResponseWriter, r *http.Request, acc *Account) {
	switch r.Method {
	case http.MethodGet:
		api.mu.Lock()
		defer api.mu.Unlock()
		if p := api.payments[acc.ID]; p != nil {
			writeJSON(w, http.StatusOK, p)
			return
		}
		writeJSON(w, http.StatusOK, nil)

	case http.MethodPost:
		_, filename, ok := formUpload(r, "")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": MsgPaymentFileRequired})
			return
		}

		api.mu.Lock()
		defer api.mu.Unlock()
		status := http.StatusOK
		p := api.payments[acc.ID]
		if p == nil {
			api.seq++
			p = &WirePayment{ID: api.seq}
			api.payments[acc.ID] = p
			status = http.StatusCreated
		}
		p.File = "/media/bukti_pembayaran/" + filename
		p.DiunggahPada = api.timestamp()
		p.StatusVerifikasi = PaymentPending
		p.CatatanAdmin = nil
		writeJSON(w, status, p)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (api *FakeAPI) handleCertificate(w http.ResponseWriter, _ *http.Request, acc *Account) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if cert := api.certificates[acc.ID]; cert != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "DITERBITKAN",
			"message": MsgCertificateIssued,
			"data":    cert,
		})
		return
	}

	finished := acc.Status == "SELESAI"
	requirements := []map[string]interface{}{
		{"deskripsi": "Menyelesaikan periode bimbingan", "terpenuhi": finished},
	}
	var second bool
	if acc.Type == "PELAJAR" {
		if reports := api.reports[acc.ID]; len(reports) > 0 {
			second = reports[len(reports)-1].Status == "diterima"
		}
		requirements = append(requirements, map[string]interface{}{"deskripsi": "Laporan akhir telah direview dan diterima", "terpenuhi": second})
	} else {
		if p := api.payments[acc.ID]; p != nil {
			second = p.StatusVerifikasi == PaymentVerified
		}
		requirements = append(requirements, map[string]interface{}{"deskripsi": "Bukti pembayaran telah diverifikasi", "terpenuhi": second})
	}

	if finished && second {
		writeJSON(w, http.StatusOK, map[string]string{"status": "MENUNGGU_PENERBITAN", "message": MsgCertificatePending})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "BELUM_MEMENUHI_SYARAT",
		"message": MsgCertificateNotEligible,
		"data":    map[string]interface{}{"persyaratan": requirements},
	})
}

func (api *FakeAPI) handleDashboard(w http.ResponseWriter, _ *http.Request, acc *Account) {
	api.mu.Lock()
	defer api.mu.Unlock()

	var present int
	for _, rec := range api.records[acc.ID] {
		if rec.Status == "hadir" {
			present++
		}
	}

	reportStatus := map[string]interface{}{"sudah_diunggah": false, "tanggal_unggah": nil, "file_url": nil}
	if reports := api.reports[acc.ID]; len(reports) > 0 {
		last := reports[len(reports)-1]
		reportStatus = map[string]interface{}{"sudah_diunggah": true, "tanggal_unggah": last.submittedAt, "file_url": api.URL + last.FileURL}
	}
	paymentStatus := map[string]interface{}{"sudah_diunggah": false, "tanggal_unggah": nil, "status_verifikasi": nil, "file_url": nil}
	if p := api.payments[acc.ID]; p != nil {
		paymentStatus = map[string]interface{}{"sudah_diunggah": true, "tanggal_unggah": p.DiunggahPada, "status_verifikasi": p.StatusVerifikasi, "file_url": api.URL + p.File}
	}

	var mentor interface{}
	if acc.Mentor != "" {
		mentor = map[string]interface{}{
			"nama_lengkap": acc.Mentor,
			"jabatan":      "Pembimbing Institusi",
			"email":        "-",
			"telepon":      "-",
			"foto_url":     nil,
		}
	}

	latest := make([]WireAnnouncement, 0, 3)
	for i := len(api.announcements) - 1; i >= 0 && len(latest) < 3; i-- {
		ann := api.announcements[i]
		if ann.Status == "published" && (ann.Target == "Semua Peserta" || ann.Target == acc.Type) {
			latest = append(latest, ann)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tipe_peserta":        acc.Type,
		"total_hadir":         present,
		"progres_program":     api.progress(acc),
		"sertifikat_tersedia": api.certificates[acc.ID] != nil,
		"laporan_status":      reportStatus,
		"pembayaran_status":   paymentStatus,
		"pembimbing":          mentor,
		"pengumuman_terbaru":  latest,
	})
}

func (api *FakeAPI) progress(acc *Account) map[string]int {
	progress := map[string]int{"sisa_hari": 0, "total_hari": 0, "persentase_selesai": 100}
	start, err1 := time.Parse("2006-01-02", acc.StartDate)
	end, err2 := time.Parse("2006-01-02", acc.EndDate)
	if err1 != nil || err2 != nil {
		return progress
	}
	now := api.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := func(from, to time.Time) int { return int(to.Sub(from).Hours() / 24) }

	if today.Before(end) {
		progress["sisa_hari"] = days(today, end)
	}
	if total := days(start, end); total > 0 {
		progress["total_hari"] = total
		pct := int(float64(days(start, today))/float64(total)*100 + 0.5)
		if pct > 100 {
			pct = 100
		}
		progress["persentase_selesai"] = pct
	}
	return progress
}

func (api *FakeAPI) handleAnnouncement(w http.ResponseWriter, r *http.Request, _ *Account) {
	id, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/pengumuman/"), "/"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": MsgNotFound})
		return
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, ann := range api.announcements {
		if ann.ID == id && ann.Status == "published" {
			writeJSON(w, http.StatusOK, ann)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": MsgNotFound})
}

// formUpload parses a multipart request and reads its "file" part. field, when given,
// is a text field returned along.
func formUpload(r *http.Request, field string) (value, filename string, ok bool) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		return "", "", false
	}
	if field != "" {
		value = strings.TrimSpace(r.FormValue(field))
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return value, "", false
	}
	defer f.Close()
	if data, err := ioutil.ReadAll(f); err != nil || len(data) == 0 {
		return value, "", false
	}
	return value, hdr.Filename, true
}

// AnnouncementPath is the path of an announcement, for Calls.
func AnnouncementPath(id int) string {
	return fmt.Sprintf("/api/pengumuman/%d/", id)
}
