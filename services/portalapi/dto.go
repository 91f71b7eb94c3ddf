package portalapi

import (
	"path"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/program"
	"github.com/bbpbat/portal/core/session"
)

// Wire names and values of the remote API. Nothing outside this file knows them.

var (
	statusFromWire = map[string]string{
		"hadir": attendance.StatusPresent,
		"izin":  attendance.StatusExcused,
		"sakit": attendance.StatusSick,
		"alpha": attendance.StatusAbsent,
	}
	leaveToWire = map[string]string{
		attendance.LeaveExcused: "IZIN",
		attendance.LeaveSick:    "SAKIT",
	}
	fieldFromWire = map[string]string{
		"tanggal":          "date",
		"status_kehadiran": "type",
		"keterangan":       "note",
		"surat_dokter":     "evidence",
		"nama_lengkap":     "full_name",
		"jenis_dokumen":    "kind",
		"judul":            "title",
		"deskripsi":        "description",
	}
	// lowercased; documents and payments do not spell their states the same way
	verificationFromWire = map[string]string{
		"menunggu":            participant.VerificationPending,
		"menunggu verifikasi": participant.VerificationPending,
		"diterima":            participant.VerificationVerified,
		"telah diverifikasi":  participant.VerificationVerified,
		"ditolak":             participant.VerificationRejected,
	}
	reportStatusFromWire = map[string]string{
		"baru":     program.ReportNew,
		"direview": program.ReportInReview,
		"diterima": program.ReportAccepted,
		"ditolak":  program.ReportRejected,
	}
	certificateFromWire = map[string]string{
		"DITERBITKAN":           program.CertificateIssued,
		"MENUNGGU_PENERBITAN":   program.CertificatePending,
		"BELUM_MEMENUHI_SYARAT": program.CertificateNotEligible,
	}
	priorityFromWire = map[string]string{
		"tinggi": "high",
		"sedang": "medium",
		"rendah": "low",
	}
)

// fromWire looks value up in m, lowercased when lower is set; unknown values pass through.
func fromWire(m map[string]string, value string, lower bool) string {
	key := value
	if lower {
		key = strings.ToLower(strings.TrimSpace(value))
	}
	if v, ok := m[key]; ok {
		return v
	}
	return value
}

func domainField(wire string) string {
	if f, ok := fieldFromWire[wire]; ok {
		return f
	}
	return wire
}

type (
	recordDTO struct {
		ID         int         `json:"id"`
		Tanggal    string      `json:"tanggal"`
		Status     string      `json:"status"`
		JamMasuk   null.String `json:"jam_masuk"`
		JamKeluar  null.String `json:"jam_keluar"`
		Keterangan null.String `json:"keterangan"`
	}

	userDTO struct {
		ID          int    `json:"id"`
		Email       string `json:"email"`
		NamaLengkap string `json:"nama_lengkap"`
		Role        string `json:"role"`
	}

	profileDTO struct {
		ID             int           `json:"id"`
		NamaLengkap    string        `json:"nama_lengkap"`
		Email          string        `json:"email"`
		TipePeserta    string        `json:"tipe_peserta"`
		Status         string        `json:"status"`
		NamaInstitusi  null.String   `json:"nama_institusi"`
		Penempatan     null.String   `json:"penempatan"`
		TanggalMulai   null.String   `json:"tanggal_mulai"`
		TanggalSelesai null.String   `json:"tanggal_selesai"`
		ProfilLengkap  bool          `json:"profil_lengkap"`
		DokumenLengkap bool          `json:"dokumen_lengkap"`
		Dokumen        []documentDTO `json:"dokumen"`
	}

	documentDTO struct {
		ID                int         `json:"id"`
		JenisDokumen      string      `json:"jenis_dokumen"`
		File              null.String `json:"file"`
		DiunggahPada      null.String `json:"diunggah_pada"`
		StatusVerifikasi  string      `json:"status_verifikasi"`
		CatatanVerifikasi null.String `json:"catatan_verifikasi"`
	}

	reportDTO struct {
		ID            int         `json:"id"`
		Judul         string      `json:"judul"`
		Deskripsi     string      `json:"deskripsi"`
		TanggalSubmit null.String `json:"tanggalSubmit"`
		Status        string      `json:"status"`
		FeedbackAdmin null.String `json:"feedback_admin"`
		FileURL       null.String `json:"fileUrl"`
		Filename      null.String `json:"filename"`
	}

	paymentDTO struct {
		ID               int         `json:"id"`
		File             null.String `json:"file"`
		DiunggahPada     null.String `json:"diunggah_pada"`
		StatusVerifikasi string      `json:"status_verifikasi"`
		CatatanAdmin     null.String `json:"catatan_admin"`
	}

	requirementDTO struct {
		Deskripsi string `json:"deskripsi"`
		Terpenuhi bool   `json:"terpenuhi"`
	}

	// certificateDTO.Data holds the certificate once issued, the requirements otherwise.
	certificateDTO struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    *struct {
			NomorSertifikat   string           `json:"nomor_sertifikat"`
			FileSertifikat    null.String      `json:"file_sertifikat"`
			FileURL           null.String      `json:"file_url"`
			TanggalTerbit     null.String      `json:"tanggal_terbit"`
			TemplateDigunakan null.String      `json:"template_digunakan"`
			Persyaratan       []requirementDTO `json:"persyaratan"`
		} `json:"data"`
	}

	announcementDTO struct {
		ID             int         `json:"id"`
		Judul          string      `json:"judul"`
		Konten         string      `json:"konten"`
		Penulis        null.String `json:"penulis"`
		Kategori       string      `json:"kategori"`
		Target         string      `json:"target"`
		Prioritas      string      `json:"prioritas"`
		Status         string      `json:"status"`
		TanggalBuat    null.String `json:"tanggalBuat"`
		TanggalPublish null.String `json:"tanggalPublish"`
	}

	uploadStatusDTO struct {
		SudahDiunggah    bool        `json:"sudah_diunggah"`
		TanggalUnggah    null.String `json:"tanggal_unggah"`
		StatusVerifikasi null.String `json:"status_verifikasi"`
		FileURL          null.String `json:"file_url"`
	}

	dashboardDTO struct {
		TipePeserta    string `json:"tipe_peserta"`
		TotalHadir     int    `json:"total_hadir"`
		ProgresProgram struct {
			SisaHari          int `json:"sisa_hari"`
			TotalHari         int `json:"total_hari"`
			PersentaseSelesai int `json:"persentase_selesai"`
		} `json:"progres_program"`
		SertifikatTersedia bool            `json:"sertifikat_tersedia"`
		LaporanStatus      uploadStatusDTO `json:"laporan_status"`
		PembayaranStatus   uploadStatusDTO `json:"pembayaran_status"`
		Pembimbing         *struct {
			NamaLengkap string      `json:"nama_lengkap"`
			Jabatan     string      `json:"jabatan"`
			Email       string      `json:"email"`
			Telepon     string      `json:"telepon"`
			FotoURL     null.String `json:"foto_url"`
		} `json:"pembimbing"`
		PengumumanTerbaru []announcementDTO `json:"pengumuman_terbaru"`
	}

	loginDTO struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	tokensDTO struct {
		Access  string  `json:"access"`
		Refresh string  `json:"refresh"`
		User    userDTO `json:"user"`
	}

	refreshDTO struct {
		Refresh string `json:"refresh"`
	}

	accessDTO struct {
		Access string `json:"access"`
	}

	detailDTO struct {
		Detail string     `json:"detail"`
		Data   *recordDTO `json:"data,omitempty"`
	}
)

func (d recordDTO) toRecord() attendance.Record {
	status := strings.ToLower(d.Status)
	if s, ok := statusFromWire[status]; ok {
		status = s
	}
	return attendance.Record{
		ID:       d.ID,
		Date:     d.Tanggal,
		Status:   status,
		CheckIn:  d.JamMasuk,
		CheckOut: d.JamKeluar,
		Note:     d.Keterangan.String,
	}
}

func toRecords(dtos []recordDTO) []attendance.Record {
	records := make([]attendance.Record, 0, len(dtos))
	for _, d := range dtos {
		records = append(records, d.toRecord())
	}
	return records
}

func (d userDTO) toUser() participant.User {
	return participant.User{ID: d.ID, Email: d.Email, FullName: d.NamaLengkap, Role: d.Role}
}

func (d profileDTO) toProfile() participant.Profile {
	return participant.Profile{
		ID:                d.ID,
		FullName:          d.NamaLengkap,
		Email:             d.Email,
		Type:              d.TipePeserta,
		Status:            d.Status,
		Institution:       d.NamaInstitusi.String,
		Placement:         d.Penempatan.String,
		StartDate:         parseDate(d.TanggalMulai),
		EndDate:           parseDate(d.TanggalSelesai),
		ProfileComplete:   d.ProfilLengkap,
		DocumentsComplete: d.DokumenLengkap,
		Documents:         toDocuments(d.Dokumen),
	}
}

func toDocuments(dtos []documentDTO) []participant.Document {
	docs := make([]participant.Document, 0, len(dtos))
	for _, d := range dtos {
		docs = append(docs, participant.Document{
			ID:           d.ID,
			Kind:         d.JenisDokumen,
			File:         d.File.String,
			UploadedAt:   parseTimestamp(d.DiunggahPada),
			Verification: fromWire(verificationFromWire, d.StatusVerifikasi, true),
			Note:         d.CatatanVerifikasi.String,
		})
	}
	return docs
}

func (d reportDTO) toReport() program.Report {
	filename := d.Filename.String
	if filename == "" && d.FileURL.String != "" {
		filename = path.Base(d.FileURL.String)
	}
	return program.Report{
		ID:          d.ID,
		Title:       d.Judul,
		Description: d.Deskripsi,
		SubmittedOn: d.TanggalSubmit.String,
		Status:      fromWire(reportStatusFromWire, d.Status, true),
		Feedback:    d.FeedbackAdmin.String,
		FileURL:     d.FileURL.String,
		Filename:    filename,
	}
}

func toReports(dtos []reportDTO) []program.Report {
	reports := make([]program.Report, 0, len(dtos))
	for _, d := range dtos {
		reports = append(reports, d.toReport())
	}
	return reports
}

func (d paymentDTO) toPayment() program.Payment {
	return program.Payment{
		ID:           d.ID,
		File:         d.File.String,
		UploadedAt:   parseTimestamp(d.DiunggahPada),
		Verification: fromWire(verificationFromWire, d.StatusVerifikasi, true),
		AdminNote:    d.CatatanAdmin.String,
	}
}

func (d certificateDTO) toCertificate() program.Certificate {
	cert := program.Certificate{
		Status:  fromWire(certificateFromWire, d.Status, false),
		Message: d.Message,
	}
	if d.Data == nil {
		return cert
	}
	cert.Number = d.Data.NomorSertifikat
	cert.FileURL = d.Data.FileURL.String
	if cert.FileURL == "" {
		cert.FileURL = d.Data.FileSertifikat.String
	}
	cert.IssuedOn = d.Data.TanggalTerbit.String
	cert.Template = d.Data.TemplateDigunakan.String
	for _, r := range d.Data.Persyaratan {
		cert.Requirements = append(cert.Requirements, program.Requirement{Description: r.Deskripsi, Met: r.Terpenuhi})
	}
	return cert
}

func (d announcementDTO) toAnnouncement() program.Announcement {
	return program.Announcement{
		ID:          d.ID,
		Title:       d.Judul,
		Content:     d.Konten,
		Author:      d.Penulis.String,
		Category:    d.Kategori,
		Target:      d.Target,
		Priority:    fromWire(priorityFromWire, d.Prioritas, true),
		Status:      strings.ToLower(d.Status),
		CreatedOn:   d.TanggalBuat.String,
		PublishedOn: d.TanggalPublish.String,
	}
}

func (d uploadStatusDTO) toUploadStatus() program.UploadStatus {
	status := program.UploadStatus{
		Uploaded:   d.SudahDiunggah,
		UploadedAt: parseTimestamp(d.TanggalUnggah),
		FileURL:    d.FileURL.String,
	}
	if d.StatusVerifikasi.Valid {
		status.Verification = fromWire(verificationFromWire, d.StatusVerifikasi.String, true)
	}
	return status
}

func (d dashboardDTO) toDashboard() program.Dashboard {
	dash := program.Dashboard{
		ParticipantType: d.TipePeserta,
		TotalPresent:    d.TotalHadir,
		Progress: program.Progress{
			DaysLeft:    d.ProgresProgram.SisaHari,
			TotalDays:   d.ProgresProgram.TotalHari,
			PercentDone: d.ProgresProgram.PersentaseSelesai,
		},
		CertificateAvailable: d.SertifikatTersedia,
		Report:               d.LaporanStatus.toUploadStatus(),
		Payment:              d.PembayaranStatus.toUploadStatus(),
		Announcements:        make([]program.Announcement, 0, len(d.PengumumanTerbaru)),
	}
	if m := d.Pembimbing; m != nil {
		dash.Mentor = &program.Mentor{FullName: m.NamaLengkap, Position: m.Jabatan, Email: m.Email, Phone: m.Telepon, PhotoURL: m.FotoURL.String}
	}
	for _, a := range d.PengumumanTerbaru {
		dash.Announcements = append(dash.Announcements, a.toAnnouncement())
	}
	return dash
}

func (d tokensDTO) toTokens() session.Tokens {
	return session.Tokens{Access: d.Access, Refresh: d.Refresh}
}

// parseTimestamp reads the API's ISO 8601 timestamps; anything else is treated as missing.
func parseTimestamp(s null.String) null.Time {
	if !s.Valid || s.String == "" {
		return null.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}

func parseDate(s null.String) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(attendance.DateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
