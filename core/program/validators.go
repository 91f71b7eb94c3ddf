package program

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
)

var (
	uploadSizeTag  = "uploadsize"
	uploadSizeText = fmt.Sprintf("file must not exceed %d MB", MaxUploadSize>>20)

	uploadEmptyTag  = "uploadempty"
	uploadEmptyText = "file is empty"
)

// InitValidators registers the program validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(uploadStructValidation, DocumentUpload{}, ReportRequest{}, PaymentUpload{})
	core.RegisterCustomTranslation(validate, translator, uploadSizeTag, uploadSizeText)
	core.RegisterCustomTranslation(validate, translator, uploadEmptyTag, uploadEmptyText)
}

// uploadStructValidation checks the size of the uploaded file; its presence is a field rule.
func uploadStructValidation(sl validator.StructLevel) {
	var file *attendance.Attachment
	switch req := sl.Current().Interface().(type) {
	case DocumentUpload:
		file = req.File
	case ReportRequest:
		file = req.File
	case PaymentUpload:
		file = req.File
	}
	if file == nil {
		return
	}
	switch size := len(file.Content); {
	case size == 0:
		sl.ReportError(file, "file", "File", uploadEmptyTag, "")
	case size > MaxUploadSize:
		sl.ReportError(file, "file", "File", uploadSizeTag, "")
	}
}
