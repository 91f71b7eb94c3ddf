package attendance

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/bbpbat/portal/core"
)

var (
	evidenceSizeTag  = "evidencesize"
	evidenceSizeText = fmt.Sprintf("evidence file must not exceed %d MB", MaxEvidenceSize>>20)

	evidenceEmptyTag  = "evidenceempty"
	evidenceEmptyText = "evidence file is empty"
)

// InitValidators registers the attendance validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(leaveStructValidation, LeaveRequest{})
	core.RegisterCustomTranslation(validate, translator, evidenceSizeTag, evidenceSizeText)
	core.RegisterCustomTranslation(validate, translator, evidenceEmptyTag, evidenceEmptyText)
}

// leaveStructValidation checks the optional evidence file.
func leaveStructValidation(sl validator.StructLevel) {
	lr, ok := sl.Current().Interface().(LeaveRequest)
	if !ok || lr.Evidence == nil {
		return
	}
	switch size := len(lr.Evidence.Content); {
	case size == 0:
		sl.ReportError(lr.Evidence, "evidence", "Evidence", evidenceEmptyTag, "")
	case size > MaxEvidenceSize:
		sl.ReportError(lr.Evidence, "evidence", "Evidence", evidenceSizeTag, "")
	}
}
