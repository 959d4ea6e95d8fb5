package echoapi

import (
	"github.com/go-playground/validator/v10"
)

// ImportRequest carries a bulk-import sheet. Content is the raw CSV text
// including the header line; AcademicYear only applies to student imports.
type ImportRequest struct {
	Content      string `json:"content"`
	AcademicYear string `json:"academic_year"`
}

// GenerateMarksRequest asks for zeroed mark rows for one subject of a class.
type GenerateMarksRequest struct {
	SubjectID    string `json:"subject_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
}

func (r GenerateMarksRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
