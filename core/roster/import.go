package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	dateFormatRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateJunkRegex   = regexp.MustCompile(`[^\d\-/]`)
)

// CleanDate strips non-ASCII and non-numeric/separator characters from a raw
// date cell; imported sheets routinely carry RTL marks and stray spaces.
func CleanDate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return dateJunkRegex.ReplaceAllString(b.String(), "")
}

// ValidDate reports whether a cleaned date cell matches YYYY-MM-DD.
func ValidDate(s string) bool {
	if !dateFormatRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

type (
	// RowError is one rejected input row. Rows are 1-indexed, not counting
	// the header line.
	RowError struct {
		Row     int    `json:"row"`
		Message string `json:"message"`
	}

	// ImportResult is the partial-success manifest of a bulk import: rows
	// that failed are enumerated, rows that succeeded stay created —
	// a later row's failure never rolls an earlier row back.
	ImportResult struct {
		Created  int        `json:"created"`
		Teachers []Teacher  `json:"teachers,omitempty"`
		Students []Student  `json:"students,omitempty"`
		Errors   []RowError `json:"errors,omitempty"`
	}
)

// PartialFailure reports whether some rows failed.
func (r ImportResult) PartialFailure() bool { return len(r.Errors) > 0 }

func (r *ImportResult) fail(row int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

// csvRecords parses delimited content into header-keyed rows. The first line
// is the header and is skipped; short rows are handled per-row by the caller
// via the returned column index. A malformed line is recorded in rowErrs and
// left as a nil placeholder so later rows keep their numbers; csv.Reader
// resumes at the next line after a parse error.
func csvRecords(content string) (cols map[string]int, rows [][]string, rowErrs []RowError, err error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1 // tolerate ragged rows; rejected per-row, not per-batch
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil, errors.New("empty file")
		}
		return nil, nil, nil, errors.Wrap(err, "reading header")
	}
	cols = make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name)] = i
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: len(rows) + 1, Message: fmt.Sprintf("malformed row: %v", err)})
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, rec)
	}
	return cols, rows, rowErrs, nil
}

func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return core.CleanString(row[i])
}

// ImportStudents runs the bulk student pipeline: per row — validate, resolve
// the class by normalized name, create the student, provision the provider
// account (compensating delete on failure) and seed zeroed marks for the
// class's subjects across the three trimesters. Rows are processed strictly
// in input order; each failure is recorded against its row and the batch
// continues.
func (svc *Service) ImportStudents(ctx context.Context, db core.DB, tenant, content, academicYear string) (ImportResult, error) {
	var res ImportResult

	academicYear = core.CleanString(academicYear)
	if content == "" || academicYear == "" {
		return res, core.NewValidationError(errors.New("file content and academic year are required"))
	}

	cols, rows, rowErrs, err := csvRecords(content)
	if err != nil {
		return res, core.NewValidationError(err)
	}
	res.Errors = append(res.Errors, rowErrs...)

	// resolve classes once per batch; later rows observe the same snapshot
	classMap, err := svc.classMap(ctx, db)
	if err != nil {
		return res, errors.Wrap(err, "caching classes")
	}

	for i, row := range rows {
		rowNo := i + 1
		if row == nil { // malformed, already recorded
			continue
		}

		name := cell(cols, row, "name")
		className := cell(cols, row, "className")
		dob := CleanDate(cell(cols, row, "dob"))

		if name == "" || className == "" {
			res.fail(rowNo, "missing required fields (name, className)")
			continue
		}
		if dob == "" || !ValidDate(dob) {
			res.fail(rowNo, "invalid date format for dob: %q", cell(cols, row, "dob"))
			continue
		}
		classID, ok := classMap[core.CleanString(className, true /* lower */)]
		if !ok {
			res.fail(rowNo, "class not found: %q", className)
			continue
		}

		now := time.Now().UTC()
		username := core.CleanString(cell(cols, row, "username"), true /* lower */)
		expenses := cell(cols, row, "expenses")
		if expenses == "" {
			expenses = "paid"
		}
		s := Student{
			ID:          uuid.NewString(),
			Name:        name,
			ArabicName:  null.NewString(cell(cols, row, "arabicName"), cell(cols, row, "arabicName") != ""),
			ClassID:     classID,
			DateOfBirth: parseDate(dob),
			Nationality: null.NewString(cell(cols, row, "nationality"), cell(cols, row, "nationality") != ""),
			IqamaNo:     null.NewString(cell(cols, row, "iqamaNo"), cell(cols, row, "iqamaNo") != ""),
			PassportNo:  null.NewString(cell(cols, row, "passportNo"), cell(cols, row, "passportNo") != ""),
			Expenses:    expenses,
			Username:    null.NewString(username, username != ""),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s, err := svc.repo.CreateStudent(ctx, db, s)
		if err != nil {
			res.fail(rowNo, "failed to create student %s: %v", name, err)
			continue
		}

		if err = svc.accounts.CreateAccount(ctx, core.Account{
			ExternalID: s.ID,
			Name:       s.Name,
			Username:   username,
			Email:      username,
			Password:   cell(cols, row, "password"),
			Role:       "STUDENT",
			School:     tenant,
		}); err != nil {
			if delErr := svc.repo.DeleteStudent(ctx, db, s.ID); delErr != nil {
				svc.logger.Error(fmt.Sprintf("compensating student delete failed: %v", delErr), delErr)
			}
			res.fail(rowNo, "failed to create provider account for student %s", name)
			continue
		}

		res.Students = append(res.Students, s)
		res.Created++

		created, err := svc.marks.CreateForStudent(ctx, db, s.ID, classID, academicYear)
		if err != nil {
			res.fail(rowNo, "failed to create marks for student %s: %v", name, err)
			continue
		}
		if created == 0 {
			res.fail(rowNo, "no subjects assigned to class %q", className)
		}
	}
	return res, nil
}

// ImportTeachers runs the bulk teacher pipeline: per row — validate, create
// the teacher, upsert its subject list by name, provision the provider
// account (compensating delete on failure). Partial failures are reported
// per row.
func (svc *Service) ImportTeachers(ctx context.Context, db core.DB, tenant, content string) (ImportResult, error) {
	var res ImportResult

	if content == "" {
		return res, core.NewValidationError(errors.New("file content is required"))
	}
	cols, rows, rowErrs, err := csvRecords(content)
	if err != nil {
		return res, core.NewValidationError(err)
	}
	res.Errors = append(res.Errors, rowErrs...)

	for i, row := range rows {
		rowNo := i + 1
		if row == nil { // malformed, already recorded
			continue
		}

		name := cell(cols, row, "name")
		email := core.CleanString(cell(cols, row, "email"), true /* lower */)
		year := cell(cols, row, "academicYear")
		if name == "" || email == "" || year == "" {
			res.fail(rowNo, "missing required fields (name, email, academicYear)")
			continue
		}
		role := cell(cols, row, "role")
		if role == "" {
			role = RoleTeacher
		}

		now := time.Now().UTC()
		t := Teacher{
			ID:           uuid.NewString(),
			Name:         name,
			ArabicName:   null.NewString(cell(cols, row, "arabicName"), cell(cols, row, "arabicName") != ""),
			Email:        email,
			Username:     core.CleanString(cell(cols, row, "username"), true /* lower */),
			Role:         role,
			AcademicYear: year,
			Signature:    null.NewString(cell(cols, row, "signature"), cell(cols, row, "signature") != ""),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		t, err := svc.repo.CreateTeacher(ctx, db, t)
		if err != nil {
			res.fail(rowNo, "failed to create teacher %s: %v", email, err)
			continue
		}

		var linkErr error
		for _, subjName := range splitList(cell(cols, row, "subjects")) {
			subj, err := svc.repo.UpsertSubjectByName(ctx, db, Subject{
				ID:         uuid.NewString(),
				Name:       subjName,
				ArabicName: null.StringFrom(subjName),
			})
			if err == nil {
				err = svc.repo.AddTeacherSubject(ctx, db, t.ID, subj.ID)
			}
			if err != nil {
				linkErr = errors.Wrapf(err, "subject %q", subjName)
				break
			}
		}
		if linkErr != nil {
			// the teacher row must not outlive its failed manifest entry;
			// upserted subjects stay, they are shared and idempotent
			if delErr := svc.repo.DeleteTeacher(ctx, db, t.ID); delErr != nil {
				svc.logger.Error(fmt.Sprintf("compensating teacher delete failed: %v", delErr), delErr)
			}
			res.fail(rowNo, "failed to link subjects for teacher %s: %v", email, linkErr)
			continue
		}

		if err = svc.accounts.CreateAccount(ctx, core.Account{
			ExternalID: t.ID,
			Name:       t.Name,
			Username:   t.Username,
			Email:      t.Email,
			Password:   cell(cols, row, "password"),
			Role:       t.Role,
			School:     tenant,
		}); err != nil {
			if delErr := svc.repo.DeleteTeacher(ctx, db, t.ID); delErr != nil {
				svc.logger.Error(fmt.Sprintf("compensating teacher delete failed: %v", delErr), delErr)
			}
			res.fail(rowNo, "failed to create provider account for teacher %s", email)
			continue
		}

		res.Teachers = append(res.Teachers, t)
		res.Created++
	}
	return res, nil
}

func (svc *Service) classMap(ctx context.Context, db core.DB) (map[string]string, error) {
	classes, err := svc.repo.QueryClasses(ctx, db)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(classes))
	for _, c := range classes {
		m[core.CleanString(c.Name, true /* lower */)] = c.ID
	}
	return m, nil
}

// splitList splits a comma-separated cell ("Math, Science") into clean items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = core.CleanString(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
