package mark

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type (
	Repository interface {
		GetMark(ctx context.Context, db core.DB, id string) (Mark, error)
		// UpdateMarkValues overwrites all nine score fields and the total of
		// an existing row. No version check: last write wins.
		UpdateMarkValues(ctx context.Context, db core.DB, m Mark) (Mark, error)
		// CreateMarks batch-inserts rows, skipping rows whose
		// (student, subject, year, trimester) tuple already exists.
		// It returns the number of rows actually created.
		CreateMarks(ctx context.Context, db core.DB, marks []Mark) (int, error)
		FilterMarks(ctx context.Context, db core.DB, filter Filter) ([]Mark, error)
		QueryStudentMarks(ctx context.Context, db core.DB, studentID string) ([]Row, error)

		// roster read models
		GetStudentClassGrade(ctx context.Context, db core.DB, studentID string) (string, error)
		QueryClassSubjectIDs(ctx context.Context, db core.DB, classID string) ([]string, error)
		QueryClassStudentIDs(ctx context.Context, db core.DB, classID string) ([]string, error)
		// QueryTeacherAssignments returns one row per class-teacher-subject
		// link for teachers with the TEACHER role.
		QueryTeacherAssignments(ctx context.Context, db core.DB) ([]Assignment, error)

		GetHeaderConfig(ctx context.Context, db core.DB, subjectID, grade string) (HeaderConfig, error)
		UpsertHeaderConfig(ctx context.Context, db core.DB, cfg HeaderConfig) (HeaderConfig, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, db core.DB, id string) (Mark, error) {
	return svc.repo.GetMark(ctx, db, id)
}

func (svc *Service) Filter(ctx context.Context, db core.DB, filter Filter) ([]Mark, error) {
	return svc.repo.FilterMarks(ctx, db, filter)
}

// Update performs a full-row overwrite of a mark's score fields and recomputes
// the total from the active header set of the row's (subject, grade).
func (svc *Service) Update(ctx context.Context, db core.DB, id string, vals Values) (Mark, error) {
	m, err := svc.repo.GetMark(ctx, db, id)
	if err != nil {
		return Mark{}, err
	}
	grade, err := svc.repo.GetStudentClassGrade(ctx, db, m.StudentID)
	if err != nil {
		return Mark{}, errors.Wrap(err, "resolving student grade")
	}
	active, err := svc.ActiveHeadersFor(ctx, db, m.SubjectID, grade)
	if err != nil {
		return Mark{}, err
	}

	for _, h := range PossibleHeaders {
		m.SetValue(h, null.IntFrom(vals.value(h)))
	}
	m.Total = null.IntFrom(Total(m, active))
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMarkValues(ctx, db, m)
}

// ActiveHeadersFor returns the configured header set for (subject, grade),
// falling back to the default set when no config exists.
func (svc *Service) ActiveHeadersFor(ctx context.Context, db core.DB, subjectID, grade string) ([]string, error) {
	cfg, err := svc.repo.GetHeaderConfig(ctx, db, subjectID, grade)
	if err != nil {
		if errors.Cause(err) == ErrConfigNotFound {
			return DefaultHeaders, nil
		}
		return nil, err
	}
	return ActiveHeaders(&cfg), nil
}

func (svc *Service) Config(ctx context.Context, db core.DB, subjectID, grade string) (HeaderConfig, error) {
	return svc.repo.GetHeaderConfig(ctx, db, core.CleanString(subjectID), core.CleanString(grade))
}

// SaveConfig upserts the header config keyed by (subject, grade); reruns with
// identical input are idempotent.
func (svc *Service) SaveConfig(ctx context.Context, db core.DB, nc NewHeaderConfig) (HeaderConfig, error) {
	now := time.Now().UTC()
	cfg := HeaderConfig{
		ID:        uuid.NewString(),
		SubjectID: nc.SubjectID,
		Grade:     nc.Grade,
		Headers:   nc.Headers,
		MaxValues: nc.MaxValues,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.UpsertHeaderConfig(ctx, db, cfg)
}

// CreateForStudent creates zeroed mark rows for every subject assigned to the
// student's class, across all three trimesters. Existing tuples are skipped.
func (svc *Service) CreateForStudent(ctx context.Context, db core.DB, studentID, classID, academicYear string) (int, error) {
	subjectIDs, err := svc.repo.QueryClassSubjectIDs(ctx, db, classID)
	if err != nil {
		return 0, errors.Wrap(err, "querying class subjects")
	}
	if len(subjectIDs) == 0 {
		return 0, nil
	}
	marks := make([]Mark, 0, len(subjectIDs)*len(Trimesters))
	now := time.Now().UTC()
	for _, subjectID := range subjectIDs {
		for _, trimester := range Trimesters {
			m := Zeroed(studentID, subjectID, academicYear, trimester)
			m.ID = uuid.NewString()
			m.CreatedAt = now
			m.UpdatedAt = now
			marks = append(marks, m)
		}
	}
	return svc.repo.CreateMarks(ctx, db, marks)
}

// GenerateForClass creates zeroed mark rows for one subject for every student
// of a class, across all three trimesters. Existing tuples are skipped.
func (svc *Service) GenerateForClass(ctx context.Context, db core.DB, classID, subjectID, academicYear string) (int, error) {
	studentIDs, err := svc.repo.QueryClassStudentIDs(ctx, db, classID)
	if err != nil {
		return 0, errors.Wrap(err, "querying class students")
	}
	marks := make([]Mark, 0, len(studentIDs)*len(Trimesters))
	now := time.Now().UTC()
	for _, studentID := range studentIDs {
		for _, trimester := range Trimesters {
			m := Zeroed(studentID, subjectID, academicYear, trimester)
			m.ID = uuid.NewString()
			m.CreatedAt = now
			m.UpdatedAt = now
			marks = append(marks, m)
		}
	}
	return svc.repo.CreateMarks(ctx, db, marks)
}

// Result is a result view row with its computed letter grade.
type Result struct {
	Row
	Grade string `json:"grade"`
}

// StudentResults returns a student's rows for one trimester, or the
// ceiling-averaged yearly view when period is PeriodYearly.
func (svc *Service) StudentResults(ctx context.Context, db core.DB, studentID, period string) ([]Result, error) {
	rows, err := svc.repo.QueryStudentMarks(ctx, db, studentID)
	if err != nil {
		return nil, err
	}

	if period == PeriodYearly {
		rows = YearlyAverage(rows)
	} else {
		filtered := rows[:0]
		for _, r := range rows {
			if r.Trimester == period {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, Result{Row: r, Grade: Grade(r.Total)})
	}
	return results, nil
}

// TeacherProgress is one teacher's completion summary for a trimester.
type TeacherProgress struct {
	TeacherID         string      `json:"teacher_id"`
	Name              string      `json:"name"`
	ArabicName        null.String `json:"arabic_name"`
	Subjects          []string    `json:"subjects"`
	ClassesAssigned   []string    `json:"classes_assigned"`
	CompletedClasses  []string    `json:"completed_classes"`
	IncompleteClasses []string    `json:"incomplete_classes"`
}

// Progress computes, per teacher, which assigned classes are Complete for the
// trimester: a class is Complete iff every (class, subject) assignment of that
// teacher has at least one mark row and every row is Complete under the
// subject/grade's active header set.
func (svc *Service) Progress(ctx context.Context, db core.DB, trimester string) ([]TeacherProgress, error) {
	assignments, err := svc.repo.QueryTeacherAssignments(ctx, db)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	type teacherAcc struct {
		progress TeacherProgress
		classes  map[string]string // classID -> name
		complete map[string]bool   // classID -> all assignments complete so far
		subjects map[string]bool
	}
	teachers := make(map[string]*teacherAcc)
	teacherOrder := make([]string, 0)

	for _, a := range assignments {
		acc, ok := teachers[a.TeacherID]
		if !ok {
			acc = &teacherAcc{
				progress: TeacherProgress{
					TeacherID:  a.TeacherID,
					Name:       a.TeacherName,
					ArabicName: a.TeacherArabicName,
				},
				classes:  make(map[string]string),
				complete: make(map[string]bool),
				subjects: make(map[string]bool),
			}
			teachers[a.TeacherID] = acc
			teacherOrder = append(teacherOrder, a.TeacherID)
		}
		if !acc.subjects[a.SubjectName] {
			acc.subjects[a.SubjectName] = true
			acc.progress.Subjects = append(acc.progress.Subjects, a.SubjectName)
		}
		if _, seen := acc.classes[a.ClassID]; !seen {
			acc.classes[a.ClassID] = a.ClassName
			acc.complete[a.ClassID] = true
		}

		marks, err := svc.repo.FilterMarks(ctx, db, Filter{
			ClassID:   a.ClassID,
			SubjectID: a.SubjectID,
			Trimester: trimester,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "querying marks for class %s subject %s", a.ClassID, a.SubjectID)
		}
		active, err := svc.ActiveHeadersFor(ctx, db, a.SubjectID, a.ClassGrade)
		if err != nil {
			return nil, err
		}
		if !AllComplete(marks, active) {
			acc.complete[a.ClassID] = false
		}
	}

	out := make([]TeacherProgress, 0, len(teachers))
	for _, id := range teacherOrder {
		acc := teachers[id]
		classIDs := make([]string, 0, len(acc.classes))
		for classID := range acc.classes {
			classIDs = append(classIDs, classID)
		}
		sort.Slice(classIDs, func(i, j int) bool {
			return acc.classes[classIDs[i]] < acc.classes[classIDs[j]]
		})
		for _, classID := range classIDs {
			name := acc.classes[classID]
			acc.progress.ClassesAssigned = append(acc.progress.ClassesAssigned, name)
			if acc.complete[classID] {
				acc.progress.CompletedClasses = append(acc.progress.CompletedClasses, name)
			} else {
				acc.progress.IncompleteClasses = append(acc.progress.IncompleteClasses, name)
			}
		}
		out = append(out, acc.progress)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
