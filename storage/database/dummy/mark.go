package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/roster"
)

type markRepository struct {
	db *DB
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(db *DB) mark.Repository {
	return &markRepository{db: db}
}

func (repo *markRepository) GetMark(_ context.Context, _ core.DB, id string) (mark.Mark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.marks[id]; ok {
		return *m, nil
	}
	return mark.Mark{}, mark.ErrNotFound
}

func (repo *markRepository) UpdateMarkValues(_ context.Context, _ core.DB, m mark.Mark) (mark.Mark, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.marks[m.ID]; !ok {
		return mark.Mark{}, mark.ErrNotFound
	}
	repo.db.marks[m.ID] = &m
	return m, nil
}

func (repo *markRepository) CreateMarks(_ context.Context, _ core.DB, marks []mark.Mark) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	created := 0
	for _, m := range marks {
		if repo.tupleExists(m) {
			continue
		}
		m := m
		repo.db.marks[m.ID] = &m
		created++
	}
	return created, nil
}

// tupleExists checks the (student, subject, year, trimester) natural key.
// Callers must hold the lock.
func (repo *markRepository) tupleExists(m mark.Mark) bool {
	for _, existing := range repo.db.marks {
		if existing.StudentID == m.StudentID &&
			existing.SubjectID == m.SubjectID &&
			existing.AcademicYear == m.AcademicYear &&
			existing.Trimester == m.Trimester {
			return true
		}
	}
	return false
}

func (repo *markRepository) FilterMarks(_ context.Context, _ core.DB, filter mark.Filter) ([]mark.Mark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	marks := make([]mark.Mark, 0)
	for _, m := range repo.db.marks {
		if filter.StudentID != "" && m.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectID != "" && m.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Trimester != "" && m.Trimester != filter.Trimester {
			continue
		}
		if filter.AcademicYear != "" && m.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.ClassID != "" {
			s, ok := repo.db.students[m.StudentID]
			if !ok || s.ClassID != filter.ClassID {
				continue
			}
		}
		marks = append(marks, *m)
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].Trimester != marks[j].Trimester {
			return marks[i].Trimester < marks[j].Trimester
		}
		return marks[i].CreatedAt.Before(marks[j].CreatedAt)
	})
	return marks, nil
}

func (repo *markRepository) QueryStudentMarks(_ context.Context, _ core.DB, studentID string) ([]mark.Row, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]mark.Row, 0)
	for _, m := range repo.db.marks {
		if m.StudentID != studentID {
			continue
		}
		row := mark.Row{Mark: *m}
		if s, ok := repo.db.subjects[m.SubjectID]; ok {
			row.SubjectName = s.Name
			row.SubjectArabicName = s.ArabicName
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubjectName != rows[j].SubjectName {
			return rows[i].SubjectName < rows[j].SubjectName
		}
		return rows[i].Trimester < rows[j].Trimester
	})
	return rows, nil
}

func (repo *markRepository) GetStudentClassGrade(_ context.Context, _ core.DB, studentID string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.students[studentID]
	if !ok {
		return "", mark.ErrStudentNotFound
	}
	c, ok := repo.db.classes[s.ClassID]
	if !ok {
		return "", mark.ErrClassNotFound
	}
	return c.Grade, nil
}

func (repo *markRepository) QueryClassSubjectIDs(_ context.Context, _ core.DB, classID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for key := range repo.db.classSubjects {
		if key[0] == classID {
			ids = append(ids, key[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *markRepository) QueryClassStudentIDs(_ context.Context, _ core.DB, classID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, s := range repo.db.students {
		if s.ClassID == classID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *markRepository) QueryTeacherAssignments(_ context.Context, _ core.DB) ([]mark.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assignments := make([]mark.Assignment, 0)
	for key := range repo.db.classTeachers {
		t, ok := repo.db.teachers[key[1]]
		if !ok || t.Role != roster.RoleTeacher {
			continue
		}
		c, ok := repo.db.classes[key[0]]
		if !ok {
			continue
		}
		s, ok := repo.db.subjects[key[2]]
		if !ok {
			continue
		}
		assignments = append(assignments, mark.Assignment{
			TeacherID:         t.ID,
			TeacherName:       t.Name,
			TeacherArabicName: t.ArabicName,
			ClassID:           c.ID,
			ClassName:         c.Name,
			ClassGrade:        c.Grade,
			SubjectID:         s.ID,
			SubjectName:       s.Name,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if a.TeacherName != b.TeacherName {
			return a.TeacherName < b.TeacherName
		}
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		return a.SubjectName < b.SubjectName
	})
	return assignments, nil
}

func (repo *markRepository) GetHeaderConfig(_ context.Context, _ core.DB, subjectID, grade string) (mark.HeaderConfig, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cfg, ok := repo.db.headerConfigs[subjectID+"/"+grade]; ok {
		return *cfg, nil
	}
	return mark.HeaderConfig{}, mark.ErrConfigNotFound
}

func (repo *markRepository) UpsertHeaderConfig(_ context.Context, _ core.DB, cfg mark.HeaderConfig) (mark.HeaderConfig, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := cfg.SubjectID + "/" + cfg.Grade
	if existing, ok := repo.db.headerConfigs[key]; ok {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	}
	repo.db.headerConfigs[key] = &cfg
	return cfg, nil
}
