package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

// Teachers

func (repo *rosterRepository) CreateTeacher(_ context.Context, _ core.DB, t roster.Teacher) (roster.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *rosterRepository) QueryTeachers(_ context.Context, _ core.DB) ([]roster.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make([]roster.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, *t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (repo *rosterRepository) GetTeacherByID(_ context.Context, _ core.DB, id string) (roster.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.teachers[id]; ok {
		return *t, nil
	}
	return roster.Teacher{}, roster.ErrTeacherNotFound
}

func (repo *rosterRepository) GetTeacherByName(_ context.Context, _ core.DB, name string) (roster.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, t := range repo.db.teachers {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) {
			return *t, nil
		}
	}
	return roster.Teacher{}, roster.ErrTeacherNotFound
}

func (repo *rosterRepository) UpdateTeacher(_ context.Context, _ core.DB, t roster.Teacher) (roster.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[t.ID]; !ok {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *rosterRepository) DeleteTeacher(_ context.Context, _ core.DB, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teachers[id]; !ok {
		return roster.ErrTeacherNotFound
	}
	delete(repo.db.teachers, id)
	for key := range repo.db.teacherSubjects {
		if key[0] == id {
			delete(repo.db.teacherSubjects, key)
		}
	}
	for key, link := range repo.db.classTeachers {
		if key[1] == id {
			delete(repo.db.classTeachers, key)
			// marks keep the dangling link cleared
			for _, m := range repo.db.marks {
				if m.ClassTeacherID.String == link.id {
					m.ClassTeacherID.Valid = false
					m.ClassTeacherID.String = ""
				}
			}
		}
	}
	return nil
}

func (repo *rosterRepository) AddTeacherSubject(_ context.Context, _ core.DB, teacherID, subjectID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.teacherSubjects[[2]string{teacherID, subjectID}] = struct{}{}
	return nil
}

// Classes

func (repo *rosterRepository) CreateClass(_ context.Context, _ core.DB, c roster.Class) (roster.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.classes {
		if existing.Name == c.Name {
			return roster.Class{}, roster.ErrClassExists
		}
	}
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *rosterRepository) QueryClasses(_ context.Context, _ core.DB) ([]roster.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]roster.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *rosterRepository) GetClassByID(_ context.Context, _ core.DB, id string) (roster.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return roster.Class{}, roster.ErrClassNotFound
}

func (repo *rosterRepository) GetClassByName(_ context.Context, _ core.DB, name string) (roster.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.classes {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			return *c, nil
		}
	}
	return roster.Class{}, roster.ErrClassNotFound
}

func (repo *rosterRepository) DeleteClass(_ context.Context, _ core.DB, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return roster.ErrClassNotFound
	}
	delete(repo.db.classes, id)
	for key := range repo.db.classSubjects {
		if key[0] == id {
			delete(repo.db.classSubjects, key)
		}
	}
	for key := range repo.db.classTeachers {
		if key[0] == id {
			delete(repo.db.classTeachers, key)
		}
	}
	// students and their marks go with the class
	for sid, s := range repo.db.students {
		if s.ClassID == id {
			delete(repo.db.students, sid)
			for mid, m := range repo.db.marks {
				if m.StudentID == sid {
					delete(repo.db.marks, mid)
				}
			}
		}
	}
	return nil
}

// Subjects

func (repo *rosterRepository) CreateSubject(_ context.Context, _ core.DB, s roster.Subject) (roster.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.subjects {
		if existing.Name == s.Name {
			return roster.Subject{}, roster.ErrSubjectExists
		}
	}
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) QuerySubjects(_ context.Context, _ core.DB) ([]roster.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]roster.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *rosterRepository) UpsertSubjectByName(_ context.Context, _ core.DB, s roster.Subject) (roster.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.subjects {
		if existing.Name == s.Name {
			return *existing, nil
		}
	}
	repo.db.subjects[s.ID] = &s
	return s, nil
}

// Assignments

func (repo *rosterRepository) UpsertClassSubject(_ context.Context, _ core.DB, classID, subjectID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.classSubjects[[2]string{classID, subjectID}] = struct{}{}
	return nil
}

func (repo *rosterRepository) QueryClassSubjects(_ context.Context, _ core.DB, classID string) ([]roster.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]roster.Subject, 0)
	for key := range repo.db.classSubjects {
		if key[0] != classID {
			continue
		}
		if s, ok := repo.db.subjects[key[1]]; ok {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *rosterRepository) UpsertClassTeacher(_ context.Context, _ core.DB, classID, teacherID, subjectID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := [3]string{classID, teacherID, subjectID}
	if _, ok := repo.db.classTeachers[key]; !ok {
		repo.db.classTeachers[key] = classTeacherLink{id: classID + "/" + teacherID + "/" + subjectID}
	}
	return nil
}

// Students

func (repo *rosterRepository) CreateStudent(_ context.Context, _ core.DB, s roster.Student) (roster.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) FilterStudents(_ context.Context, _ core.DB, filter roster.StudentFilter) ([]roster.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]roster.Student, 0)
	for _, s := range repo.db.students {
		if filter.ClassID != "" && s.ClassID != filter.ClassID {
			continue
		}
		if filter.Search != "" {
			kw := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(s.Name), kw) &&
				!strings.Contains(strings.ToLower(s.ArabicName.String), kw) {
				continue
			}
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *rosterRepository) GetStudentByID(_ context.Context, _ core.DB, id string) (roster.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrStudentNotFound
}

func (repo *rosterRepository) UpdateStudent(_ context.Context, _ core.DB, s roster.Student) (roster.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[s.ID]; !ok {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) DeleteStudent(_ context.Context, _ core.DB, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return roster.ErrStudentNotFound
	}
	delete(repo.db.students, id)
	for mid, m := range repo.db.marks {
		if m.StudentID == id {
			delete(repo.db.marks, mid)
		}
	}
	return nil
}
