package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/roster"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) GetReportByKey(_ context.Context, _ core.DB, studentID, subjectID, teacherID, trimester string) (report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.reports {
		if r.StudentID == studentID && r.SubjectID == subjectID &&
			r.TeacherID == teacherID && r.Trimester == trimester {
			return *r, nil
		}
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) CreateReport(_ context.Context, _ core.DB, r report.Report) (report.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.reports[r.ID] = &r
	return r, nil
}

func (repo *reportRepository) UpdateReport(_ context.Context, _ core.DB, r report.Report) (report.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.reports[r.ID]; !ok {
		return report.Report{}, report.ErrNotFound
	}
	repo.db.reports[r.ID] = &r
	return r, nil
}

func (repo *reportRepository) FilterReports(_ context.Context, _ core.DB, filter report.Filter) ([]report.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reports := make([]report.Report, 0)
	for _, r := range repo.db.reports {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && r.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SubjectID != "" && r.SubjectID != filter.SubjectID {
			continue
		}
		if filter.ClassID != "" {
			stud, ok := repo.db.students[r.StudentID]
			if !ok || stud.ClassID != filter.ClassID {
				continue
			}
		}
		if filter.Trimester != "" && r.Trimester != filter.Trimester {
			continue
		}
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.Before(reports[j].CreatedAt) })
	return reports, nil
}

func (repo *reportRepository) DeleteReport(_ context.Context, _ core.DB, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.reports[id]; !ok {
		return report.ErrNotFound
	}
	delete(repo.db.reports, id)
	return nil
}

func (repo *reportRepository) GetSubjectIDByName(_ context.Context, _ core.DB, name string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.subjects {
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name)) {
			return s.ID, nil
		}
	}
	return "", roster.ErrSubjectNotFound
}

func (repo *reportRepository) GetTeacherIDByName(_ context.Context, _ core.DB, name string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, t := range repo.db.teachers {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) {
			return t.ID, nil
		}
	}
	return "", roster.ErrTeacherNotFound
}
