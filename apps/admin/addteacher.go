package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/roster"
	"github.com/trezcool/shule/storage/database"
)

// addTeacher creates a teacher row and its provider account on one tenant.
func (cli *commandLine) addTeacher(tenant, name, email, username, year, pwd string, isAdmin bool) error {
	tenant = core.CleanString(tenant, true /* lower */)
	if tenant == "" {
		tenant = cli.conf.Tenants.Default
	}
	dsn, ok := cli.conf.Tenants.DSNs[tenant]
	if !ok {
		return errors.Errorf("unknown tenant %q", tenant)
	}
	db, err := database.Open(dsn)
	if err != nil {
		return errors.Wrapf(err, "opening tenant %q", tenant)
	}
	defer closeDB(db)

	role := roster.RoleTeacher
	if isAdmin {
		role = roster.RoleAdmin
	}
	now := time.Now().UTC()
	t := roster.Teacher{
		ID:           uuid.NewString(),
		Name:         core.CleanString(name),
		ArabicName:   null.String{},
		Email:        core.CleanString(email, true /* lower */),
		Username:     core.CleanString(username, true /* lower */),
		Role:         role,
		AcademicYear: core.CleanString(year),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx := context.Background()
	if t, err = cli.rosterRepo.CreateTeacher(ctx, db, t); err != nil {
		return errors.Wrap(err, "creating teacher")
	}

	if err = cli.accounts.CreateAccount(ctx, core.Account{
		ExternalID: t.ID,
		Name:       t.Name,
		Username:   t.Username,
		Email:      t.Email,
		Password:   pwd,
		Role:       t.Role,
		School:     tenant,
	}); err != nil {
		if delErr := cli.rosterRepo.DeleteTeacher(ctx, db, t.ID); delErr != nil {
			logger.Printf("compensating teacher delete failed: %v", delErr)
		}
		return errors.Wrap(err, "creating provider account")
	}

	logger.Printf("teacher %q created on tenant %q", t.Email, tenant)
	return nil
}
