package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/roster"
)

var (
	readPasswordFunc = readPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	rosterRepo roster.Repository
	accounts   core.AccountService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [-tenant CODE|all] - run pending migrations against a tenant database (default: all)")
	fmt.Println("  addteacher -tenant CODE -name NAME -email EMAIL -username USERNAME -year YYYY-YYYY [-admin] - create a teacher. The password will be prompted next.")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateTenant := migrateCmd.String("tenant", "all", "The tenant code to migrate, or 'all'.")

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherTenant := addTeacherCmd.String("tenant", "", "The tenant the teacher belongs to.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email.")
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's sign-in username.")
	addTeacherYear := addTeacherCmd.String("year", "", "The academic year, e.g. 2025-2026.")
	addTeacherAdmin := addTeacherCmd.Bool("admin", false, "Grant the ADMIN role.")

	switch args[1] {
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.migrate(*migrateTenant)
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherName == "" || *addTeacherEmail == "" || *addTeacherUname == "" || *addTeacherYear == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc()
		fmt.Println()
		if err != nil {
			return err
		}
		if pwd == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherTenant, *addTeacherName, *addTeacherEmail, *addTeacherUname, *addTeacherYear, pwd, *addTeacherAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}

func readPassword() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
