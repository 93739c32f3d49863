package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/bitacora/apps/api/echo"
	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/backup"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/core/report"
	"github.com/trezcool/bitacora/storage"
)

var (
	errHelp         = errors.New("help provided")
	errNeedsConfirm = errors.New("import replaces all of the owner's data: pass -confirm to proceed")
)

type commandLine struct {
	conf      *core.Config
	logger    core.Logger
	validate  *validator.Validate
	out       io.Writer
	openDB    func(ctx context.Context) (*sql.DB, error)
	openStore func(ctx context.Context) (compliance.Repository, storage.CloseFunc, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate CMD [ARGS]                                         - run goose migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  token -owner ID [-email EMAIL]                             - print an API token")
	fmt.Fprintln(cli.out, "  export -owner ID [-out FILE]                               - write the owner's JSON backup")
	fmt.Fprintln(cli.out, "  import -owner ID -in FILE -confirm                         - replace the owner's data with a backup")
	fmt.Fprintln(cli.out, "  report -owner ID [-format csv|xlsx] [-teacher ID] [-out FILE] - write a report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenOwner := tokenCmd.String("owner", "", "The owner id (token subject).")
	tokenEmail := tokenCmd.String("email", "", "The owner's email.")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOwner := exportCmd.String("owner", "", "The owner id.")
	exportOut := exportCmd.String("out", "-", "The output file (- for stdout).")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importOwner := importCmd.String("owner", "", "The owner id.")
	importIn := importCmd.String("in", "", "The backup file.")
	importConfirm := importCmd.Bool("confirm", false, "Confirm that all of the owner's data will be replaced.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportOwner := reportCmd.String("owner", "", "The owner id.")
	reportFormat := reportCmd.String("format", "csv", "The report format: csv or xlsx.")
	reportTeacher := reportCmd.String("teacher", "", "Restrict the csv report to one teacher.")
	reportOut := reportCmd.String("out", "", "The output file (defaults to the report file name).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenOwner == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(core.Owner{ID: *tokenOwner, Email: *tokenEmail})
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOwner == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportOwner, *exportOut)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importOwner == "" || *importIn == "" {
			importCmd.Usage()
			return errHelp
		}
		if !*importConfirm {
			return errNeedsConfirm
		}
		return cli.importBackup(*importOwner, *importIn)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportOwner == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(*reportOwner, *reportFormat, *reportTeacher, *reportOut)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) token(owner core.Owner) error {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(cli.conf, owner), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

// withService opens the configured store for the duration of fn.
func (cli *commandLine) withService(fn func(ctx context.Context, svc *compliance.Service) error) error {
	ctx := context.Background()
	repo, closeStore, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			cli.logger.Error("closing store", err)
		}
	}()
	return fn(ctx, compliance.NewService(repo, cli.validate, cli.logger, cli.conf))
}

// create opens path for writing; "-" is cli.out.
func (cli *commandLine) create(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cli.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (cli *commandLine) export(owner, out string) error {
	return cli.withService(func(ctx context.Context, svc *compliance.Service) error {
		snap, err := svc.Snapshot(ctx, owner)
		if err != nil {
			return err
		}
		w, closeFn, err := cli.create(out)
		if err != nil {
			return err
		}
		if err = backup.Export(snap, compliance.NowFunc()).Write(w); err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	})
}

func (cli *commandLine) importBackup(owner, in string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	payload, err := backup.Parse(f)
	if err != nil {
		return err
	}
	return cli.withService(func(ctx context.Context, svc *compliance.Service) error {
		res, err := backup.NewReconciler(svc, cli.logger).Import(ctx, owner, payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "imported %d teachers and %d records (%d dropped)\n", res.Teachers, res.Records, res.Dropped)
		return nil
	})
}

func (cli *commandLine) report(owner, format, teacherID, out string) error {
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unknown report format %q", format)
	}
	if teacherID != "" && format != "csv" {
		return errors.New("-teacher is only supported by the csv format")
	}

	return cli.withService(func(ctx context.Context, svc *compliance.Service) error {
		snap, err := svc.Snapshot(ctx, owner)
		if err != nil {
			return err
		}
		f := report.NewFormatter(svc.Location(), svc.Catalog())
		now := compliance.NowFunc()

		// render first: nothing is written when the report cannot be built
		var render func(w io.Writer) error
		var filename string
		switch {
		case format == "xlsx":
			wb, err := f.BuildWorkbook(snap, now)
			if err != nil {
				return err
			}
			render = func(w io.Writer) error { return report.WriteXLSX(w, wb) }
			filename = f.WorkbookFilename(now)
		case teacherID != "":
			teacher, ok := snap.Teacher(teacherID)
			if !ok {
				return compliance.ErrTeacherNotFound
			}
			records := snap.RecordsOf(teacherID)
			if len(records) == 0 {
				return core.NewPreconditionError(fmt.Sprintf("No hay registros para %s.", teacher.Name))
			}
			render = func(w io.Writer) error { return f.WriteTeacherCSV(w, teacher, records, now) }
			filename = f.TeacherCSVFilename(teacher.Name, now)
		default:
			if len(snap.Records) == 0 {
				return core.NewPreconditionError("No hay registros para exportar.")
			}
			render = func(w io.Writer) error { return f.WriteGeneralCSV(w, snap.Records, now) }
			filename = f.GeneralCSVFilename(now)
		}

		if out == "" {
			out = filename
		}
		w, closeFn, err := cli.create(out)
		if err != nil {
			return err
		}
		if err = render(w); err != nil {
			_ = closeFn()
			return err
		}
		if out != "-" {
			fmt.Fprintf(cli.out, "report written to %s\n", out)
		}
		return closeFn()
	})
}
