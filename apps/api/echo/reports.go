package echoapi

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/backup"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/core/report"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	jsonContentType = "application/json; charset=utf-8"
)

func attachment(ctx echo.Context, filename, contentType string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return ctx.Blob(http.StatusOK, contentType, content)
}

func (api *complianceApi) generalCSV(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	now := compliance.NowFunc()
	var buf bytes.Buffer
	if err = api.formatter.WriteGeneralCSV(&buf, snap.Records, now); err != nil {
		return errors.Wrap(err, "writing general csv")
	}
	reportsGenerated.WithLabelValues("csv").Inc()
	return attachment(ctx, api.formatter.GeneralCSVFilename(now), csvContentType, buf.Bytes())
}

func (api *complianceApi) teacherCSV(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	now := compliance.NowFunc()
	var buf bytes.Buffer
	teacher, err := api.formatter.TeacherCSV(&buf, snap, ctx.Param("teacherId"), now)
	if err != nil {
		return errors.Wrap(err, "writing teacher csv")
	}
	reportsGenerated.WithLabelValues("csv").Inc()
	return attachment(ctx, api.formatter.TeacherCSVFilename(teacher.Name, now), csvContentType, buf.Bytes())
}

// renderWorkbook builds and encodes the workbook of snap; the analysis narrative is returned alongside.
func (api *complianceApi) renderWorkbook(snap *compliance.Snapshot) (*bytes.Buffer, string, error) {
	wb, err := api.formatter.BuildWorkbook(snap, compliance.NowFunc())
	if err != nil {
		return nil, "", errors.Wrap(err, "building workbook")
	}
	var buf bytes.Buffer
	if err = report.WriteXLSX(&buf, wb); err != nil {
		return nil, "", errors.Wrap(err, "writing xlsx")
	}
	analysis, err := api.formatter.Analysis(snap)
	if err != nil {
		return nil, "", errors.Wrap(err, "rendering analysis")
	}
	reportsGenerated.WithLabelValues("xlsx").Inc()
	return &buf, analysis, nil
}

func (api *complianceApi) workbook(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	buf, _, err := api.renderWorkbook(snap)
	if err != nil {
		return err
	}
	return attachment(ctx, api.formatter.WorkbookFilename(compliance.NowFunc()), xlsxContentType, buf.Bytes())
}

// emailWorkbook mails the workbook to the requested recipients, or to the configured ones.
func (api *complianceApi) emailWorkbook(ctx echo.Context) error {
	var data emailReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to emailReport")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	to := api.conf.ReportRecipients
	if len(data.To) > 0 {
		to = make([]mail.Address, 0, len(data.To))
		for _, addr := range data.To {
			to = append(to, mail.Address{Address: addr})
		}
	}
	if len(to) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: errNoRecipients})
	}

	owner, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	buf, analysis, err := api.renderWorkbook(snap)
	if err != nil {
		return err
	}

	now := compliance.NowFunc()
	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s: informe de cumplimiento %s", api.conf.AppName, now.In(api.svc.Location()).Format("02-01-2006")),
		BodyStr: analysis,
	}
	if err = msg.Attach(buf, api.formatter.WorkbookFilename(now), xlsxContentType); err != nil {
		return errors.Wrap(err, "attaching workbook")
	}
	api.mailer.SendMessages(msg)
	api.logger.Info(fmt.Sprintf("workbook mailed to %d recipient(s)", len(to)), owner)

	return ctx.JSON(http.StatusAccepted, echo.Map{"recipients": len(to)})
}

func (api *complianceApi) exportBackup(ctx echo.Context) error {
	_, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	now := compliance.NowFunc()
	var buf bytes.Buffer
	if err = backup.Export(snap, now).Write(&buf); err != nil {
		return errors.Wrap(err, "writing backup")
	}
	reportsGenerated.WithLabelValues("json").Inc()
	return attachment(ctx, api.formatter.BackupFilename(now), jsonContentType, buf.Bytes())
}

// importBackup replaces all of the owner's data; it requires ?confirm=true.
func (api *complianceApi) importBackup(ctx echo.Context) error {
	if ctx.QueryParam("confirm") != "true" {
		return core.NewValidationError(errors.New(errNeedsConfirm))
	}
	owner, err := getContextOwner(ctx)
	if err != nil {
		return err
	}

	payload, err := backup.Parse(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "parsing backup")
	}
	res, err := api.reconciler.Import(ctx.Request().Context(), owner.ID, payload)
	if err != nil {
		return errors.Wrap(err, "importing backup")
	}
	return ctx.JSON(http.StatusOK, res)
}
