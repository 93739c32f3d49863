package report

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/trezcool/bitacora/core/compliance"
)

var analysisTmpl = template.Must(template.New("analysis").Option("missingkey=error").Parse(
	`Análisis del período {{.Period}}
Se revisaron {{.Summary.Total}} registros del libro de clases: {{.Summary.Complied}} cumplen y {{.Summary.NotComplied}} no cumplen, con una tasa de cumplimiento general de {{.Summary.RatePercent}}%.
{{with .BestTeacher}}El mejor desempeño corresponde a {{.Label}}, con {{.RatePercent}}% de cumplimiento en {{.Total}} registros.{{end}}
{{with .WeakestTeacher}}El menor desempeño corresponde a {{.Label}}, con {{.RatePercent}}% de cumplimiento en {{.Total}} registros.{{end}}
{{with .WeakestCourse}}El curso con menor cumplimiento es {{.Label}} ({{.RatePercent}}%).{{end}}
{{with .WeakestSubject}}La asignatura con menor cumplimiento es {{.Label}} ({{.RatePercent}}%).{{end}}
{{if ge .Summary.RatePercent .Target}}El cumplimiento general alcanza la meta de {{.Target}}%.{{else}}El cumplimiento general está bajo la meta de {{.Target}}%; se recomienda reforzar el acompañamiento de los docentes con menor cumplimiento.{{end}}
`))

// complianceTarget is the rate (%) the narrative compares the overall rate against.
const complianceTarget = 80

type analysisData struct {
	Period         string
	Target         int
	Summary        compliance.Summary
	TopTeachers    []compliance.TeacherCount
	ByTeacher      []compliance.GroupStat
	ByCourse       []compliance.GroupStat
	BySubject      []compliance.GroupStat
	BestTeacher    *compliance.GroupStat
	WeakestTeacher *compliance.GroupStat
	WeakestCourse  *compliance.GroupStat
	WeakestSubject *compliance.GroupStat
}

func (f *Formatter) analysisData(snap *compliance.Snapshot) analysisData {
	data := analysisData{
		Period:      f.period(snap.Records),
		Target:      complianceTarget,
		Summary:     snap.Summary(),
		TopTeachers: compliance.TopTeachers(snap.Teachers, snap.Records, topTeachersLen),
		ByTeacher:   compliance.ByTeacher(snap.Teachers, snap.Records),
		ByCourse:    compliance.ByCourse(snap.Records, f.catalog.Courses),
		BySubject:   compliance.BySubject(snap.Records, f.catalog.Subjects),
	}
	if n := len(data.ByTeacher); n > 0 {
		data.BestTeacher = &data.ByTeacher[0]
		if n > 1 {
			data.WeakestTeacher = &data.ByTeacher[n-1]
		}
	}
	data.WeakestCourse = weakest(data.ByCourse)
	data.WeakestSubject = weakest(data.BySubject)
	return data
}

// weakest returns the first non-empty group with the lowest rate.
func weakest(stats []compliance.GroupStat) *compliance.GroupStat {
	var w *compliance.GroupStat
	for i := range stats {
		if stats[i].Total == 0 {
			continue
		}
		if w == nil || stats[i].RatePercent < w.RatePercent {
			w = &stats[i]
		}
	}
	return w
}

func renderAnalysis(data analysisData) (string, error) {
	var buff bytes.Buffer
	if err := analysisTmpl.Execute(&buff, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buff.String()), nil
}

// Analysis renders the narrative of a snapshot (used as report mail body).
func (f *Formatter) Analysis(snap *compliance.Snapshot) (string, error) {
	return renderAnalysis(f.analysisData(snap))
}
