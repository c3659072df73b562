package notify

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopworks/be-repair-core/internal/repository"
)

// Kind identifies a notification template.
type Kind string

const (
	KindJobBooked    Kind = "job_booked"
	KindJobReady     Kind = "job_ready"
	KindPartReady    Kind = "part_ready"
	KindOrderPlaced  Kind = "order_placed"
	KindOrderArrived Kind = "order_arrived"
	KindWeeklyReport Kind = "weekly_report"
	KindGeneric      Kind = "generic"
)

// WeeklyReportData carries the per-tenant counts for the weekly report.
type WeeklyReportData struct {
	WeekStart     time.Time
	OpenJobs      int
	CompletedJobs int
	ArrivedOrders int
}

// TemplateData is everything a template may draw on. Only the fields relevant
// to the kind need to be set; missing optionals render as neutral
// placeholders.
type TemplateData struct {
	Business     *repository.Business
	Job          *repository.Job
	Order        *repository.Order
	Part         *repository.PartOrder
	CustomerName string
	Report       *WeeklyReportData

	// Subject and Body are used by the generic kind only.
	Subject string
	Body    string
}

// Content is a rendered notification.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

type templateView struct {
	CustomerName string
	BusinessName string
	JobCode      string
	Equipment    string
	Status       string
	OrderNumber  string
	Supplier     string
	PartName     string
	Items        []itemView
	Total        string
	Report       *WeeklyReportData
	WeekStart    string
	Body         string
}

type itemView struct {
	Name     string
	SKU      string
	Quantity int
	Price    string
}

var textTemplates = texttemplate.Must(texttemplate.New("bodies").Parse(`
{{- define "job_booked" -}}
Hi {{.CustomerName}},

Your repair job {{.JobCode}} for {{.Equipment}} has been booked in with {{.BusinessName}}.
We will keep you posted as work progresses.

Thanks,
{{.BusinessName}}
{{- end -}}

{{- define "job_ready" -}}
Hi {{.CustomerName}},

Good news from {{.BusinessName}}: job {{.JobCode}} ({{.Equipment}}) is ready for pickup.
Please collect it at your convenience.

Thanks,
{{.BusinessName}}
{{- end -}}

{{- define "part_ready" -}}
Hi {{.CustomerName}},

The part you ordered ({{.PartName}}) has arrived at {{.BusinessName}} and is ready for collection.

Thanks,
{{.BusinessName}}
{{- end -}}

{{- define "order_placed" -}}
Hi {{.CustomerName}},

{{.BusinessName}} has placed order {{.OrderNumber}}{{if .Supplier}} with {{.Supplier}}{{end}}:
{{range .Items}}  - {{.Name}} x{{.Quantity}}{{if .SKU}} ({{.SKU}}){{end}} — {{.Price}}
{{end}}Total: {{.Total}}

We will let you know when it arrives.

Thanks,
{{.BusinessName}}
{{- end -}}

{{- define "order_arrived" -}}
Hi {{.CustomerName}},

Order {{.OrderNumber}} has arrived at {{.BusinessName}}:
{{range .Items}}  - {{.Name}} x{{.Quantity}}
{{end}}
Thanks,
{{.BusinessName}}
{{- end -}}

{{- define "weekly_report" -}}
Weekly summary for {{.BusinessName}} (week of {{.WeekStart}}):

  Open jobs:            {{.Report.OpenJobs}}
  Jobs completed:       {{.Report.CompletedJobs}}
  Orders arrived:       {{.Report.ArrivedOrders}}

Sent automatically by your repair shop system.
{{- end -}}

{{- define "generic" -}}
{{.Body}}
{{- end -}}
`))

var htmlLayout = htmltemplate.Must(htmltemplate.New("layout").Parse(
	`<html><body><h2>{{.Title}}</h2>{{range .Paragraphs}}<p>{{.}}</p>{{end}}</body></html>`))

var subjects = map[Kind]string{
	KindJobBooked:    "Job %s booked in",
	KindJobReady:     "Job %s is ready for pickup",
	KindPartReady:    "Your part has arrived",
	KindOrderPlaced:  "Order %s placed",
	KindOrderArrived: "Order %s has arrived",
	KindWeeklyReport: "Your weekly shop summary",
}

// Render maps a notification kind and entity data to a subject, a plain-text
// body and an HTML body. It never fails: missing optional fields come out as
// neutral placeholders.
func Render(kind Kind, data TemplateData) Content {
	view := buildView(data)

	var subject string
	switch kind {
	case KindJobBooked, KindJobReady:
		subject = fmt.Sprintf(subjects[kind], view.JobCode)
	case KindOrderPlaced, KindOrderArrived:
		subject = fmt.Sprintf(subjects[kind], view.OrderNumber)
	case KindGeneric:
		subject = data.Subject
		if subject == "" {
			subject = "Notification from " + view.BusinessName
		}
	default:
		subject = subjects[kind]
		if subject == "" {
			subject = "Notification from " + view.BusinessName
		}
	}

	var buf strings.Builder
	if err := textTemplates.ExecuteTemplate(&buf, string(kind), view); err != nil {
		// Unknown kind or bad data; degrade to the generic shape.
		return Content{Subject: subject, Text: data.Body, HTML: ""}
	}
	text := strings.TrimLeft(buf.String(), "\n")

	return Content{Subject: subject, Text: text, HTML: renderHTML(subject, text)}
}

func buildView(data TemplateData) templateView {
	view := templateView{
		CustomerName: data.CustomerName,
		BusinessName: "your repair shop",
		Equipment:    "your equipment",
		Body:         data.Body,
		Report:       data.Report,
	}
	if view.CustomerName == "" {
		view.CustomerName = "there"
	}
	if data.Business != nil && data.Business.Name != "" {
		view.BusinessName = data.Business.Name
	}
	if data.Job != nil {
		view.JobCode = data.Job.JobCode
		view.Status = repository.StatusLabel(data.Job.Status)
		if data.Job.EquipmentDescription != nil && *data.Job.EquipmentDescription != "" {
			view.Equipment = *data.Job.EquipmentDescription
		}
	}
	if data.Order != nil {
		view.OrderNumber = data.Order.OrderNumber
		if data.Order.Supplier != nil {
			view.Supplier = *data.Order.Supplier
		}
		var total int64
		for _, item := range data.Order.Items {
			lineTotal := item.UnitPrice * int64(item.Quantity)
			total += lineTotal
			iv := itemView{
				Name:     item.Name,
				Quantity: item.Quantity,
				Price:    formatMoney(lineTotal),
			}
			if item.SKU != nil {
				iv.SKU = *item.SKU
			}
			view.Items = append(view.Items, iv)
		}
		view.Total = formatMoney(total)
	}
	if data.Part != nil {
		view.PartName = data.Part.PartName
	}
	if data.Report != nil {
		view.WeekStart = data.Report.WeekStart.Format("2 Jan 2006")
	}
	return view
}

// formatMoney converts minor currency units to a display string.
func formatMoney(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}

// renderHTML wraps the plain-text body in a minimal HTML layout, escaping via
// html/template.
func renderHTML(title, text string) string {
	paragraphs := strings.Split(text, "\n\n")
	var buf strings.Builder
	err := htmlLayout.Execute(&buf, struct {
		Title      string
		Paragraphs []string
	}{Title: title, Paragraphs: paragraphs})
	if err != nil {
		return ""
	}
	return buf.String()
}
