package mailer

import "embed"

const (
	FromName            = "Tourcart"
	maxRetries          = 3
	MergeReportTemplate = "merge_report.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
