package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFiles = map[document.DocumentType]string{
	document.DocumentTypeInvoice:     "templates/invoice.html",
	document.DocumentTypeQuote:       "templates/quote.html",
	document.DocumentTypeCertificate: "templates/certificate.html",
}

// TemplateEngine renders the built-in HTML template of each document type.
// Templates are parsed once at construction.
type TemplateEngine struct {
	currency  string
	templates map[document.DocumentType]*template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithCurrencySymbol sets the symbol printed before money amounts
func WithCurrencySymbol(symbol string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.currency = symbol
	}
}

// NewTemplateEngine parses the embedded templates
func NewTemplateEngine(opts ...TemplateEngineOption) (*TemplateEngine, error) {
	e := &TemplateEngine{templates: make(map[document.DocumentType]*template.Template, len(templateFiles))}
	for _, opt := range opts {
		opt(e)
	}

	funcs := e.funcMap()
	for docType, path := range templateFiles {
		tmpl, err := template.New(docType.String()).Funcs(funcs).ParseFS(templateFS, path)
		if err != nil {
			return nil, NewRenderError(ErrCodeInvalidTemplate, "failed to parse template "+path, err)
		}
		e.templates[docType] = tmpl.Lookup(strings.TrimPrefix(path, "templates/"))
	}
	return e, nil
}

// Render executes the template for docType against view.
func (e *TemplateEngine) Render(docType document.DocumentType, view any) (string, error) {
	tmpl, ok := e.templates[docType]
	if !ok {
		return "", NewRenderError(ErrCodeInvalidTemplate, fmt.Sprintf("no template for document type %s", docType), nil)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

func (e *TemplateEngine) funcMap() template.FuncMap {
	return template.FuncMap{
		"money":    e.formatMoney,
		"quantity": formatQuantity,
		"percent":  formatPercent,
		"date":     formatDate,
		"title":    titleCase,
		"upper":    strings.ToUpper,
		"default":  defaultString,
		"lines":    splitLines,
	}
}

func (e *TemplateEngine) formatMoney(a valueobject.Amount) string {
	return e.currency + groupThousands(a.String())
}

// groupThousands inserts separators into the integer part of a fixed-point
// string: 1234567.50 -> 1,234,567.50
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// formatQuantity drops trailing zeros: 3.5000 -> 3.5, 2.0 -> 2
func formatQuantity(d decimal.Decimal) string {
	return d.String()
}

// formatPercent renders a rate: 0.2 -> 20%
func formatPercent(rate decimal.Decimal) string {
	return rate.Shift(2).String() + "%"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2 January 2006")
}

// titleCase builds a Caser per call; Casers keep state and are not safe to
// share across concurrent template executions.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func defaultString(fallback, s string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
