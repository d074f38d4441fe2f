package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TemplateData is the typed input of a document template. Each document type
// has exactly one implementation.
type TemplateData interface {
	DocumentType() DocumentType
	Validate() error
}

// TemplateLine is one priced line shown on a quote or invoice
type TemplateLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns quantity * unit price rounded to cents
func (l TemplateLine) Total() valueobject.Amount {
	return valueobject.LineTotal(l.Quantity, l.UnitPrice)
}

// InvoiceTemplateData feeds the client invoice template
type InvoiceTemplateData struct {
	ClientName string          `json:"client_name"`
	IssueDate  time.Time       `json:"issue_date"`
	DueDate    time.Time       `json:"due_date"`
	Lines      []TemplateLine  `json:"lines"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Notes      string          `json:"notes,omitempty"`
}

func (d *InvoiceTemplateData) DocumentType() DocumentType { return DocumentTypeInvoice }

func (d *InvoiceTemplateData) Validate() error {
	if strings.TrimSpace(d.ClientName) == "" {
		return invalidTemplate(DocumentTypeInvoice, "client name is required")
	}
	if len(d.Lines) == 0 {
		return invalidTemplate(DocumentTypeInvoice, "at least one line is required")
	}
	if !d.DueDate.IsZero() && d.DueDate.Before(d.IssueDate) {
		return invalidTemplate(DocumentTypeInvoice, "due date is before issue date")
	}
	if d.TaxRate.IsNegative() {
		return invalidTemplate(DocumentTypeInvoice, "tax rate cannot be negative")
	}
	return validateLines(DocumentTypeInvoice, d.Lines)
}

// Subtotal sums the line totals
func (d *InvoiceTemplateData) Subtotal() valueobject.Amount {
	return sumLines(d.Lines)
}

// Tax applies the tax rate to the subtotal
func (d *InvoiceTemplateData) Tax() valueobject.Amount {
	return valueobject.NewAmount(d.Subtotal().Decimal().Mul(d.TaxRate)).RoundCents()
}

// Total is subtotal plus tax
func (d *InvoiceTemplateData) Total() valueobject.Amount {
	return d.Subtotal().Add(d.Tax())
}

// QuoteTemplateData feeds the quote template
type QuoteTemplateData struct {
	ClientName string         `json:"client_name"`
	Scope      string         `json:"scope"`
	ValidUntil time.Time      `json:"valid_until"`
	Lines      []TemplateLine `json:"lines"`
}

func (d *QuoteTemplateData) DocumentType() DocumentType { return DocumentTypeQuote }

func (d *QuoteTemplateData) Validate() error {
	if strings.TrimSpace(d.ClientName) == "" {
		return invalidTemplate(DocumentTypeQuote, "client name is required")
	}
	if strings.TrimSpace(d.Scope) == "" {
		return invalidTemplate(DocumentTypeQuote, "scope of work is required")
	}
	return validateLines(DocumentTypeQuote, d.Lines)
}

// Total sums the quoted lines
func (d *QuoteTemplateData) Total() valueobject.Amount {
	return sumLines(d.Lines)
}

// CertificateTemplateData feeds the completion certificate template
type CertificateTemplateData struct {
	ClientName     string    `json:"client_name"`
	SiteAddress    string    `json:"site_address"`
	CompletionDate time.Time `json:"completion_date"`
	Signatory      string    `json:"signatory"`
	WorkSummary    string    `json:"work_summary,omitempty"`
}

func (d *CertificateTemplateData) DocumentType() DocumentType { return DocumentTypeCertificate }

func (d *CertificateTemplateData) Validate() error {
	switch {
	case strings.TrimSpace(d.ClientName) == "":
		return invalidTemplate(DocumentTypeCertificate, "client name is required")
	case strings.TrimSpace(d.SiteAddress) == "":
		return invalidTemplate(DocumentTypeCertificate, "site address is required")
	case d.CompletionDate.IsZero():
		return invalidTemplate(DocumentTypeCertificate, "completion date is required")
	case strings.TrimSpace(d.Signatory) == "":
		return invalidTemplate(DocumentTypeCertificate, "signatory is required")
	}
	return nil
}

// DecodeTemplateData parses raw JSON into the template data of docType
func DecodeTemplateData(docType DocumentType, raw []byte) (TemplateData, error) {
	var data TemplateData
	switch docType {
	case DocumentTypeInvoice:
		data = &InvoiceTemplateData{}
	case DocumentTypeQuote:
		data = &QuoteTemplateData{}
	case DocumentTypeCertificate:
		data = &CertificateTemplateData{}
	default:
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", docType))
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, shared.NewDomainError("INVALID_TEMPLATE_DATA", fmt.Sprintf("Template data for %s is malformed: %v", docType, err))
		}
	}
	return data, nil
}

// EncodeTemplateData serializes template data for storage
func EncodeTemplateData(data TemplateData) ([]byte, error) {
	if data == nil {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_DATA", "Template data is required")
	}
	return json.Marshal(data)
}

func validateLines(t DocumentType, lines []TemplateLine) error {
	for i, l := range lines {
		if strings.TrimSpace(l.Description) == "" {
			return invalidTemplate(t, fmt.Sprintf("line %d has no description", i+1))
		}
		if !l.Quantity.IsPositive() {
			return invalidTemplate(t, fmt.Sprintf("line %d quantity must be positive", i+1))
		}
		if l.UnitPrice.IsNegative() {
			return invalidTemplate(t, fmt.Sprintf("line %d unit price cannot be negative", i+1))
		}
	}
	return nil
}

func sumLines(lines []TemplateLine) valueobject.Amount {
	total := valueobject.ZeroAmount()
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

func invalidTemplate(t DocumentType, msg string) error {
	return shared.NewDomainError("INVALID_TEMPLATE_DATA", fmt.Sprintf("%s template: %s", t, msg))
}
