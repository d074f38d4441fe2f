package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/buildops/backoffice/internal/domain/shared"
)

// DocumentType identifies what kind of artifact a document is. Each type has
// its own number sequence.
type DocumentType string

const (
	DocumentTypeInvoice     DocumentType = "INVOICE"
	DocumentTypeQuote       DocumentType = "QUOTE"
	DocumentTypeCertificate DocumentType = "CERTIFICATE"
)

// numberDigits is the zero-padded width of the sequence part of a number.
const numberDigits = 5

var numberPrefixes = map[DocumentType]string{
	DocumentTypeInvoice:     "INV",
	DocumentTypeQuote:       "QUO",
	DocumentTypeCertificate: "CERT",
}

// AllDocumentTypes returns every known type
func AllDocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypeInvoice, DocumentTypeQuote, DocumentTypeCertificate}
}

// IsValid checks if the type is known
func (t DocumentType) IsValid() bool {
	_, ok := numberPrefixes[t]
	return ok
}

func (t DocumentType) String() string {
	return string(t)
}

// NumberPrefix returns the prefix used in document numbers of this type
func (t DocumentType) NumberPrefix() string {
	return numberPrefixes[t]
}

// ParseDocumentType converts user input into a DocumentType
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", s))
	}
	return t, nil
}

// DocumentNumber is an allocated, human-readable document number such as
// INV-00001. Sequences above 99999 widen instead of wrapping.
type DocumentNumber struct {
	Type     DocumentType
	Sequence int64
}

// NewDocumentNumber builds a number from a type and a positive sequence
func NewDocumentNumber(t DocumentType, sequence int64) (DocumentNumber, error) {
	if !t.IsValid() {
		return DocumentNumber{}, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", t))
	}
	if sequence < 1 {
		return DocumentNumber{}, shared.NewDomainError("INVALID_SEQUENCE", fmt.Sprintf("Document sequence must be positive, got %d", sequence))
	}
	return DocumentNumber{Type: t, Sequence: sequence}, nil
}

// String formats the number as PREFIX-NNNNN
func (n DocumentNumber) String() string {
	return fmt.Sprintf("%s-%0*d", n.Type.NumberPrefix(), numberDigits, n.Sequence)
}

// IsZero reports whether no number has been assigned
func (n DocumentNumber) IsZero() bool {
	return n.Sequence == 0
}

// ParseDocumentNumber parses a formatted number back into type and sequence
func ParseDocumentNumber(s string) (DocumentNumber, error) {
	prefix, seq, ok := strings.Cut(s, "-")
	if !ok {
		return DocumentNumber{}, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", fmt.Sprintf("Malformed document number %q", s))
	}
	for t, p := range numberPrefixes {
		if p != prefix {
			continue
		}
		n, err := strconv.ParseInt(seq, 10, 64)
		if err != nil || len(seq) < numberDigits {
			return DocumentNumber{}, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", fmt.Sprintf("Malformed document number %q", s))
		}
		return NewDocumentNumber(t, n)
	}
	return DocumentNumber{}, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", fmt.Sprintf("Unknown document number prefix in %q", s))
}
