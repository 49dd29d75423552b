package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind identifies the type of source document behind a ledger entry
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "INVOICE"
	DocumentKindCreditNote DocumentKind = "CREDIT_NOTE"
	DocumentKindDebitNote  DocumentKind = "DEBIT_NOTE"
	DocumentKindReceipt    DocumentKind = "RECEIPT"
	DocumentKindRemittance DocumentKind = "REMITTANCE"
)

// IsValid checks if the kind is a valid DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindCreditNote, DocumentKindDebitNote,
		DocumentKindReceipt, DocumentKindRemittance:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// DocumentRef is the single reference an entry keeps to its source document.
// One field for the kind and one for the identity, never one nullable
// column per document type.
type DocumentRef struct {
	Kind       DocumentKind
	DocumentID uuid.UUID
}

// DocumentHeader carries the fields every source document shares
type DocumentHeader struct {
	ID             uuid.UUID `validate:"required"`
	Series         string    `validate:"required,max=10"`
	Number         int       `validate:"gt=0"`
	Date           time.Time `validate:"required"`
	CounterpartyID uuid.UUID `validate:"required"`
}

// SourceDocument is the closed set of confirmed documents that can be
// posted to a ledger account. Implementations live in this package only;
// dispatch happens by type switch, not inheritance.
type SourceDocument interface {
	Kind() DocumentKind
	Header() DocumentHeader
	Ref() DocumentRef

	isSourceDocument()
}

// Invoice is a confirmed sales or purchase invoice
type Invoice struct {
	DocumentHeader
	DueDate     *time.Time
	TotalAmount decimal.Decimal
}

// CreditNote corrects a previously issued invoice downward
type CreditNote struct {
	DocumentHeader
	TotalAmount decimal.Decimal
	Reason      string
}

// DebitNote charges an additional amount against the counterparty
type DebitNote struct {
	DocumentHeader
	TotalAmount decimal.Decimal
	Reason      string
}

// Receipt records money actually received or handed over
type Receipt struct {
	DocumentHeader
	Amount  decimal.Decimal
	Concept string
}

// Remittance posts the shipping cost of a dispatched remittance
type Remittance struct {
	DocumentHeader
	ShippingCost decimal.Decimal
}

func (d Invoice) Kind() DocumentKind    { return DocumentKindInvoice }
func (d CreditNote) Kind() DocumentKind { return DocumentKindCreditNote }
func (d DebitNote) Kind() DocumentKind  { return DocumentKindDebitNote }
func (d Receipt) Kind() DocumentKind    { return DocumentKindReceipt }
func (d Remittance) Kind() DocumentKind { return DocumentKindRemittance }

func (h DocumentHeader) Header() DocumentHeader { return h }

func (d Invoice) Ref() DocumentRef    { return DocumentRef{Kind: d.Kind(), DocumentID: d.ID} }
func (d CreditNote) Ref() DocumentRef { return DocumentRef{Kind: d.Kind(), DocumentID: d.ID} }
func (d DebitNote) Ref() DocumentRef  { return DocumentRef{Kind: d.Kind(), DocumentID: d.ID} }
func (d Receipt) Ref() DocumentRef    { return DocumentRef{Kind: d.Kind(), DocumentID: d.ID} }
func (d Remittance) Ref() DocumentRef { return DocumentRef{Kind: d.Kind(), DocumentID: d.ID} }

func (d Invoice) isSourceDocument()    {}
func (d CreditNote) isSourceDocument() {}
func (d DebitNote) isSourceDocument()  {}
func (d Receipt) isSourceDocument()    {}
func (d Remittance) isSourceDocument() {}

// SignedAmount derives the signed amount a document posts to its account.
// The polarity is fixed system-wide for both client and supplier accounts:
// invoices, debit notes and remittance shipping costs reduce the
// counterparty's standing, receipts and credit notes restore it.
func SignedAmount(doc SourceDocument) decimal.Decimal {
	switch d := doc.(type) {
	case Invoice:
		return d.TotalAmount.Neg()
	case DebitNote:
		return d.TotalAmount.Neg()
	case Remittance:
		return d.ShippingCost.Neg()
	case CreditNote:
		return d.TotalAmount
	case Receipt:
		return d.Amount
	}
	return decimal.Zero
}

// dueDate returns the optional due date carried by the document, if any
func dueDate(doc SourceDocument) *time.Time {
	if inv, ok := doc.(Invoice); ok {
		return inv.DueDate
	}
	return nil
}
