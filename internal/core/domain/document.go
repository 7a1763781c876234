package domain

import (
	"fmt"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// Document is implemented by every typed artifact payload. It is the
// closed-variant decoder target for spec §4.4: each ArtifactType maps
// to exactly one Document implementation.
type Document interface {
	// ArtifactType is the ArtifactEnvelope.Type this document belongs
	// under.
	ArtifactType() ArtifactType
	// Validate checks the document's own field invariants, returning
	// a *btpserrors.FieldError naming the offending field on failure.
	Validate() error
}

// TrustRequestDoc is the payload of a TRUST_REQ artifact.
type TrustRequestDoc struct {
	Message       string         `json:"message,omitempty"`
	RequestedRole string         `json:"requestedRole,omitempty"`
	Policy        map[string]any `json:"policy,omitempty"`
}

func (d *TrustRequestDoc) ArtifactType() ArtifactType { return TypeTrustRequest }

func (d *TrustRequestDoc) Validate() error { return nil }

// TrustResponseDoc is the payload of a TRUST_RES artifact.
type TrustResponseDoc struct {
	Decision string `json:"decision" validate:"required,oneof=accepted revoked"`
	Message  string `json:"message,omitempty"`
}

func (d *TrustResponseDoc) ArtifactType() ArtifactType { return TypeTrustResponse }

func (d *TrustResponseDoc) Validate() error {
	return runStructValidation(d)
}

// LineItem is one billed line of an InvoiceDoc.
type LineItem struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	UnitPrice   string `json:"unitPrice" validate:"required"`
}

// InvoiceDoc is the payload of a BTP_INVOICE artifact.
type InvoiceDoc struct {
	InvoiceNumber string     `json:"invoiceNumber" validate:"required"`
	LineItems     []LineItem `json:"lineItems" validate:"required,min=1,dive"`
	Currency      string     `json:"currency" validate:"required"`
	TotalAmount   string     `json:"totalAmount"`
	DueDate       string     `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (d *InvoiceDoc) ArtifactType() ArtifactType { return TypeInvoice }

func (d *InvoiceDoc) Validate() error {
	return runStructValidation(d)
}

// AuthRequestDoc is the payload of a BTP_AUTH_REQ artifact.
type AuthRequestDoc struct {
	Challenge string `json:"challenge" validate:"required"`
}

func (d *AuthRequestDoc) ArtifactType() ArtifactType { return TypeAuthRequest }

func (d *AuthRequestDoc) Validate() error {
	return runStructValidation(d)
}

// AuthResponseDoc is the payload of a BTP_AUTH_RES artifact.
type AuthResponseDoc struct {
	Response string `json:"response" validate:"required"`
}

func (d *AuthResponseDoc) ArtifactType() ArtifactType { return TypeAuthResponse }

func (d *AuthResponseDoc) Validate() error {
	return runStructValidation(d)
}

// QueryDoc is the payload of a BTP_QUERY artifact.
type QueryDoc struct {
	Query string         `json:"query" validate:"required"`
	Args  map[string]any `json:"args,omitempty"`
}

func (d *QueryDoc) ArtifactType() ArtifactType { return TypeQuery }

func (d *QueryDoc) Validate() error {
	return runStructValidation(d)
}

// DeliveryFailureDoc is the payload of a BTP_DELIVERY_FAILURE
// artifact, referencing the id of the artifact that failed delivery.
type DeliveryFailureDoc struct {
	ReferenceID string `json:"referenceId" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	Retryable   bool   `json:"retryable"`
}

func (d *DeliveryFailureDoc) ArtifactType() ArtifactType { return TypeDeliveryFailure }

func (d *DeliveryFailureDoc) Validate() error {
	return runStructValidation(d)
}

// Status is the `status` block of a ResponseDoc.
type Status struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code" validate:"required"`
	Message string `json:"message,omitempty"`
}

// ResponseDoc is the payload of a btps_response artifact.
type ResponseDoc struct {
	ReqID  string `json:"reqId,omitempty"`
	Status Status `json:"status"`
}

func (d *ResponseDoc) ArtifactType() ArtifactType { return TypeResponse }

func (d *ResponseDoc) Validate() error {
	return runStructValidation(d)
}

// ErrorDoc is the payload of a btps_error artifact.
type ErrorDoc struct {
	ReqID  string `json:"reqId,omitempty"`
	Status Status `json:"status"`
}

func (d *ErrorDoc) ArtifactType() ArtifactType { return TypeError }

func (d *ErrorDoc) Validate() error {
	if err := runStructValidation(d); err != nil {
		return err
	}
	if d.Status.OK {
		return btpserrors.NewFieldError("document.status.ok", "must be false for an error document")
	}
	return nil
}

// runStructValidation runs doc's `validate` struct tags through the
// package's shared Validator, wrapping any failure as a schema
// validation error the way the hand-rolled checks it replaced did.
func runStructValidation(doc any) error {
	if err := structValidator.Struct(doc); err != nil {
		return fmt.Errorf("document: %w: %w", btpserrors.ErrSchemaValidation, err)
	}
	return nil
}
