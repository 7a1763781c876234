package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// structValidator is the package-wide instance every Validate method
// below runs `validate` struct tags through, so the registered
// "identity"/"btpversion" tags and go-playground/validator's built-ins
// (required, oneof, datetime, gt, dive, ...) are the actual schema
// validator exercised by the pipeline, not a parallel, unused one.
var structValidator = NewValidator()

// Validator wraps go-playground/validator with BTPS-specific custom
// tags, mirroring the teacher's domain.Validator shape.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the "identity" and "btpversion" custom tags
// and returns a ready-to-use Validator.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("identity", validateIdentityTag)
	_ = v.RegisterValidation("btpversion", validateVersionTag)
	return &Validator{validate: v}
}

// Struct validates s against its `validate` struct tags.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}
	return nil
}

func validateIdentityTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true // "required" tag handles emptiness separately
	}
	_, err := ParseIdentity(s)
	return err == nil
}

func validateVersionTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return versionPattern.MatchString(s)
}

// DecodeDocument validates the envelope's Type and dispatches to the
// matching Document implementation's own Validate, realizing the
// closed-variant decoder described in spec §9 / SPEC_FULL.md §4.4.
// raw must already be unmarshaled into the concrete *XxxDoc the caller
// expects for typ; DecodeDocument only checks the type/value pairing
// and runs the document's own Validate.
func DecodeDocument(typ ArtifactType, raw Document) error {
	if raw == nil {
		return fmt.Errorf("document: nil payload for type %q", typ)
	}
	if raw.ArtifactType() != typ {
		return fmt.Errorf("document: type mismatch: envelope says %q, payload is %q", typ, raw.ArtifactType())
	}
	return raw.Validate()
}

// NewDocument returns a zero-valued Document implementation for typ,
// suitable as a json.Unmarshal target before calling DecodeDocument.
func NewDocument(typ ArtifactType) (Document, error) {
	switch typ {
	case TypeTrustRequest:
		return &TrustRequestDoc{}, nil
	case TypeTrustResponse:
		return &TrustResponseDoc{}, nil
	case TypeInvoice:
		return &InvoiceDoc{}, nil
	case TypeAuthRequest:
		return &AuthRequestDoc{}, nil
	case TypeAuthResponse:
		return &AuthResponseDoc{}, nil
	case TypeQuery:
		return &QueryDoc{}, nil
	case TypeDeliveryFailure:
		return &DeliveryFailureDoc{}, nil
	case TypeResponse:
		return &ResponseDoc{}, nil
	case TypeError:
		return &ErrorDoc{}, nil
	default:
		return nil, fmt.Errorf("document: unknown artifact type %q", typ)
	}
}
