package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_KnownTypes(t *testing.T) {
	types := []ArtifactType{
		TypeTrustRequest, TypeTrustResponse, TypeInvoice, TypeAuthRequest,
		TypeAuthResponse, TypeQuery, TypeDeliveryFailure, TypeResponse, TypeError,
	}
	for _, typ := range types {
		doc, err := NewDocument(typ)
		require.NoError(t, err, "type %q", typ)
		assert.Equal(t, typ, doc.ArtifactType())
	}
}

func TestNewDocument_UnknownTypeIsError(t *testing.T) {
	_, err := NewDocument(ArtifactType("NOT_A_TYPE"))
	assert.Error(t, err)
}

func TestDecodeDocument_TypeMismatchIsError(t *testing.T) {
	doc := &InvoiceDoc{
		InvoiceNumber: "INV-1",
		LineItems:     []LineItem{{Description: "widget", Quantity: 1, UnitPrice: "1.00"}},
		Currency:      "USD",
	}
	err := DecodeDocument(TypeAuthRequest, doc)
	assert.Error(t, err)
}

func TestDecodeDocument_RunsDocumentValidate(t *testing.T) {
	doc := &InvoiceDoc{InvoiceNumber: "", Currency: "USD"}
	err := DecodeDocument(TypeInvoice, doc)
	assert.Error(t, err)
}

func TestValidator_StructTagIdentity(t *testing.T) {
	type sample struct {
		From string `validate:"identity"`
	}
	v := NewValidator()

	assert.NoError(t, v.Struct(sample{From: "alice$example.org"}))
	assert.Error(t, v.Struct(sample{From: "not-an-identity"}))
}

func TestValidator_StructTagBTPVersion(t *testing.T) {
	type sample struct {
		Version string `validate:"btpversion"`
	}
	v := NewValidator()

	assert.NoError(t, v.Struct(sample{Version: "1.0.0"}))
	assert.Error(t, v.Struct(sample{Version: "v1"}))
}
