// Package nfselib provides a public API for the IPM/AtendeNet NFS-e
// webservice.
//
// It exposes the request and reply types, the classified errors and a
// client that issues, queries and cancels service invoices.
//
// Example usage:
//
//	client := nfselib.NewMunicipalClient(nfselib.Municipality{
//	    Name:    "Exemplo",
//	    TOMCode: "8357",
//	}, "12345678000199", password)
//	resp, err := client.Emit(ctx, req)
//	if err != nil {
//	    var be *nfselib.BusinessError
//	    if errors.As(err, &be) {
//	        log.Printf("rejected: %s", be.Message)
//	    }
//	}
//	fmt.Println(resp.Number, resp.Link)
package nfselib

import (
	"github.com/rezonia/nfse-ipm/internal/model"
	"github.com/rezonia/nfse-ipm/internal/parser/xml"
	"github.com/rezonia/nfse-ipm/internal/webservice"
)

// Re-export core types for public API
type (
	InvoiceRequest      = model.InvoiceRequest
	InvoiceFacts        = model.InvoiceFacts
	Provider            = model.Provider
	Recipient           = model.Recipient
	ServiceItem         = model.ServiceItem
	PersonType          = model.PersonType
	TaxSituation        = model.TaxSituation
	QueryRequest        = model.QueryRequest
	Period              = model.Period
	CancellationRequest = model.CancellationRequest
	InvoiceResponse     = model.InvoiceResponse
	InvoiceRecord       = model.InvoiceRecord
	ClientConfig        = model.ClientConfig
	Client              = webservice.Client
	Option              = webservice.Option
)

// Re-export person types
const (
	PersonIndividual = model.PersonIndividual
	PersonCompany    = model.PersonCompany
	PersonForeign    = model.PersonForeign
)

// Re-export tax situations
const (
	TaxFullyTaxed   = model.TaxFullyTaxed
	TaxWithheld     = model.TaxWithheld
	TaxSubstitution = model.TaxSubstitution
	TaxReducedBase  = model.TaxReducedBase
	TaxExempt       = model.TaxExempt
	TaxImmune       = model.TaxImmune
)

// Re-export error types
type (
	ValidationError = model.ValidationError
	TransportError  = model.TransportError
	TransportKind   = model.TransportKind
	ProtocolError   = model.ProtocolError
	AuthError       = model.AuthError
	BusinessError   = model.BusinessError
	ParseError      = model.ParseError
	NotFoundError   = model.NotFoundError
)

// Re-export transport kinds and sentinels
const (
	TransportTimeout    = model.TransportTimeout
	TransportHTTPStatus = model.TransportHTTPStatus
	TransportNoResponse = model.TransportNoResponse
	TransportNetwork    = model.TransportNetwork
)

var (
	ErrTimeout    = model.ErrTimeout
	ErrNoResponse = model.ErrNoResponse

	// IsRetryable reports whether an error is worth retrying unchanged
	IsRetryable = model.IsRetryable

	NewValidationError = model.NewValidationError
	NewBusinessError   = model.NewBusinessError

	// ParseInvoiceResponse and ParseInvoiceList decode raw replies, for
	// callers that keep webservice replies around
	ParseInvoiceResponse = xml.ParseInvoiceResponse
	ParseInvoiceList     = xml.ParseInvoiceList
)

// Re-export client options
var (
	WithHTTPClient   = webservice.WithHTTPClient
	WithTimeout      = webservice.WithTimeout
	WithLogger       = webservice.WithLogger
	WithMaxRedirects = webservice.WithMaxRedirects
)

// DatacenterURL is the upload endpoint shared by IPM municipalities
const DatacenterURL = webservice.DatacenterURL
