package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PersonType identifies the kind of invoice recipient
type PersonType string

const (
	PersonIndividual PersonType = "F"
	PersonCompany    PersonType = "J"
	PersonForeign    PersonType = "E"
)

// Valid reports whether t is a known person type
func (t PersonType) Valid() bool {
	switch t {
	case PersonIndividual, PersonCompany, PersonForeign:
		return true
	}
	return false
}

// TaxSituation is the ISS tax situation code of a service item
type TaxSituation string

const (
	TaxFullyTaxed   TaxSituation = "0"
	TaxWithheld     TaxSituation = "1"
	TaxSubstitution TaxSituation = "2"
	TaxReducedBase  TaxSituation = "4"
	TaxExempt       TaxSituation = "6"
	TaxImmune       TaxSituation = "7"
)

// Valid reports whether s is one of the codes accepted by the webservice
func (s TaxSituation) Valid() bool {
	switch s {
	case TaxFullyTaxed, TaxWithheld, TaxSubstitution, TaxReducedBase, TaxExempt, TaxImmune:
		return true
	}
	return false
}

// InvoiceRequest is the unit of work for emitting one NFS-e
type InvoiceRequest struct {
	Identifier string        `json:"identifier"`
	Facts      InvoiceFacts  `json:"facts"`
	Provider   Provider      `json:"provider"`
	Recipient  Recipient     `json:"recipient"`
	Items      []ServiceItem `json:"items"`
	TestMode   bool          `json:"test_mode,omitempty"`
}

// InvoiceFacts holds the invoice-level values (<nf> block)
type InvoiceFacts struct {
	GenerationDate string          `json:"generation_date"` // DD/MM/YYYY
	TotalValue     decimal.Decimal `json:"total_value"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	Note           string          `json:"note,omitempty"`

	// Federal withholdings, emitted only when set
	IRValue                 decimal.NullDecimal `json:"ir_value"`
	INSSValue               decimal.NullDecimal `json:"inss_value"`
	SocialContributionValue decimal.NullDecimal `json:"social_contribution_value"`
	PISValue                decimal.NullDecimal `json:"pis_value"`
	COFINSValue             decimal.NullDecimal `json:"cofins_value"`
}

// Provider identifies the issuing taxpayer
type Provider struct {
	TaxpayerID    string `json:"taxpayer_id"`
	MunicipalCode string `json:"municipal_code"` // TOM code
}

// Recipient is the service taker (<tomador> block)
type Recipient struct {
	Type          PersonType `json:"type"`
	TaxpayerID    string     `json:"taxpayer_id"`
	LegalName     string     `json:"legal_name"`
	TradeName     string     `json:"trade_name,omitempty"`
	Street        string     `json:"street"`
	Number        string     `json:"number,omitempty"`
	Complement    string     `json:"complement,omitempty"`
	District      string     `json:"district,omitempty"`
	State         string     `json:"state,omitempty"`
	PostalCode    string     `json:"postal_code,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	MunicipalCode string     `json:"municipal_code"`
}

// ServiceItem is one <lista> entry of the invoice
type ServiceItem struct {
	TaxedInProviderCity bool                `json:"taxed_in_provider_city"`
	ServiceCode         string              `json:"service_code"` // LC 116/2003
	Description         string              `json:"description"`
	TaxRate             decimal.Decimal     `json:"tax_rate"`
	TaxSituation        TaxSituation        `json:"tax_situation"`
	TaxableValue        decimal.Decimal     `json:"taxable_value"`
	CNAE                string              `json:"cnae,omitempty"`
	MunicipalTaxCode    string              `json:"municipal_tax_code,omitempty"`
	Deduction           decimal.NullDecimal `json:"deduction"`
	ServiceLocationCode string              `json:"service_location_code,omitempty"`
}

// Period is an inclusive date range in DD/MM/YYYY
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// QueryRequest selects invoices either by number or by period
type QueryRequest struct {
	Provider Provider `json:"provider"`
	Number   string   `json:"number,omitempty"`
	Period   *Period  `json:"period,omitempty"`
}

// CancellationRequest asks the webservice to cancel an issued invoice
type CancellationRequest struct {
	Provider Provider `json:"provider"`
	Number   string   `json:"number"`
	Reason   string   `json:"reason"`
}

// InvoiceResponse is the decoded reply of an emission or cancellation.
// Number and the fields after it are only filled when Success is true.
type InvoiceResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	Code             string `json:"code"`
	Number           string `json:"numero_nfse,omitempty"`
	Series           string `json:"serie_nfse,omitempty"`
	Date             string `json:"data_nfse,omitempty"`
	Time             string `json:"hora_nfse,omitempty"`
	Link             string `json:"link_nfse,omitempty"`
	VerificationCode string `json:"cod_verificador_autenticidade,omitempty"`
}

// InvoiceRecord is one entry of a query reply
type InvoiceRecord struct {
	Number           string            `json:"numero_nfse,omitempty"`
	Series           string            `json:"serie_nfse,omitempty"`
	Date             string            `json:"data_nfse,omitempty"`
	Time             string            `json:"hora_nfse,omitempty"`
	Link             string            `json:"link_nfse,omitempty"`
	VerificationCode string            `json:"cod_verificador_autenticidade,omitempty"`
	Fields           map[string]string `json:"fields"`
}

// DefaultTimeout is the webservice round-trip limit
const DefaultTimeout = 60 * time.Second

// ClientConfig carries the credentials and endpoint of one webservice account
type ClientConfig struct {
	Login         string
	Password      string
	MunicipalCode string
	URL           string
	// XMLResponse requests XML replies (eletron=1). Nil means true.
	XMLResponse *bool
	Timeout     time.Duration
}

// WantsXML resolves the XMLResponse default
func (c ClientConfig) WantsXML() bool {
	return c.XMLResponse == nil || *c.XMLResponse
}

// EffectiveTimeout resolves the Timeout default
func (c ClientConfig) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// ProviderIdentity is the provider block derived from the account credentials
func (c ClientConfig) ProviderIdentity() Provider {
	return Provider{TaxpayerID: c.Login, MunicipalCode: c.MunicipalCode}
}

// Bool returns a pointer to b, for optional config flags
func Bool(b bool) *bool {
	return &b
}
