// Package generator builds the request documents of the IPM NFS-e
// webservice: emission, query and cancellation.
package generator

import (
	"errors"
	"fmt"
	"strings"

	money "github.com/rezonia/nfse-ipm/internal/decimal"
	"github.com/rezonia/nfse-ipm/internal/model"
)

// Validate collects every rule req violates. A nil result means valid.
func Validate(req model.InvoiceRequest) []string {
	var violations []string
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if blank(req.Identifier) {
		violations = append(violations, "identifier is required")
	}
	if blank(req.Facts.GenerationDate) {
		violations = append(violations, "facts.generation_date is required")
	}
	if !money.IsPositive(req.Facts.TotalValue) {
		violations = append(violations, "facts.total_value must be greater than zero")
	}
	if blank(req.Provider.TaxpayerID) {
		violations = append(violations, "provider.taxpayer_id is required")
	}
	if blank(req.Provider.MunicipalCode) {
		violations = append(violations, "provider.municipal_code is required")
	}
	if blank(req.Recipient.TaxpayerID) {
		violations = append(violations, "recipient.taxpayer_id is required")
	}
	if blank(req.Recipient.LegalName) {
		violations = append(violations, "recipient.legal_name is required")
	}
	if blank(req.Recipient.MunicipalCode) {
		violations = append(violations, "recipient.municipal_code is required")
	}
	if len(req.Items) == 0 {
		violations = append(violations, "items must contain at least one service item")
	}
	for i, item := range req.Items {
		if blank(item.ServiceCode) {
			violations = append(violations, fmt.Sprintf("items[%d].service_code is required", i))
		}
		if blank(item.Description) {
			violations = append(violations, fmt.Sprintf("items[%d].description is required", i))
		}
		if !money.IsPositive(item.TaxableValue) {
			violations = append(violations, fmt.Sprintf("items[%d].taxable_value must be greater than zero", i))
		}
	}

	return violations
}

// GenerateInvoiceXML validates req and renders the emission document.
// All violations are reported together in one *model.ValidationError.
// Text goes through Escape, so control characters other than tab, CR and
// LF, and the noncharacters U+FFFE/U+FFFF, are removed from the output.
func GenerateInvoiceXML(req model.InvoiceRequest) (string, error) {
	if violations := Validate(req); len(violations) > 0 {
		return "", model.NewValidationError(violations)
	}

	w := newWriter()
	w.open("nfse")
	if req.TestMode {
		w.field("nfse_teste", "1")
	}
	w.field("identificador", req.Identifier)

	writeFacts(w, req.Facts)
	writeProvider(w, req.Provider)
	writeRecipient(w, req.Recipient)

	w.open("itens")
	for _, item := range req.Items {
		writeItem(w, item)
	}
	w.close("itens")

	w.close("nfse")
	return w.String(), nil
}

func writeFacts(w *writer, f model.InvoiceFacts) {
	w.open("nf")
	w.field("data_fato_gerador", f.GenerationDate)
	w.amount("valor_total", f.TotalValue)
	w.amount("valor_desconto", f.DiscountValue)
	w.optionalAmount("valor_ir", f.IRValue)
	w.optionalAmount("valor_inss", f.INSSValue)
	w.optionalAmount("valor_contribuicao_social", f.SocialContributionValue)
	w.optionalAmount("valor_pis", f.PISValue)
	w.optionalAmount("valor_cofins", f.COFINSValue)
	w.optional("observacao", f.Note)
	w.close("nf")
}

func writeProvider(w *writer, p model.Provider) {
	w.open("prestador")
	w.field("cpfcnpj", OnlyDigits(p.TaxpayerID))
	w.field("cidade", p.MunicipalCode)
	w.close("prestador")
}

func writeRecipient(w *writer, r model.Recipient) {
	w.open("tomador")
	w.field("tipo", string(r.Type))
	w.field("cpfcnpj", OnlyDigits(r.TaxpayerID))
	w.field("nome_razao_social", r.LegalName)
	w.optional("sobrenome_nome_fantasia", r.TradeName)
	w.field("logradouro", r.Street)
	w.optional("email", r.Email)
	w.optional("numero_residencia", r.Number)
	w.optional("complemento", r.Complement)
	w.optional("bairro", r.District)
	w.field("cidade", r.MunicipalCode)
	w.optional("cep", OnlyDigits(r.PostalCode))
	w.optional("estado", r.State)
	if phone := OnlyDigits(r.Phone); phone != "" {
		// Brazilian numbers carry a two-digit area code in front
		if len(phone) >= 10 {
			w.field("ddd_fone_comercial", phone[:2])
			phone = phone[2:]
		}
		w.field("fone_comercial", phone)
	}
	w.close("tomador")
}

func writeItem(w *writer, item model.ServiceItem) {
	w.open("lista")
	if item.TaxedInProviderCity {
		w.field("tributa_municipio_prestador", "S")
	} else {
		w.field("tributa_municipio_prestador", "N")
	}
	w.optional("codigo_local_prestacao_servico", item.ServiceLocationCode)
	w.field("codigo_item_lista_servico", item.ServiceCode)
	w.field("descritivo", item.Description)
	w.amount("aliquota_item_lista_servico", item.TaxRate)
	w.field("situacao_tributaria", string(item.TaxSituation))
	w.amount("valor_tributavel", item.TaxableValue)
	w.optional("cnae", item.CNAE)
	w.optional("codigo_tributacao_municipio", item.MunicipalTaxCode)
	w.optionalAmount("deducao", item.Deduction)
	w.close("lista")
}

// ErrQueryMode is returned when a query names neither or both of a
// number and a period
var ErrQueryMode = errors.New("query needs either an invoice number or a period, not both")

// GenerateQueryXML renders a query by number or by period
func GenerateQueryXML(q model.QueryRequest) (string, error) {
	byNumber := strings.TrimSpace(q.Number) != ""
	if byNumber == (q.Period != nil) {
		return "", ErrQueryMode
	}

	if !byNumber && (strings.TrimSpace(q.Period.Start) == "" || strings.TrimSpace(q.Period.End) == "") {
		return "", model.NewValidationError([]string{"period needs both a start and an end date"})
	}

	w := newWriter()
	w.open("nfse")
	writeProvider(w, q.Provider)
	if byNumber {
		w.field("numero_nfse", q.Number)
	} else {
		w.field("data_inicial", q.Period.Start)
		w.field("data_final", q.Period.End)
	}
	w.close("nfse")
	return w.String(), nil
}

// GenerateCancellationXML renders a cancellation. The invoice number and
// the reason are checked before anything is built.
func GenerateCancellationXML(c model.CancellationRequest) (string, error) {
	var violations []string
	if strings.TrimSpace(c.Number) == "" {
		violations = append(violations, "number is required to cancel an invoice")
	}
	if strings.TrimSpace(c.Reason) == "" {
		violations = append(violations, "reason is required to cancel an invoice")
	}
	if len(violations) > 0 {
		return "", model.NewValidationError(violations)
	}

	w := newWriter()
	w.open("nfse")
	writeProvider(w, c.Provider)
	w.field("numero_nfse", c.Number)
	w.field("motivo_cancelamento", c.Reason)
	w.close("nfse")
	return w.String(), nil
}
