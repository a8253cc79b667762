package xml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/rezonia/nfse-ipm/internal/model"
	xmlparser "github.com/rezonia/nfse-ipm/internal/parser/xml"
)

func TestParseInvoiceResponse_Success(t *testing.T) {
	raw := `<?xml version="1.0" encoding="ISO-8859-1"?>
<retorno>
	<mensagem><codigo>[1] Sucesso</codigo></mensagem>
	<numero_nfse>4521</numero_nfse>
	<serie_nfse>1</serie_nfse>
	<data_nfse>15/10/2026</data_nfse>
	<hora_nfse>10:32:07</hora_nfse>
	<link_nfse>https://nfse.example/verificar?c=ABC</link_nfse>
	<cod_verificador_autenticidade>ABC123XYZ</cod_verificador_autenticidade>
</retorno>`

	resp, err := xmlparser.ParseInvoiceResponse([]byte(raw), "")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "[1] Sucesso", resp.Code)
	assert.Equal(t, "[1] Sucesso", resp.Message)
	assert.Equal(t, "4521", resp.Number)
	assert.Equal(t, "1", resp.Series)
	assert.Equal(t, "15/10/2026", resp.Date)
	assert.Equal(t, "10:32:07", resp.Time)
	assert.Equal(t, "https://nfse.example/verificar?c=ABC", resp.Link)
	assert.Equal(t, "ABC123XYZ", resp.VerificationCode)
}

func TestParseInvoiceResponse_SuccessWithoutOptionalFields(t *testing.T) {
	resp, err := xmlparser.ParseInvoiceResponse([]byte(`<retorno><mensagem><codigo>[1] Sucesso</codigo></mensagem></retorno>`), "")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Number)
	assert.Empty(t, resp.Link)
}

func TestParseInvoiceResponse_SuccessDetermination(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		success bool
	}{
		{"nested success", `<retorno><mensagem><codigo>[1] Sucesso</codigo></mensagem></retorno>`, true},
		{"flat code", `<retorno><codigo>[1] Sucesso</codigo></retorno>`, true},
		{"flat message", `<retorno><mensagem>[1] Sucesso</mensagem></retorno>`, true},
		{"zero", `<retorno><mensagem><codigo>[0] Erro</codigo></mensagem></retorno>`, false},
		{"two", `<retorno><mensagem><codigo>[2] Algo</codigo></mensagem></retorno>`, false},
		{"ten", `<retorno><mensagem><codigo>[10] Algo</codigo></mensagem></retorno>`, false},
		{"empty code", `<retorno><mensagem><codigo></codigo></mensagem></retorno>`, false},
		{"missing code", `<retorno><numero_nfse>1</numero_nfse></retorno>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := xmlparser.ParseInvoiceResponse([]byte(tt.raw), "")
			require.NoError(t, err)
			assert.Equal(t, tt.success, resp.Success)
		})
	}
}

func TestParseInvoiceResponse_FailureCarriesMessage(t *testing.T) {
	raw := `<retorno><mensagem><codigo>[2] Valor inválido</codigo></mensagem><numero_nfse>9</numero_nfse></retorno>`

	resp, err := xmlparser.ParseInvoiceResponse([]byte(raw), "")
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "[2] Valor inválido", resp.Message)
	assert.Empty(t, resp.Number, "invoice fields are only read on success")
}

func TestParseInvoiceResponse_MultipleCodes(t *testing.T) {
	raw := `<retorno><mensagem><codigo>[3] CNPJ inválido</codigo><codigo>[4] Alíquota inválida</codigo></mensagem></retorno>`

	resp, err := xmlparser.ParseInvoiceResponse([]byte(raw), "")
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "[3] CNPJ inválido", resp.Code)
	assert.Equal(t, "[3] CNPJ inválido\n[4] Alíquota inválida", resp.Message)
}

func TestParseInvoiceResponse_Latin1(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?><retorno><mensagem><codigo>[2] Alíquota inválida</codigo></mensagem></retorno>`
	raw, err := charmap.ISO8859_1.NewEncoder().String(doc)
	require.NoError(t, err)

	resp, err := xmlparser.ParseInvoiceResponse([]byte(raw), "")
	require.NoError(t, err)
	assert.Equal(t, "[2] Alíquota inválida", resp.Message)
}

func TestParseInvoiceResponse_Latin1FromHeader(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no prolog", `<retorno><mensagem><codigo>[2] Valor inválido</codigo></mensagem></retorno>`},
		{"prolog without encoding", `<?xml version="1.0"?><retorno><mensagem><codigo>[2] Valor inválido</codigo></mensagem></retorno>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := charmap.ISO8859_1.NewEncoder().String(tt.doc)
			require.NoError(t, err)

			resp, err := xmlparser.ParseInvoiceResponse([]byte(raw), "text/xml; charset=ISO-8859-1")
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, "[2] Valor inválido", resp.Message)
		})
	}
}

func TestParseInvoiceList_Latin1FromHeader(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(`<retorno><lista_nfse><numero_nfse>9</numero_nfse><observacao>Serviço</observacao></lista_nfse></retorno>`)
	require.NoError(t, err)

	list, err := xmlparser.ParseInvoiceList([]byte(raw), "text/xml; charset=ISO-8859-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Serviço", list[0].Fields["observacao"])
}

func TestParseInvoiceResponse_MissingRoot(t *testing.T) {
	_, err := xmlparser.ParseInvoiceResponse([]byte(`<resposta><codigo>[1] Sucesso</codigo></resposta>`), "")
	require.Error(t, err)

	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "invalid reply: missing root", perr.Message)
}

func TestParseInvoiceResponse_Malformed(t *testing.T) {
	_, err := xmlparser.ParseInvoiceResponse([]byte(`<html><body>Erro 500</body>`), "")

	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseInvoiceResponse_Empty(t *testing.T) {
	_, err := xmlparser.ParseInvoiceResponse(nil, "")

	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseInvoiceList_Array(t *testing.T) {
	raw := `<retorno>
	<mensagem><codigo>[1] Sucesso</codigo></mensagem>
	<lista_nfse><numero_nfse>10</numero_nfse><serie_nfse>1</serie_nfse><situacao>N</situacao></lista_nfse>
	<lista_nfse><numero_nfse>11</numero_nfse><serie_nfse>1</serie_nfse><situacao>C</situacao></lista_nfse>
</retorno>`

	list, err := xmlparser.ParseInvoiceList([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "10", list[0].Number)
	assert.Equal(t, "N", list[0].Fields["situacao"])
	assert.Equal(t, "11", list[1].Number)
	assert.Equal(t, "C", list[1].Fields["situacao"])
}

func TestParseInvoiceList_Singleton(t *testing.T) {
	raw := `<retorno><lista_nfse><numero_nfse>10</numero_nfse><link_nfse>https://x</link_nfse></lista_nfse></retorno>`

	list, err := xmlparser.ParseInvoiceList([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "10", list[0].Number)
	assert.Equal(t, "https://x", list[0].Link)
}

func TestParseInvoiceList_ContainerOfInvoices(t *testing.T) {
	raw := `<retorno><lista_nfse>
	<nfse><numero_nfse>1</numero_nfse><tomador><nome_razao_social>A</nome_razao_social></tomador></nfse>
	<nfse><numero_nfse>2</numero_nfse></nfse>
</lista_nfse></retorno>`

	list, err := xmlparser.ParseInvoiceList([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].Number)
	assert.Equal(t, "A", list[0].Fields["tomador.nome_razao_social"])
	assert.Equal(t, "2", list[1].Number)
}

func TestParseInvoiceList_SingleInvoiceIndicators(t *testing.T) {
	list, err := xmlparser.ParseInvoiceList([]byte(`<retorno><nfse><nf><numero_nfse>33</numero_nfse></nf></nfse></retorno>`), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "33", list[0].Number)
	assert.Equal(t, "33", list[0].Fields["nf.numero_nfse"])

	list, err = xmlparser.ParseInvoiceList([]byte(`<retorno><mensagem><codigo>[1] Sucesso</codigo></mensagem><numero_nfse>34</numero_nfse></retorno>`), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "34", list[0].Number)
	assert.NotContains(t, list[0].Fields, "mensagem.codigo")
}

func TestParseInvoiceList_Empty(t *testing.T) {
	list, err := xmlparser.ParseInvoiceList([]byte(`<retorno><mensagem><codigo>[1] Nenhuma nota</codigo></mensagem></retorno>`), "")
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list)
}

func TestParseInvoiceList_MissingRoot(t *testing.T) {
	_, err := xmlparser.ParseInvoiceList([]byte(`<lista_nfse/>`), "")

	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"SENHA incorreta", true},
		{"Usuário ou senha inválidos", true},
		{"Falha de AUTENTICAÇÃO", true},
		{"falha de autenticacao", true},
		{"Acesso NÃO AUTORIZADO", true},
		{"nao autorizado", true},
		{"Informe o Login", true},
		{"<retorno><mensagem><codigo>[1] Sucesso</codigo></mensagem></retorno>", false},
		{"<retorno><mensagem><codigo>[2] Valor inválido</codigo></mensagem></retorno>", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, xmlparser.IsAuthFailure(tt.text))
		})
	}
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"codigo inside mensagem", `<retorno><mensagem><codigo>[5] Falha</codigo></mensagem>`, "[5] Falha"},
		{"flat mensagem", `<mensagem>Serviço indisponível</mensagem>`, "Serviço indisponível"},
		{"erro tag", `<html><erro>Timeout interno</erro></html>`, "Timeout interno"},
		{"uppercase tags", `<ERRO>Falhou</ERRO>`, "Falhou"},
		{"nothing", `<html><body>Bad gateway</body></html>`, xmlparser.UnknownErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, xmlparser.ExtractErrorMessage(tt.text))
		})
	}
}

func TestDecodeText(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String("Autenticação")
	require.NoError(t, err)

	assert.Equal(t, "Autenticação", xmlparser.DecodeText([]byte(latin1), "text/html; charset=ISO-8859-1"))
	assert.Equal(t, "Autenticação", xmlparser.DecodeText([]byte(latin1), "text/xml"))
	assert.Equal(t, "Autenticação", xmlparser.DecodeText([]byte("Autenticação"), "text/xml"))
}
