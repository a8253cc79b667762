package xml

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/rezonia/nfse-ipm/internal/model"
)

// SuccessMarker prefixes the code of every accepted request
const SuccessMarker = "[1]"

// UnknownErrorMessage is returned when no message can be recovered from a reply
const UnknownErrorMessage = "unknown error returned by the NFS-e webservice"

const rootTag = "retorno"

// readReply parses raw into a document rooted at <retorno>. A prolog
// encoding wins; without one the body is decoded by the charset of
// contentType first.
func readReply(raw []byte, contentType string) (*etree.Element, error) {
	if !declaresEncoding(raw) {
		raw = []byte(DecodeText(raw, contentType))
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(bytes.TrimSpace(raw)); err != nil {
		return nil, model.NewParseError("malformed XML", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != rootTag {
		return nil, model.NewParseError("invalid reply: missing root", nil)
	}
	return root, nil
}

// declaresEncoding reports whether raw opens with an XML declaration
// that names its encoding
func declaresEncoding(raw []byte) bool {
	raw = bytes.TrimLeft(raw, "\ufeff \t\r\n")
	if !bytes.HasPrefix(raw, []byte("<?xml")) {
		return false
	}
	end := bytes.Index(raw, []byte("?>"))
	if end < 0 {
		return false
	}
	return bytes.Contains(raw[:end], []byte("encoding"))
}

// textOf returns the trimmed text of el whether the value is a plain text
// node or wrapped one level down in a child element. Nil yields "".
func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	if s := strings.TrimSpace(el.Text()); s != "" {
		return s
	}
	if children := el.ChildElements(); len(children) == 1 {
		return strings.TrimSpace(children[0].Text())
	}
	return ""
}

func field(parent *etree.Element, tag string) string {
	return textOf(parent.SelectElement(tag))
}

// status extracts the code and message of a reply. The code may come as
// <mensagem><codigo>..</codigo></mensagem> (possibly repeated), as a bare
// <codigo> under the root, or as flat <mensagem> text.
func status(root *etree.Element) (code, message string) {
	var codes []string
	for _, m := range root.SelectElements("mensagem") {
		for _, c := range m.SelectElements("codigo") {
			if s := textOf(c); s != "" {
				codes = append(codes, s)
			}
		}
	}
	for _, c := range root.SelectElements("codigo") {
		if s := textOf(c); s != "" {
			codes = append(codes, s)
		}
	}
	if len(codes) > 0 {
		return codes[0], strings.Join(codes, "\n")
	}

	flat := textOf(root.SelectElement("mensagem"))
	return flat, flat
}

// ParseInvoiceResponse decodes the reply to an emission or cancellation.
// Success is decided only by the [1] prefix of the code. contentType is
// the Content-Type header of the reply and may be empty.
func ParseInvoiceResponse(raw []byte, contentType string) (*model.InvoiceResponse, error) {
	root, err := readReply(raw, contentType)
	if err != nil {
		return nil, err
	}

	code, message := status(root)
	resp := &model.InvoiceResponse{
		Success: strings.HasPrefix(code, SuccessMarker),
		Code:    code,
		Message: message,
	}
	if !resp.Success {
		return resp, nil
	}

	resp.Number = field(root, "numero_nfse")
	resp.Series = field(root, "serie_nfse")
	resp.Date = field(root, "data_nfse")
	resp.Time = field(root, "hora_nfse")
	resp.Link = field(root, "link_nfse")
	resp.VerificationCode = field(root, "cod_verificador_autenticidade")
	return resp, nil
}

// ParseInvoiceList decodes the reply to a query. It never returns a nil
// slice: an empty result means no invoice matched.
func ParseInvoiceList(raw []byte, contentType string) ([]model.InvoiceRecord, error) {
	root, err := readReply(raw, contentType)
	if err != nil {
		return nil, err
	}

	if entries := root.SelectElements("lista_nfse"); len(entries) > 0 {
		records := make([]model.InvoiceRecord, 0, len(entries))
		for _, e := range entries {
			// a container wrapping several <nfse> children
			if inner := e.SelectElements("nfse"); len(inner) > 0 {
				for _, n := range inner {
					records = append(records, toRecord(n))
				}
				continue
			}
			records = append(records, toRecord(e))
		}
		return records, nil
	}

	if single := root.SelectElement("nfse"); single != nil {
		return []model.InvoiceRecord{toRecord(single)}, nil
	}
	if root.SelectElement("numero_nfse") != nil {
		return []model.InvoiceRecord{toRecord(root)}, nil
	}
	return []model.InvoiceRecord{}, nil
}

func toRecord(el *etree.Element) model.InvoiceRecord {
	fields := make(map[string]string)
	flatten(el, "", fields)

	get := func(key string) string {
		if v, ok := fields[key]; ok {
			return v
		}
		return findLeaf(el, key)
	}

	return model.InvoiceRecord{
		Number:           get("numero_nfse"),
		Series:           get("serie_nfse"),
		Date:             get("data_nfse"),
		Time:             get("hora_nfse"),
		Link:             get("link_nfse"),
		VerificationCode: get("cod_verificador_autenticidade"),
		Fields:           fields,
	}
}

// flatten stores every leaf under el keyed by its dotted path. The status
// block of the reply is not part of an invoice.
func flatten(el *etree.Element, prefix string, out map[string]string) {
	for _, child := range el.ChildElements() {
		if prefix == "" && child.Tag == "mensagem" {
			continue
		}
		key := child.Tag
		if prefix != "" {
			key = prefix + "." + child.Tag
		}
		if len(child.ChildElements()) == 0 {
			if _, dup := out[key]; !dup {
				out[key] = strings.TrimSpace(child.Text())
			}
			continue
		}
		flatten(child, key, out)
	}
}

// findLeaf looks for tag at any depth below el
func findLeaf(el *etree.Element, tag string) string {
	return textOf(el.FindElement(".//" + tag))
}

var authMarkers = []string{
	"login",
	"senha",
	"autenticação",
	"autenticacao",
	"não autorizado",
	"nao autorizado",
}

// IsAuthFailure reports whether a raw reply looks like a rejected login.
// The check is a case-insensitive substring scan, so any reply that merely
// mentions one of the markers (for example an echoed note containing
// "login") is classified as an authentication failure too.
func IsAuthFailure(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var (
	messageRegex = regexp.MustCompile(`(?is)<(?:mensagem|codigo)>([^<]*)</(?:mensagem|codigo)>`)
	errorRegex   = regexp.MustCompile(`(?is)<erro>([^<]*)</erro>`)
)

// ExtractErrorMessage digs a human-readable hint out of a reply that may
// not be well-formed XML. It is lossy by nature.
func ExtractErrorMessage(text string) string {
	for _, re := range []*regexp.Regexp{messageRegex, errorRegex} {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			if s := strings.TrimSpace(m[1]); s != "" {
				return s
			}
		}
	}
	return UnknownErrorMessage
}

// DecodeText converts a raw reply body to UTF-8 using the BOM, the
// declared charset of contentType or, failing both, content sniffing.
func DecodeText(raw []byte, contentType string) string {
	enc, _, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && utf8.Valid(raw) {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
