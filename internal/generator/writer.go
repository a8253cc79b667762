package generator

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	money "github.com/rezonia/nfse-ipm/internal/decimal"
)

// Prolog is the XML declaration of every request document
const Prolog = `<?xml version="1.0" encoding="ISO-8859-1"?>`

// Escape replaces the five XML metacharacters with entities. Runes that
// ISO-8859-1 cannot carry become numeric character references and
// characters XML forbids are dropped.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r == '\'':
			b.WriteString("&apos;")
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
		case r == 0xFFFE || r == 0xFFFF:
		case r > 0xFF:
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(r)))
			b.WriteByte(';')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OnlyDigits removes every non-digit character
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Encode transcodes a generated document to the ISO-8859-1 bytes its
// prolog declares
func Encode(doc string) ([]byte, error) {
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(doc))
}

// writer accumulates one request document in field order
type writer struct {
	b strings.Builder
}

func newWriter() *writer {
	w := &writer{}
	w.b.WriteString(Prolog)
	return w
}

func (w *writer) open(tag string) {
	w.b.WriteString("<" + tag + ">")
}

func (w *writer) close(tag string) {
	w.b.WriteString("</" + tag + ">")
}

// field always emits the tag, even when value is empty
func (w *writer) field(tag, value string) {
	w.open(tag)
	w.b.WriteString(Escape(value))
	w.close(tag)
}

// optional emits the tag only when value is non-blank
func (w *writer) optional(tag, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	w.field(tag, value)
}

func (w *writer) amount(tag string, d decimal.Decimal) {
	w.field(tag, money.Format(d))
}

func (w *writer) optionalAmount(tag string, d decimal.NullDecimal) {
	if s, ok := money.FormatOptional(d); ok {
		w.field(tag, s)
	}
}

func (w *writer) String() string {
	return w.b.String()
}
