// Package webservice talks to the IPM/AtendeNet NFS-e webservice: it
// uploads generated documents as multipart forms and classifies what
// comes back.
package webservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rezonia/nfse-ipm/internal/generator"
	"github.com/rezonia/nfse-ipm/internal/model"
	xmlparser "github.com/rezonia/nfse-ipm/internal/parser/xml"
)

// DatacenterURL is the upload endpoint shared by IPM municipalities
const DatacenterURL = "https://sync.nfs-e.net/datacenter/include/nfw/importa_nfw/nfw_import_upload.php"

// DefaultMaxRedirects bounds how many redirects a request may follow
const DefaultMaxRedirects = 5

// Form layout expected by the webservice
const (
	FieldLogin       = "login"
	FieldPassword    = "senha"
	FieldCity        = "cidade"
	FieldFile        = "f1"
	AttachmentName   = "nfse.xml"
	AttachmentType   = "text/xml; charset=ISO-8859-1"
	xmlResponseParam = "eletron=1"
)

// Client issues, queries and cancels invoices for one account. It holds
// no per-call state and is safe for concurrent use.
type Client struct {
	cfg          model.ClientConfig
	http         *http.Client
	logger       *logrus.Logger
	maxRedirects int
	timeoutSet   bool
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is
// copied; its Timeout and CheckRedirect are filled in when left unset,
// and WithTimeout overrides its Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the round-trip limit (default 60s). It takes
// precedence over the Timeout of a client given to WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.cfg.Timeout = timeout
		c.timeoutSet = true
	}
}

// WithLogger sets the logger used for request lifecycle entries
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxRedirects bounds redirect following
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// New creates a client for cfg
func New(cfg model.ClientConfig, opts ...Option) *Client {
	if cfg.XMLResponse == nil {
		cfg.XMLResponse = model.Bool(true)
	}

	c := &Client{
		cfg:          cfg,
		logger:       logrus.StandardLogger(),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}

	var hc http.Client
	if c.http != nil {
		hc = *c.http
	}
	if c.timeoutSet || hc.Timeout == 0 {
		hc.Timeout = c.cfg.EffectiveTimeout()
	}
	if hc.CheckRedirect == nil {
		hc.CheckRedirect = c.checkRedirect
	}
	c.http = &hc

	return c
}

// Config returns a copy of the client configuration
func (c *Client) Config() model.ClientConfig {
	return c.cfg
}

// Endpoint is the URL requests are posted to
func (c *Client) Endpoint() string {
	if !c.cfg.WantsXML() {
		return c.cfg.URL
	}
	sep := "?"
	if strings.Contains(c.cfg.URL, "?") {
		sep = "&"
	}
	return c.cfg.URL + sep + xmlResponseParam
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= c.maxRedirects {
		return fmt.Errorf("stopped after %d redirects", c.maxRedirects)
	}
	return nil
}

// Emit validates and submits one invoice
func (c *Client) Emit(ctx context.Context, req model.InvoiceRequest) (*model.InvoiceResponse, error) {
	doc, err := generator.GenerateInvoiceXML(req)
	if err != nil {
		return nil, err
	}

	rep, err := c.send(ctx, "emit", doc)
	if err != nil {
		return nil, err
	}
	return c.decodeResult(rep)
}

// QueryByNumber fetches a single invoice of the account
func (c *Client) QueryByNumber(ctx context.Context, number string) (*model.InvoiceRecord, error) {
	doc, err := generator.GenerateQueryXML(model.QueryRequest{
		Provider: c.cfg.ProviderIdentity(),
		Number:   number,
	})
	if err != nil {
		return nil, err
	}

	rep, err := c.send(ctx, "query_number", doc)
	if err != nil {
		return nil, err
	}

	list, err := c.decodeList(rep)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &model.NotFoundError{Number: number}
	}
	return &list[0], nil
}

// QueryByPeriod lists the invoices issued between start and end
// (DD/MM/YYYY). An empty result is not an error.
func (c *Client) QueryByPeriod(ctx context.Context, start, end string) ([]model.InvoiceRecord, error) {
	doc, err := generator.GenerateQueryXML(model.QueryRequest{
		Provider: c.cfg.ProviderIdentity(),
		Period:   &model.Period{Start: start, End: end},
	})
	if err != nil {
		return nil, err
	}

	rep, err := c.send(ctx, "query_period", doc)
	if err != nil {
		return nil, err
	}
	return c.decodeList(rep)
}

// Cancel asks the webservice to cancel an issued invoice
func (c *Client) Cancel(ctx context.Context, number, reason string) (*model.InvoiceResponse, error) {
	doc, err := generator.GenerateCancellationXML(model.CancellationRequest{
		Provider: c.cfg.ProviderIdentity(),
		Number:   number,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}

	rep, err := c.send(ctx, "cancel", doc)
	if err != nil {
		return nil, err
	}
	return c.decodeResult(rep)
}

// reply is a received body that passed the content type guard
type reply struct {
	raw         []byte
	text        string
	contentType string
}

// decodeResult runs the authentication scan before structured parsing,
// since login failure pages are usually not well-formed XML
func (c *Client) decodeResult(rep *reply) (*model.InvoiceResponse, error) {
	if xmlparser.IsAuthFailure(rep.text) {
		return nil, &model.AuthError{}
	}

	resp, err := xmlparser.ParseInvoiceResponse(rep.raw, rep.contentType)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = xmlparser.ExtractErrorMessage(rep.text)
		}
		return nil, model.NewBusinessError(resp.Code, message)
	}
	return resp, nil
}

func (c *Client) decodeList(rep *reply) ([]model.InvoiceRecord, error) {
	if xmlparser.IsAuthFailure(rep.text) {
		return nil, &model.AuthError{}
	}
	return xmlparser.ParseInvoiceList(rep.raw, rep.contentType)
}

// buildForm lays out the credentials and the document as the webservice
// expects: plain fields plus the XML as an uploaded file
func (c *Client) buildForm(doc string) (*bytes.Buffer, string, error) {
	payload, err := generator.Encode(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request as ISO-8859-1: %w", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := []struct{ name, value string }{
		{FieldLogin, c.cfg.Login},
		{FieldPassword, c.cfg.Password},
		{FieldCity, c.cfg.MunicipalCode},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldFile, AttachmentName))
	h.Set("Content-Type", AttachmentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return body, mw.FormDataContentType(), nil
}

// send posts doc and returns the body of any reply, whatever its status
func (c *Client) send(ctx context.Context, op, doc string) (*reply, error) {
	body, contentType, err := c.buildForm(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return nil, model.NewTransportError(model.TransportNetwork, err)
	}
	req.Header.Set("Content-Type", contentType)

	log := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"url":       c.cfg.URL,
	})
	log.Debug("sending request to NFS-e webservice")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		terr := classify(err)
		log.WithFields(logrus.Fields{
			"kind":    terr.Kind,
			"elapsed": time.Since(start),
		}).WithError(err).Debug("webservice request failed")
		return nil, terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{
			Kind:       model.TransportHTTPStatus,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Cause:      err,
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 && resp.StatusCode >= http.StatusBadRequest {
		return nil, &model.TransportError{
			Kind:       model.TransportHTTPStatus,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	replyType := resp.Header.Get("Content-Type")
	log.WithFields(logrus.Fields{
		"status":       resp.StatusCode,
		"content_type": replyType,
		"bytes":        len(raw),
		"elapsed":      time.Since(start),
	}).Debug("webservice replied")

	lower := strings.ToLower(replyType)
	if !strings.Contains(lower, "xml") && !strings.Contains(lower, "text") {
		return nil, &model.ProtocolError{ContentType: replyType}
	}

	return &reply{raw: raw, text: xmlparser.DecodeText(raw, replyType), contentType: replyType}, nil
}

// classify maps an error from http.Client.Do to a transport error kind
func classify(err error) *model.TransportError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return model.NewTransportError(model.TransportTimeout, err)
	case errors.Is(err, context.Canceled):
		return model.NewTransportError(model.TransportNetwork, err)
	case noResponse(err):
		return model.NewTransportError(model.TransportNoResponse, err)
	}
	return model.NewTransportError(model.TransportNetwork, err)
}

// noResponse reports failures where the request never got an answer:
// refused or reset connections, DNS failures, connections closed early
func noResponse(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
