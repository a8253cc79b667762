package nfselib

import (
	"context"
	"sync"

	"github.com/rezonia/nfse-ipm/internal/webservice"
)

// Invoicer is the operation set of the webservice client
type Invoicer interface {
	Emit(ctx context.Context, req InvoiceRequest) (*InvoiceResponse, error)
	QueryByNumber(ctx context.Context, number string) (*InvoiceRecord, error)
	QueryByPeriod(ctx context.Context, start, end string) ([]InvoiceRecord, error)
	Cancel(ctx context.Context, number, reason string) (*InvoiceResponse, error)
}

var _ Invoicer = (*Client)(nil)

// Municipality holds the defaults of one IPM city
type Municipality struct {
	Name    string
	TOMCode string
	// URL overrides the datacenter endpoint for cities hosted elsewhere
	URL string
}

// NewClient creates a client from a full configuration
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	return webservice.New(cfg, opts...)
}

// NewMunicipalClient creates a client for one municipality. Credentials
// are always supplied by the caller.
func NewMunicipalClient(m Municipality, login, password string, opts ...Option) *Client {
	url := m.URL
	if url == "" {
		url = DatacenterURL
	}
	return webservice.New(ClientConfig{
		Login:         login,
		Password:      password,
		MunicipalCode: m.TOMCode,
		URL:           url,
	}, opts...)
}

// BatchResult is the outcome of one invoice of EmitBatch
type BatchResult struct {
	Identifier string
	Response   *InvoiceResponse
	Err        error
}

// EmitBatch issues several invoices concurrently, at most workers at a
// time. Results keep the order of reqs; one failure does not stop the
// others.
func EmitBatch(ctx context.Context, inv Invoicer, reqs []InvoiceRequest, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(reqs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, req InvoiceRequest) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = BatchResult{Identifier: req.Identifier, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			resp, err := inv.Emit(ctx, req)
			results[idx] = BatchResult{Identifier: req.Identifier, Response: resp, Err: err}
		}(i, req)
	}

	wg.Wait()
	return results
}
