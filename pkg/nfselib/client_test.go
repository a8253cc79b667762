package nfselib_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfse-ipm/pkg/nfselib"
)

func TestNewMunicipalClient(t *testing.T) {
	client := nfselib.NewMunicipalClient(nfselib.Municipality{Name: "Exemplo", TOMCode: "8357"}, "12345678000199", "secret")
	require.NotNil(t, client)

	cfg := client.Config()
	assert.Equal(t, "8357", cfg.MunicipalCode)
	assert.Equal(t, "12345678000199", cfg.Login)
	assert.Equal(t, nfselib.DatacenterURL, cfg.URL)
	assert.True(t, cfg.WantsXML())
	assert.Equal(t, nfselib.DatacenterURL+"?eletron=1", client.Endpoint())
}

func TestNewMunicipalClient_CustomURL(t *testing.T) {
	client := nfselib.NewMunicipalClient(nfselib.Municipality{TOMCode: "1", URL: "https://ws.example/upload.php?city=1"}, "a", "b")
	assert.Equal(t, "https://ws.example/upload.php?city=1&eletron=1", client.Endpoint())
}

// countingInvoicer fails every identifier in fail and tracks concurrency
type countingInvoicer struct {
	nfselib.Invoicer
	fail    map[string]bool
	active  int32
	maxSeen int32
	mu      sync.Mutex
}

func (c *countingInvoicer) Emit(ctx context.Context, req nfselib.InvoiceRequest) (*nfselib.InvoiceResponse, error) {
	n := atomic.AddInt32(&c.active, 1)
	defer atomic.AddInt32(&c.active, -1)

	c.mu.Lock()
	if n > c.maxSeen {
		c.maxSeen = n
	}
	c.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	if c.fail[req.Identifier] {
		return nil, nfselib.NewBusinessError("[2]", "[2] rejected")
	}
	return &nfselib.InvoiceResponse{Success: true, Number: req.Identifier}, nil
}

func TestEmitBatch(t *testing.T) {
	inv := &countingInvoicer{fail: map[string]bool{"b": true}}
	reqs := []nfselib.InvoiceRequest{{Identifier: "a"}, {Identifier: "b"}, {Identifier: "c"}, {Identifier: "d"}}

	results := nfselib.EmitBatch(context.Background(), inv, reqs, 2)

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, reqs[i].Identifier, r.Identifier)
	}
	assert.Equal(t, "a", results[0].Response.Number)
	var be *nfselib.BusinessError
	assert.True(t, errors.As(results[1].Err, &be))
	assert.NoError(t, results[3].Err)
	assert.LessOrEqual(t, inv.maxSeen, int32(2))
}

func TestEmitBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &countingInvoicer{}
	results := nfselib.EmitBatch(ctx, inv, []nfselib.InvoiceRequest{{Identifier: "a"}}, 0)

	require.Len(t, results, 1)
	// the semaphore may still win the race against ctx.Done
	if results[0].Err != nil {
		assert.ErrorIs(t, results[0].Err, context.Canceled)
	}
}
