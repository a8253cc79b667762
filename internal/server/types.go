package server

import (
	"github.com/rezonia/nfse-ipm/internal/model"
)

// CancelRequest is the body of the cancel endpoint
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListResponse is the response of the period query endpoint
type ListResponse struct {
	Count    int                   `json:"count"`
	Invoices []model.InvoiceRecord `json:"invoices"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
