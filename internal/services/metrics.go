package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "spendify/internal/errors"
)

// Ledger outcome labels.
const (
	outcomeOK                = "ok"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomeRejected          = "rejected"
	outcomeError             = "error"
)

var ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spendify_ledger_operations_total",
	Help: "Balance-changing operations, labeled by operation and outcome",
}, []string{"operation", "outcome"})

// observeLedger counts one finished ledger operation.
func observeLedger(operation string, err error) {
	ledgerOperations.WithLabelValues(operation, ledgerOutcome(err)).Inc()
}

func ledgerOutcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return outcomeError
	}
	switch {
	case appErr.Code == apperrors.ErrInsufficientFunds.Code:
		return outcomeInsufficientFunds
	case appErr.StatusCode >= 500:
		return outcomeError
	default:
		return outcomeRejected
	}
}
