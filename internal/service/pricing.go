package service

import (
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

// Totals call paths, used as metric labels.
const (
	pathCreate   = "create"
	pathUpdate   = "update"
	pathCheckout = "checkout"
	pathPreview  = "preview"
)

// splitItems returns the lines for every item and the subset of items that
// are real products. Synthetic charge lines are never persisted.
func splitItems(calc *pricing.Calculator, items []models.OrderItem) ([]pricing.Line, []models.OrderItem) {
	lines := make([]pricing.Line, 0, len(items))
	real := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		item.Name = trimName(item.Name)
		lines = append(lines, item.Line())
		if !calc.Vocabulary().IsCharge(item.Name) {
			real = append(real, item)
		}
	}

	return lines, real
}

// recordTotals exports what a calculation did.
func recordTotals(logger *logging.LoggerV2, path string, t pricing.Totals) {
	metrics.TotalsComputed.WithLabelValues(path).Inc()
	if t.Residual != pricing.ResidualNone {
		metrics.ResidualApplied.WithLabelValues(string(t.Residual)).Inc()
		logger.Debug("Client total residual applied", logging.Fields{
			"path":   path,
			"target": string(t.Residual),
		})
	}
}

// PreviewTotals computes totals without persisting anything.
func (s *OrderService) PreviewTotals(items []models.OrderItem, in pricing.ChargeInputs, opts pricing.Options) pricing.Totals {
	lines, _ := splitItems(s.calculator, items)
	totals := s.calculator.Calculate(lines, in, opts)
	recordTotals(s.logger, pathPreview, totals)
	return totals.Rounded()
}
