package dropi

import (
	"github.com/rs/zerolog/log"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

// Reconcile joins the cached wallet ledger against the cached orders.
// Profit credits flip is_paid; freight debits flip is_return_charged.
// Both flips are conditioned on the flag still being false, so running
// the reconciler any number of times marks each order at most once. A
// movement referencing an order the user does not own is counted as
// skipped and never applied.
func (s *Service) Reconcile(userID uint) (paid, charged, skipped int, err error) {
	logger := log.With().Str("component", "dropi_reconcile").Uint("user_id", userID).Logger()

	profits, err := s.db.MovementsByCategory(userID, types.CategoryDropshippingProfit)
	if err != nil {
		return 0, 0, 0, err
	}

	freights, err := s.db.MovementsByCategory(userID, types.CategoryFreightCharge)
	if err != nil {
		return 0, 0, 0, err
	}

	logger.Info().
		Int("profit_movements", len(profits)).
		Int("freight_movements", len(freights)).
		Msg("starting reconciliation")

	for _, mov := range profits {
		if mov.OrderRef == nil {
			continue
		}

		rows, markErr := s.db.MarkOrderPaid(userID, *mov.OrderRef, mov.Amount, mov.MovementCreatedAt, mov.DropiMovementID)
		if markErr != nil {
			logger.Error().Err(markErr).Int64("order_ref", *mov.OrderRef).Msg("failed to mark order paid")
			continue
		}
		if rows > 0 {
			paid += int(rows)
			s.metrics.ReconcileFlips.WithLabelValues("paid").Inc()
			continue
		}

		// Zero rows: either the order is already paid (fine) or the
		// reference points at an order this user does not own.
		exists, existsErr := s.db.OrderExists(userID, *mov.OrderRef)
		if existsErr == nil && !exists {
			skipped++
			s.metrics.ItemsSkipped.WithLabelValues("movement", "foreign_order_ref").Inc()
			logger.Warn().
				Int64("order_ref", *mov.OrderRef).
				Int64("movement_id", mov.DropiMovementID).
				Msg("profit movement references an order not owned by this user")
		}
	}

	for _, mov := range freights {
		if mov.OrderRef == nil {
			continue
		}

		rows, markErr := s.db.MarkReturnCharged(userID, *mov.OrderRef, mov.Amount, mov.MovementCreatedAt)
		if markErr != nil {
			logger.Error().Err(markErr).Int64("order_ref", *mov.OrderRef).Msg("failed to mark return charged")
			continue
		}
		if rows > 0 {
			charged += int(rows)
			s.metrics.ReconcileFlips.WithLabelValues("charged").Inc()
			continue
		}

		exists, existsErr := s.db.OrderExists(userID, *mov.OrderRef)
		if existsErr == nil && !exists {
			skipped++
			s.metrics.ItemsSkipped.WithLabelValues("movement", "foreign_order_ref").Inc()
		}
	}

	logger.Info().
		Int("marked_paid", paid).
		Int("marked_charged", charged).
		Int("skipped", skipped).
		Msg("reconciliation completed")

	return paid, charged, skipped, nil
}
