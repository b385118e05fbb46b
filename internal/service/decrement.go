package service

import (
	"context"
	"fmt"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/normalize"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
)

type decrementOutcome struct {
	medicineID *uuid.UUID
	updates    []InventoryUpdate
	shortfall  int
	warning    string
}

// decrement draws li.Quantity units of the line's medicine from stock,
// soonest-expiring batch first. Each take only succeeds if the batch still
// holds that much, so concurrent bills can never push a batch below zero.
func (s *billingService) decrement(ctx context.Context, billingID uuid.UUID, uid *uuid.UUID, li normalize.LineItem) (decrementOutcome, error) {
	var out decrementOutcome

	med, err := s.resolveMedicine(ctx, li.Description)
	if err != nil {
		return out, err
	}
	if med == nil {
		out.warning = fmt.Sprintf("No medicine master record found for %q; inventory not decremented.", li.Description)
		return out, nil
	}
	out.medicineID = &med.ID

	batches, err := s.inventoryRepo.ListAvailableFIFO(ctx, med.ID)
	if err != nil {
		return out, fmt.Errorf("failed to list batches for %s: %w", med.Name, err)
	}

	remaining := li.Quantity
	for _, b := range batches {
		if remaining <= 0 {
			break
		}
		take := min(remaining, b.Quantity)
		left, ok, err := s.inventoryRepo.DecrementIfAvailable(ctx, b.ID, take)
		if err != nil {
			return out, fmt.Errorf("failed to decrement batch %s: %w", b.BatchNumber, err)
		}
		if !ok {
			// drained by a concurrent bill; move on to the next batch
			continue
		}

		if err := s.invTxRepo.Create(ctx, &model.InventoryTransaction{
			BatchID:         b.ID,
			MedicineID:      med.ID,
			BillingID:       &billingID,
			Source:          model.TxSourceBilling,
			TransactionType: model.TxTypeOut,
			QuantityChanged: -take,
			StockAfter:      left,
			UserID:          uid,
		}); err != nil {
			return out, fmt.Errorf("failed to record inventory transaction: %w", err)
		}

		out.updates = append(out.updates, InventoryUpdate{
			ItemDescription:     li.Description,
			MedicineID:          med.ID,
			BatchID:             b.ID,
			BatchNumber:         b.BatchNumber,
			Taken:               take,
			RemainingQtyInBatch: left,
		})
		remaining -= take
	}

	if remaining > 0 {
		out.shortfall = remaining
		out.warning = fmt.Sprintf("Insufficient inventory for %q. Short by %d.", li.Description, remaining)
	}
	return out, nil
}

// resolveMedicine matches the exact name first, then any stocked medicine
// whose name contains the description. nil means no master record.
func (s *billingService) resolveMedicine(ctx context.Context, name string) (*model.Medicine, error) {
	med, err := s.medicineRepo.FindByNameInsensitive(ctx, name)
	if err == nil {
		return med, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up medicine %q: %w", name, err)
	}

	med, err = s.medicineRepo.FindLinkedToInventoryByName(ctx, name)
	if err == nil {
		return med, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up medicine %q: %w", name, err)
	}
	return nil, nil
}
