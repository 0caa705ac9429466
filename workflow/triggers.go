package workflow

import (
	"context"

	"bitbucket.org/azpharmsoft/pharma_backend/models"
)

// Recompute triggers. The original system wired these through ORM
// post-save/post-delete hooks; here every prescription/sale mutation site
// calls the matching trigger explicitly, after its own transaction has
// committed.

// PrescriptionChanged recomputes the prescribing doctor for the
// prescription's month. Call after creating, updating or deleting a
// prescription or any of its items.
func PrescriptionChanged(ctx context.Context, prescription *models.Prescription) error {
	if prescription == nil || prescription.DoctorID == 0 || prescription.Date.IsZero() {
		return nil
	}
	return RecalculateDoctorFinancials(ctx,
		[]int{prescription.DoctorID},
		nil,
		int(prescription.Date.Month()),
		prescription.Date.Year(),
	)
}

// SaleChanged recomputes every doctor in the sale's region for the sale's
// month: the effectiveness ratio is region-wide, so one sale edit moves
// every doctor's effective value in that region. Call after creating,
// updating or deleting a sale or any of its items.
func SaleChanged(ctx context.Context, sale *models.Sale) error {
	if sale == nil || sale.RegionID == 0 || sale.Date.IsZero() {
		return nil
	}
	return RecalculateDoctorFinancials(ctx,
		nil,
		[]int{sale.RegionID},
		int(sale.Date.Month()),
		sale.Date.Year(),
	)
}
