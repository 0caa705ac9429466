package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CloseMonthlyReport closes (region, year, month) for the bound tenant:
// it recomputes the live numbers, writes one immutable MonthlyDoctorReport
// row per doctor in the region, and rolls every doctor's balance into the
// next period. Archive write and roll-forward commit together or not at
// all.
//
// Returns utils.ErrMonthAlreadyClosed when the period was closed before;
// the caller surfaces that to the user, it is not a server fault.
func CloseMonthlyReport(ctx context.Context, regionId, year, month int) error {
	ctx, span := tracer.Start(ctx, "CloseMonthlyReport")
	defer span.End()

	if regionId == 0 {
		return utils.ErrRegionRequired
	}
	if month < 1 || month > 12 || year < 2000 {
		return fmt.Errorf("invalid report period %d-%02d", year, month)
	}

	db, err := config.StoreFor(ctx, &models.MonthlyDoctorReport{})
	if err != nil {
		return err
	}
	storeId := config.StoreIdFor(ctx, &models.MonthlyDoctorReport{})

	// Cross-instance guard; in-process correctness comes from the region
	// mutex below.
	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("MonthlyClose:%s:%d", storeId, regionId)
		lock, lockErr := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
		if lockErr == redislock.ErrNotObtained {
			return fmt.Errorf("another close is in progress for this region")
		} else if lockErr != nil {
			return lockErr
		}
		defer func() {
			_ = lock.Release(ctx)
		}()
	}

	// Close and recompute for the same region must not interleave.
	unlock := lockRegions(storeId, []int{regionId})
	defer unlock()

	closed, err := periodAlreadyClosed(ctx, db, regionId, year, month)
	if err != nil {
		return err
	}
	if closed {
		return utils.ErrMonthAlreadyClosed
	}

	// Always close from live numbers, never from a stale view.
	if err := recalculateLocked(ctx, db, nil, []int{regionId}, month, year); err != nil {
		return err
	}

	rows, err := liveReportRows(ctx, db, regionId, month, year)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("region %d has no doctors to close", regionId)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			report := models.MonthlyDoctorReport{
				DoctorID:         row.Doctor.ID,
				RegionID:         row.Doctor.RegionID,
				Year:             year,
				Month:            month,
				DrugsData:        row.Drugs,
				TotalQuantity:    row.TotalQuantity,
				PreviousDebt:     row.PreviousDebt,
				EffectiveAmount:  row.EffectiveAmount,
				CommissionAmount: row.CommissionAmount,
				Advance:          row.Advance,
				Investment:       row.Investment,
				Refund:           row.Refund,
				Dotation:         row.Dotation,
				FinalDebt:        row.FinalDebt,
			}
			if err := tx.Create(&report).Error; err != nil {
				return err
			}
		}

		// Roll forward: the only place live balances cross a period
		// boundary.
		for _, row := range rows {
			err := tx.Model(&models.Doctor{}).
				Where("id = ?", row.Doctor.ID).
				Updates(map[string]interface{}{
					"previous_debt":     row.FinalDebt,
					"effective_amount":  decimal.Zero,
					"commission_amount": decimal.Zero,
					"dotation":          decimal.Zero,
					"final_debt":        row.FinalDebt,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// periodAlreadyClosed reports whether any doctor currently in the region,
// or any archive row recorded against the region, already has a closed
// report for (year, month).
func periodAlreadyClosed(ctx context.Context, db *gorm.DB, regionId, year, month int) (bool, error) {
	var doctorIds []int
	err := db.WithContext(ctx).Model(&models.Doctor{}).
		Where("region_id = ?", regionId).
		Pluck("id", &doctorIds).Error
	if err != nil {
		return false, err
	}

	q := db.WithContext(ctx).Model(&models.MonthlyDoctorReport{}).
		Where("year = ? AND month = ?", year, month)
	if len(doctorIds) > 0 {
		q = q.Where("region_id = ? OR doctor_id IN ?", regionId, doctorIds)
	} else {
		q = q.Where("region_id = ?", regionId)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
