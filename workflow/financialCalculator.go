package workflow

import (
	"context"
	"time"

	"bitbucket.org/azpharmsoft/pharma_backend/config"
	"bitbucket.org/azpharmsoft/pharma_backend/models"
	"bitbucket.org/azpharmsoft/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("pharma-backend/workflow")

type regionDrugKey struct {
	RegionID int
	DrugID   int
}

// RecalculateDoctorFinancials recomputes effective amount, commission
// deduction and final debt for the union of the given doctors and every
// doctor currently assigned to the given regions, optionally restricted
// to one month/year window (0 = unfiltered).
//
// Callers on a write path must invoke this AFTER their own transaction has
// committed: the engine re-reads prescription and sale lines and must see
// the triggering write, never a stale snapshot.
func RecalculateDoctorFinancials(ctx context.Context, doctorIds []int, regionIds []int, month, year int) error {
	ctx, span := tracer.Start(ctx, "RecalculateDoctorFinancials")
	defer span.End()

	logger := config.GetLogger()

	db, err := config.StoreFor(ctx, &models.Doctor{})
	if err != nil {
		return err
	}
	storeId := config.StoreIdFor(ctx, &models.Doctor{})

	scope, err := resolveDoctorScope(ctx, db, doctorIds, regionIds)
	if err != nil {
		return err
	}
	if len(scope.doctorIds) == 0 {
		// Nothing to do; an empty resolved set is a no-op, not an error.
		return nil
	}

	unlock := lockRegions(storeId, scope.regionIds)
	defer unlock()

	if err := recalculateLocked(ctx, db, doctorIds, regionIds, month, year); err != nil {
		config.LogError(logger, "financialCalculator.go", "RecalculateDoctorFinancials", "recalculation failed", storeId, err)
		return err
	}
	return nil
}

type doctorScope struct {
	doctorIds []int
	regionIds []int
}

// resolveDoctorScope expands region ids into their doctors and returns the
// affected doctor ids plus the region set that must be locked.
func resolveDoctorScope(ctx context.Context, db *gorm.DB, doctorIds []int, regionIds []int) (doctorScope, error) {
	idSet := make(map[int]struct{}, len(doctorIds))
	for _, id := range doctorIds {
		idSet[id] = struct{}{}
	}

	if len(regionIds) > 0 {
		var regionDoctorIds []int
		err := db.WithContext(ctx).Model(&models.Doctor{}).
			Where("region_id IN ?", regionIds).
			Pluck("id", &regionDoctorIds).Error
		if err != nil {
			return doctorScope{}, err
		}
		for _, id := range regionDoctorIds {
			idSet[id] = struct{}{}
		}
	}

	ids := make([]int, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	regions := make([]int, 0, len(regionIds)+len(ids))
	regions = append(regions, regionIds...)
	if len(ids) > 0 {
		var doctorRegionIds []int
		err := db.WithContext(ctx).Model(&models.Doctor{}).
			Where("id IN ? AND region_id IS NOT NULL", ids).
			Pluck("region_id", &doctorRegionIds).Error
		if err != nil {
			return doctorScope{}, err
		}
		regions = append(regions, doctorRegionIds...)
	}

	return doctorScope{doctorIds: ids, regionIds: utils.UniqueSlice(regions)}, nil
}

// recalculateLocked runs steps 3-7 of the recomputation algorithm. The
// caller must hold the region locks for every affected region.
func recalculateLocked(ctx context.Context, db *gorm.DB, doctorIds []int, regionIds []int, month, year int) error {
	logger := config.GetLogger()

	// Re-resolve inside the lock so the doctor set reflects all committed
	// writes, then recompute from the live tables.
	scope, err := resolveDoctorScope(ctx, db, doctorIds, regionIds)
	if err != nil {
		return err
	}
	if len(scope.doctorIds) == 0 {
		return nil
	}

	var doctors []models.Doctor
	if err := db.WithContext(ctx).Where("id IN ?", scope.doctorIds).Find(&doctors).Error; err != nil {
		return err
	}
	if len(doctors) == 0 {
		return nil
	}

	inScope := make(map[int]struct{}, len(doctors))
	regionSet := make(map[int]struct{})
	for _, doctor := range doctors {
		inScope[doctor.ID] = struct{}{}
		if doctor.RegionID != nil {
			regionSet[*doctor.RegionID] = struct{}{}
		}
	}
	scopeRegions := make([]int, 0, len(regionSet))
	for id := range regionSet {
		scopeRegions = append(scopeRegions, id)
	}

	commissionMap, err := loadDrugCommissionMap(ctx, db)
	if err != nil {
		return err
	}

	// Weighted prescription totals. The region-wide totals feed the
	// effectiveness denominator and must cover every doctor in the region,
	// not only the ones being recomputed.
	doctorWeighted := make(map[int]map[int]decimal.Decimal)
	regionWeighted := make(map[regionDrugKey]decimal.Decimal)

	items, err := loadPrescriptionItems(ctx, db, scopeRegions, scope.doctorIds, month, year)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Prescription == nil || item.Prescription.Doctor == nil {
			continue
		}
		doctor := item.Prescription.Doctor

		regionId := 0
		if item.Prescription.RegionID != nil {
			regionId = *item.Prescription.RegionID
		} else if doctor.RegionID != nil {
			regionId = *doctor.RegionID
		}
		if regionId == 0 {
			continue
		}

		weighted := decimal.NewFromInt(int64(item.Quantity)).Mul(doctor.Degree.Factor())
		key := regionDrugKey{RegionID: regionId, DrugID: item.DrugID}
		regionWeighted[key] = regionWeighted[key].Add(weighted)

		if _, ok := inScope[doctor.ID]; ok {
			if doctorWeighted[doctor.ID] == nil {
				doctorWeighted[doctor.ID] = make(map[int]decimal.Decimal)
			}
			doctorWeighted[doctor.ID][item.DrugID] = doctorWeighted[doctor.ID][item.DrugID].Add(weighted)
		}
	}

	// Region-wide actual sales totals.
	regionSales := make(map[regionDrugKey]decimal.Decimal)
	if len(scopeRegions) > 0 {
		saleItems, err := loadSaleItems(ctx, db, scopeRegions, month, year)
		if err != nil {
			return err
		}
		for _, saleItem := range saleItems {
			if saleItem.Sale == nil {
				continue
			}
			key := regionDrugKey{RegionID: saleItem.Sale.RegionID, DrugID: saleItem.DrugID}
			regionSales[key] = regionSales[key].Add(decimal.NewFromInt(int64(saleItem.Quantity)))
		}
	}

	// Effectiveness ratio per (region, drug). Zero weighted denominator
	// means ratio 0, never a division.
	effectivenessMap := make(map[regionDrugKey]decimal.Decimal, len(regionWeighted))
	for key, weightedSum := range regionWeighted {
		if weightedSum.IsPositive() {
			effectivenessMap[key] = regionSales[key].Div(weightedSum)
		} else {
			effectivenessMap[key] = decimal.Zero
		}
	}

	for i := range doctors {
		doctor := &doctors[i]

		if doctor.RegionID == nil {
			// Defined degenerate case: no region, no effectiveness.
			doctor.EffectiveAmount = decimal.Zero
			doctor.CommissionAmount = decimal.Zero
			doctor.FinalDebt = doctor.PreviousDebt
			if err := persistDoctorFinancials(ctx, db, doctor); err != nil {
				return err
			}
			continue
		}

		effectiveTotal := decimal.Zero
		commissionTotal := decimal.Zero

		// Rounding contract: 2 decimals, half-up, per drug line BEFORE
		// summation. Changing this order changes the reference numbers.
		for drugId, weightedQty := range doctorWeighted[doctor.ID] {
			ratio := effectivenessMap[regionDrugKey{RegionID: *doctor.RegionID, DrugID: drugId}]
			effectiveValue := weightedQty.Mul(ratio).Round(2)
			effectiveTotal = effectiveTotal.Add(effectiveValue)

			commission := commissionMap[drugId].Mul(effectiveValue).Round(2)
			commissionTotal = commissionTotal.Add(commission)
		}

		doctor.EffectiveAmount = effectiveTotal
		doctor.CommissionAmount = commissionTotal
		doctor.FinalDebt = doctor.PreviousDebt.Add(effectiveTotal).Sub(commissionTotal)

		if err := persistDoctorFinancials(ctx, db, doctor); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"module":     "financialCalculator",
			"doctor_id":  doctor.ID,
			"effective":  effectiveTotal,
			"commission": commissionTotal,
			"final_debt": doctor.FinalDebt,
		}).Debug("doctor financials updated")
	}

	return nil
}

// persistDoctorFinancials writes the three computed fields in one durable
// update.
func persistDoctorFinancials(ctx context.Context, db *gorm.DB, doctor *models.Doctor) error {
	return db.WithContext(ctx).Model(&models.Doctor{}).
		Where("id = ?", doctor.ID).
		Updates(map[string]interface{}{
			"effective_amount":  doctor.EffectiveAmount,
			"commission_amount": doctor.CommissionAmount,
			"final_debt":        doctor.FinalDebt,
		}).Error
}

func loadPrescriptionItems(ctx context.Context, db *gorm.DB, scopeRegions []int, doctorIds []int, month, year int) ([]models.PrescriptionItem, error) {
	q := db.WithContext(ctx).Model(&models.PrescriptionItem{}).
		Preload("Prescription").Preload("Prescription.Doctor").
		Joins("JOIN prescriptions ON prescriptions.id = prescription_items.prescription_id").
		Joins("JOIN doctors ON doctors.id = prescriptions.doctor_id")

	if len(scopeRegions) > 0 {
		q = q.Where("prescriptions.region_id IN ? OR doctors.region_id IN ?", scopeRegions, scopeRegions)
	} else {
		q = q.Where("prescriptions.doctor_id IN ?", doctorIds)
	}

	var items []models.PrescriptionItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}

	// Month/year filtering happens here rather than in SQL so the window
	// semantics are identical across backends.
	filtered := items[:0]
	for _, item := range items {
		if item.Prescription == nil {
			continue
		}
		if utils.MatchesPeriod(item.Prescription.Date, month, year) {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func loadSaleItems(ctx context.Context, db *gorm.DB, scopeRegions []int, month, year int) ([]models.SaleItem, error) {
	var saleItems []models.SaleItem
	err := db.WithContext(ctx).Model(&models.SaleItem{}).
		Preload("Sale").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.region_id IN ?", scopeRegions).
		Find(&saleItems).Error
	if err != nil {
		return nil, err
	}

	filtered := saleItems[:0]
	for _, saleItem := range saleItems {
		if saleItem.Sale == nil {
			continue
		}
		if utils.MatchesPeriod(saleItem.Sale.Date, month, year) {
			filtered = append(filtered, saleItem)
		}
	}
	return filtered, nil
}

// loadDrugCommissionMap returns commission amounts for active drugs,
// redis-cached per store for a short window since drug edits are rare.
func loadDrugCommissionMap(ctx context.Context, db *gorm.DB) (map[int]decimal.Decimal, error) {
	storeId := config.ActiveStoreId(ctx)
	redisKey := "drugCommissionMap:" + storeId

	cached := make(map[int]string)
	if exists, err := config.GetRedisObject(redisKey, &cached); err == nil && exists {
		out := make(map[int]decimal.Decimal, len(cached))
		ok := true
		for id, raw := range cached {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				ok = false
				break
			}
			out[id] = amount
		}
		if ok {
			return out, nil
		}
	}

	var drugs []models.Drug
	if err := db.WithContext(ctx).Where("is_active = ?", true).Find(&drugs).Error; err != nil {
		return nil, err
	}

	out := make(map[int]decimal.Decimal, len(drugs))
	serialized := make(map[int]string, len(drugs))
	for _, drug := range drugs {
		out[drug.ID] = drug.Commission
		serialized[drug.ID] = drug.Commission.String()
	}
	_ = config.SetRedisObject(redisKey, serialized, 60*time.Second)

	return out, nil
}

// InvalidateDrugCommissionCache must be called whenever a drug's
// commission or active flag changes.
func InvalidateDrugCommissionCache(ctx context.Context) {
	_ = config.DeleteRedisKeys("drugCommissionMap:" + config.ActiveStoreId(ctx))
}
