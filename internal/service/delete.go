package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
)

// DeleteResult 删除结果
type DeleteResult struct {
	Message         string `json:"message"`
	InventoryID     int    `json:"inventory_id"`
	RemovedRecords  int    `json:"removed_records"`
	RemovedFeature  bool   `json:"removed_feature"`
	RemovedProduct  bool   `json:"removed_product"`
	RemovedLocation bool   `json:"removed_location"`
	RemovedVendor   bool   `json:"removed_manufacturer"`
}

// Delete 删除仅含入库记录的库存，并级联清理不再被引用的关联行
func (s *InventoryService) Delete(ctx context.Context, inventoryID int) (*DeleteResult, error) {
	if inventoryID <= 0 {
		return nil, validationError("无效的库存ID（需为正整数）")
	}
	result := &DeleteResult{InventoryID: inventoryID}

	err := s.write(ctx, "delete", func(t *models.Tables) error {
		unlock := s.lots.lockAll([]int{inventoryID})
		defer unlock()

		lotIdx := t.FindInventory(inventoryID)
		if lotIdx < 0 {
			return notFoundError("未找到库存ID为 %d 的记录", inventoryID)
		}
		if types := nonInboundTypes(t, inventoryID); len(types) > 0 {
			return opError(ErrConsistency,
				"该库存（ID:%d）包含非入库操作记录（['%s']），无法删除。请先删除相关操作记录。",
				inventoryID, strings.Join(types, "', '"))
		}

		lot := t.Inventory[lotIdx]
		t.Inventory = append(t.Inventory[:lotIdx], t.Inventory[lotIdx+1:]...)

		kept := t.Operations[:0]
		for _, op := range t.Operations {
			if op.InventoryID == inventoryID {
				result.RemovedRecords++
				continue
			}
			kept = append(kept, op)
		}
		t.Operations = kept

		var productID = models.NoRef
		if fi := t.FindFeature(lot.FeatureID); fi >= 0 {
			productID = t.Features[fi].ProductID
		}
		result.RemovedFeature = removeUnreferencedFeature(t, lot.FeatureID)
		if result.RemovedFeature {
			result.RemovedProduct = removeUnreferencedProduct(t, productID)
		}
		result.RemovedLocation = removeUnreferencedLocation(t, lot.LocationID)
		result.RemovedVendor = removeUnreferencedManufacturer(t, lot.ManufacturerID)

		recomputeCapacity(t, s.cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	verify, err := s.repo.LoadFresh()
	if err != nil {
		return nil, storageError(err, "删除后校验失败（读取数据失败）")
	}
	if verify.FindInventory(inventoryID) >= 0 {
		logger.Errorw("inventory_delete_verify_failed", "inventory_id", inventoryID)
		return nil, storageError(fmt.Errorf("inventory %d still present", inventoryID), "删除后校验失败（ID仍存在）")
	}

	result.Message = fmt.Sprintf("库存ID %d 记录删除成功！", inventoryID)
	logger.Infow("inventory_delete_committed",
		"inventory_id", inventoryID,
		"removed_records", result.RemovedRecords,
		"removed_feature", result.RemovedFeature,
		"removed_product", result.RemovedProduct,
		"removed_location", result.RemovedLocation,
		"removed_manufacturer", result.RemovedVendor,
	)
	return result, nil
}

// nonInboundTypes 库存的非入库操作类型（去重，保持出现顺序）
func nonInboundTypes(t *models.Tables, inventoryID int) []string {
	var types []string
	seen := map[string]struct{}{}
	hasOther := false
	for _, op := range t.Operations {
		if op.InventoryID != inventoryID {
			continue
		}
		opType := strings.TrimSpace(op.Type)
		if opType != constants.OpInbound {
			hasOther = true
		}
		if _, ok := seen[opType]; ok {
			continue
		}
		seen[opType] = struct{}{}
		types = append(types, opType)
	}
	if !hasOther {
		return nil
	}
	return types
}

func removeUnreferencedFeature(t *models.Tables, featureID int) bool {
	if featureID == models.NoRef {
		return false
	}
	for _, lot := range t.Inventory {
		if lot.FeatureID == featureID {
			return false
		}
	}
	idx := t.FindFeature(featureID)
	if idx < 0 {
		return false
	}
	t.Features = append(t.Features[:idx], t.Features[idx+1:]...)
	return true
}

func removeUnreferencedProduct(t *models.Tables, productID int) bool {
	if productID == models.NoRef {
		return false
	}
	for _, f := range t.Features {
		if f.ProductID == productID {
			return false
		}
	}
	idx := t.FindProduct(productID)
	if idx < 0 {
		return false
	}
	t.Products = append(t.Products[:idx], t.Products[idx+1:]...)
	return true
}

func removeUnreferencedLocation(t *models.Tables, locationID int) bool {
	if locationID == models.NoRef {
		return false
	}
	for _, lot := range t.Inventory {
		if lot.LocationID == locationID {
			return false
		}
	}
	idx := t.FindLocation(locationID)
	if idx < 0 {
		return false
	}
	t.Locations = append(t.Locations[:idx], t.Locations[idx+1:]...)
	return true
}

func removeUnreferencedManufacturer(t *models.Tables, manufacturerID int) bool {
	if manufacturerID == models.NoRef {
		return false
	}
	for _, lot := range t.Inventory {
		if lot.ManufacturerID == manufacturerID {
			return false
		}
	}
	idx := t.FindManufacturer(manufacturerID)
	if idx < 0 {
		return false
	}
	t.Manufacturers = append(t.Manufacturers[:idx], t.Manufacturers[idx+1:]...)
	return true
}
