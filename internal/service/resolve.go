package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"
)

// locationKey 位置去重键：类型|楼层|架号|框号|包号
func locationKey(loc models.Location) string {
	return fmt.Sprintf("%d|%d|%s|%s|%s",
		loc.AddressType, loc.Floor,
		strings.TrimSpace(loc.ShelfNo), strings.TrimSpace(loc.BoxNo), strings.TrimSpace(loc.PackageNo))
}

// manufacturerKey 厂家去重键，空字段以占位符代替
func manufacturerKey(name, address, phone string) string {
	parts := []string{strings.TrimSpace(name), strings.TrimSpace(address), strings.TrimSpace(phone)}
	for i, p := range parts {
		if p == "" {
			parts[i] = constants.DedupEmptyToken
		}
	}
	return strings.Join(parts, "|")
}

func locationIndex(t *models.Tables) map[string]int {
	idx := make(map[string]int, len(t.Locations))
	for _, loc := range t.Locations {
		key := locationKey(loc)
		if _, ok := idx[key]; !ok {
			idx[key] = loc.ID
		}
	}
	return idx
}

func manufacturerIndex(t *models.Tables) map[string]int {
	idx := make(map[string]int, len(t.Manufacturers))
	for _, m := range t.Manufacturers {
		key := manufacturerKey(m.Name, m.Address, m.Phone)
		if _, ok := idx[key]; !ok {
			idx[key] = m.ID
		}
	}
	return idx
}

func productIndex(t *models.Tables) map[string]int {
	idx := make(map[string]int, len(t.Products))
	for _, p := range t.Products {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			continue
		}
		if _, ok := idx[code]; !ok {
			idx[code] = p.ID
		}
	}
	return idx
}

// resolveLocation 复用相同位置，否则新建；返回位置 ID
func resolveLocation(t *models.Tables, idx map[string]int, loc models.Location) int {
	loc.ShelfNo = strings.TrimSpace(loc.ShelfNo)
	loc.BoxNo = strings.TrimSpace(loc.BoxNo)
	loc.PackageNo = strings.TrimSpace(loc.PackageNo)
	key := locationKey(loc)
	if id, ok := idx[key]; ok {
		return id
	}
	loc.ID = t.NextLocationID()
	t.Locations = append(t.Locations, loc)
	idx[key] = loc.ID
	return loc.ID
}

// resolveManufacturer 复用相同厂家，否则新建；返回厂家 ID 与是否新建
func resolveManufacturer(t *models.Tables, idx map[string]int, name, address, phone string) (int, bool) {
	key := manufacturerKey(name, address, phone)
	if id, ok := idx[key]; ok {
		return id, false
	}
	m := models.Manufacturer{
		ID:      t.NextManufacturerID(),
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
		Phone:   strings.TrimSpace(phone),
	}
	t.Manufacturers = append(t.Manufacturers, m)
	idx[key] = m.ID
	return m.ID, true
}

// resolveProduct 同一货号复用商品，否则新建；返回商品 ID 与是否新建
func resolveProduct(t *models.Tables, idx map[string]int, code, productType, notes, purpose string) (int, bool) {
	code = strings.TrimSpace(code)
	if id, ok := idx[code]; ok {
		return id, false
	}
	p := models.Product{
		ID:      t.NextProductID(),
		Code:    code,
		Type:    strings.TrimSpace(productType),
		Notes:   notes,
		Purpose: purpose,
	}
	t.Products = append(t.Products, p)
	idx[code] = p.ID
	return p.ID, true
}
