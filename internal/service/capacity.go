package service

import (
	"sort"
	"strings"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/models"
)

// FloorCapacityView 楼层容量视图
type FloorCapacityView struct {
	Floor     int `json:"floor"`
	Capacity  int `json:"capacity"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// usedBoxes 楼层已占用的去重框号
func usedBoxes(t *models.Tables, floor int) map[string]struct{} {
	boxes := map[string]struct{}{}
	for _, loc := range t.Locations {
		if loc.Floor != floor {
			continue
		}
		if box := strings.TrimSpace(loc.BoxNo); box != "" {
			boxes[box] = struct{}{}
		}
	}
	return boxes
}

// floorCapacity 楼层总容量，容量表缺失或非正时取配置值
func floorCapacity(t *models.Tables, floor, fallback int) int {
	for _, row := range t.Capacity {
		if row.Floor == floor && row.Capacity > 0 {
			return row.Capacity
		}
	}
	return fallback
}

// recomputeCapacity 按当前位置表重算各楼层剩余容量，并补齐配置楼层
func recomputeCapacity(t *models.Tables, cfg config.WarehouseConfig) {
	seen := make(map[int]struct{}, len(t.Capacity))
	for i := range t.Capacity {
		row := &t.Capacity[i]
		if row.Capacity <= 0 {
			row.Capacity = cfg.FloorCapacity
		}
		row.Remaining = max(0, row.Capacity-len(usedBoxes(t, row.Floor)))
		seen[row.Floor] = struct{}{}
	}
	for _, floor := range cfg.Floors {
		if _, ok := seen[floor]; ok {
			continue
		}
		t.Capacity = append(t.Capacity, models.Capacity{
			Floor:     floor,
			Capacity:  cfg.FloorCapacity,
			Remaining: max(0, cfg.FloorCapacity-len(usedBoxes(t, floor))),
		})
	}
	sort.SliceStable(t.Capacity, func(i, j int) bool { return t.Capacity[i].Floor < t.Capacity[j].Floor })
}

// Capacity 各楼层容量（按当前位置实时计算，不写入）
func (s *InventoryService) Capacity() ([]FloorCapacityView, error) {
	tables, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	floors := append([]int{}, s.cfg.Floors...)
	for _, row := range tables.Capacity {
		if !s.cfg.HasFloor(row.Floor) {
			floors = append(floors, row.Floor)
		}
	}
	sort.Ints(floors)

	views := make([]FloorCapacityView, 0, len(floors))
	for _, floor := range floors {
		capacity := floorCapacity(tables, floor, s.cfg.FloorCapacity)
		used := len(usedBoxes(tables, floor))
		views = append(views, FloorCapacityView{
			Floor:     floor,
			Capacity:  capacity,
			Used:      used,
			Remaining: max(0, capacity-used),
		})
	}
	return views, nil
}
