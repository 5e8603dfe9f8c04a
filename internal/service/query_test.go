package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dujiao-next/warehouse/internal/constants"
)

func seedQueryLots(t *testing.T) *InventoryService {
	t.Helper()
	svc, _ := newTestInventoryService(t)
	mustStockIn(t, svc,
		boxItem("LOT-A", 1, "B1", 10),
		boxItem("LOT-B", 1, "B2", 5),
		boxItem("LOT-C", 2, "B3", 8),
	)
	return svc
}

func TestListInventoryFiltersAndPaging(t *testing.T) {
	svc := seedQueryLots(t)

	cases := []struct {
		name      string
		filter    InventoryListFilter
		wantTotal int64
		wantIDs   []int
	}{
		{name: "all sorted by id desc", filter: InventoryListFilter{}, wantTotal: 3, wantIDs: []int{3, 2, 1}},
		{name: "second page", filter: InventoryListFilter{Page: 2, PageSize: 2}, wantTotal: 3, wantIDs: []int{1}},
		{name: "page past end", filter: InventoryListFilter{Page: 5, PageSize: 2}, wantTotal: 3, wantIDs: []int{}},
		{name: "floor", filter: InventoryListFilter{Floor: 2}, wantTotal: 1, wantIDs: []int{3}},
		{name: "keyword case insensitive", filter: InventoryListFilter{Keyword: "lot-b"}, wantTotal: 1, wantIDs: []int{2}},
		{name: "product type miss", filter: InventoryListFilter{ProductType: "原材料"}, wantTotal: 0, wantIDs: []int{}},
		{name: "in stock", filter: InventoryListFilter{OpStatus: LotStatusInStock}, wantTotal: 3, wantIDs: []int{3, 2, 1}},
		{name: "lent", filter: InventoryListFilter{OpStatus: LotStatusLent}, wantTotal: 0, wantIDs: []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lots, total, err := svc.ListInventory(tc.filter)
			if err != nil {
				t.Fatalf("list inventory failed: %v", err)
			}
			if total != tc.wantTotal {
				t.Fatalf("total = %d, want %d", total, tc.wantTotal)
			}
			if len(lots) != len(tc.wantIDs) {
				t.Fatalf("got %d lots, want %d", len(lots), len(tc.wantIDs))
			}
			for i, id := range tc.wantIDs {
				if lots[i].Inventory.ID != id {
					t.Fatalf("lot[%d] = %d, want %d", i, lots[i].Inventory.ID, id)
				}
			}
		})
	}
}

func TestListInventoryLentStatus(t *testing.T) {
	svc := seedQueryLots(t)
	if _, err := svc.Lend(context.Background(), single(2, 2)); err != nil {
		t.Fatalf("lend failed: %v", err)
	}
	lots, total, err := svc.ListInventory(InventoryListFilter{OpStatus: LotStatusLent})
	if err != nil {
		t.Fatalf("list inventory failed: %v", err)
	}
	if total != 1 || lots[0].Inventory.ID != 2 || lots[0].Unreturned.String() != "2" || lots[0].CurrentStock.String() != "3" {
		t.Fatalf("unexpected lent lots %+v", lots)
	}
}

func TestNormalizePage(t *testing.T) {
	svc, _ := newTestInventoryService(t)
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 50},
		{3, 20, 3, 20},
		{1, 1000, 1, 100},
	}
	for _, tc := range cases {
		page, size := svc.NormalizePage(tc.page, tc.size)
		if page != tc.wantPage || size != tc.wantSize {
			t.Fatalf("NormalizePage(%d,%d) = %d,%d", tc.page, tc.size, page, size)
		}
	}
}

func TestGetInventoryDetailClampsPageSize(t *testing.T) {
	svc := seedQueryLots(t)
	if _, err := svc.StockOut(context.Background(), single(1, 4)); err != nil {
		t.Fatalf("stock out failed: %v", err)
	}

	detail, err := svc.GetInventoryDetail(1, 0, 1)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.Page != 1 || detail.PageSize != 10 || detail.Total != 2 {
		t.Fatalf("unexpected paging page=%d size=%d total=%d", detail.Page, detail.PageSize, detail.Total)
	}
	if len(detail.Operations) != 2 || detail.Operations[0].Type != constants.OpOutbound {
		t.Fatalf("operations should be newest first: %+v", detail.Operations)
	}
	if detail.Stats.CurrentStock.String() != "6" || detail.Stats.TotalOperations != 2 {
		t.Fatalf("unexpected stats %+v", detail.Stats)
	}

	detail, err = svc.GetInventoryDetail(1, 1, 500)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.PageSize != 100 {
		t.Fatalf("page size should clamp to 100, got %d", detail.PageSize)
	}

	if _, err := svc.GetInventoryDetail(99, 1, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing lot should be not found, got %v", err)
	}
}

func TestQueryOperationRecordsDateBounds(t *testing.T) {
	svc := seedQueryLots(t)
	input := single(1, 3)
	input.Time = "2024-05-03 10:00:00"
	if _, err := svc.StockOut(context.Background(), input); err != nil {
		t.Fatalf("stock out failed: %v", err)
	}

	cases := []struct {
		name   string
		filter OperationRecordFilter
		want   int
	}{
		{name: "all", filter: OperationRecordFilter{}, want: 4},
		{name: "bare end date covers whole day", filter: OperationRecordFilter{EndDate: "2024-05-01"}, want: 3},
		{name: "start date", filter: OperationRecordFilter{StartDate: "2024-05-02"}, want: 1},
		{name: "type", filter: OperationRecordFilter{Types: []string{constants.OpOutbound}}, want: 1},
		{name: "inventory", filter: OperationRecordFilter{InventoryID: 3}, want: 1},
		{name: "type and inventory miss", filter: OperationRecordFilter{Types: []string{constants.OpOutbound}, InventoryID: 2}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views, err := svc.QueryOperationRecords(tc.filter)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if len(views) != tc.want {
				t.Fatalf("got %d records, want %d", len(views), tc.want)
			}
		})
	}

	views, err := svc.QueryOperationRecords(OperationRecordFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if views[0].Operation.Type != constants.OpOutbound || views[0].Product == nil || views[0].Product.Code != "LOT-A" {
		t.Fatalf("newest record should be the joined outbound: %+v", views[0])
	}

	if _, err := svc.QueryOperationRecords(OperationRecordFilter{StartDate: "05/01/2024"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad start date should be validation error, got %v", err)
	}
}

func TestLastAddressAndCapacity(t *testing.T) {
	empty, _ := newTestInventoryService(t)
	addr, err := empty.LastAddress()
	if err != nil {
		t.Fatalf("last address failed: %v", err)
	}
	if addr != (LastAddress{}) {
		t.Fatalf("empty tables should give empty address, got %+v", addr)
	}

	svc := seedQueryLots(t)
	addr, err = svc.LastAddress()
	if err != nil {
		t.Fatalf("last address failed: %v", err)
	}
	if addr.Floor != "2" || addr.BoxNo != "B3" || addr.AddressType != "1" || addr.ShelfNo != "A1" {
		t.Fatalf("unexpected last address %+v", addr)
	}

	views, err := svc.Capacity()
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	if len(views) != 5 {
		t.Fatalf("expected one view per configured floor, got %d", len(views))
	}
	if views[0].Floor != 1 || views[0].Used != 2 || views[0].Remaining != 98 {
		t.Fatalf("unexpected floor 1 capacity %+v", views[0])
	}
	if views[1].Floor != 2 || views[1].Used != 1 || views[1].Remaining != 99 {
		t.Fatalf("unexpected floor 2 capacity %+v", views[1])
	}
}
