package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(Options{
		DataDir:       t.TempDir(),
		Floors:        []int{1, 2, 3},
		FloorCapacity: 100,
	})
}

func writeRaw(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
}

func qty(t *testing.T, raw string) models.Quantity {
	t.Helper()
	q, err := models.ParseQuantity(raw)
	if err != nil {
		t.Fatalf("parse quantity failed: %v", err)
	}
	return q
}

func TestLoadAllMissingFilesReturnsEmptyTables(t *testing.T) {
	s := newTestStore(t)
	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Products) != 0 || len(tables.Inventory) != 0 || len(tables.Operations) != 0 {
		t.Fatalf("expected empty tables, got %+v", tables)
	}
	if len(tables.Capacity) != 3 {
		t.Fatalf("expected capacity rows for every floor, got %d", len(tables.Capacity))
	}
	if tables.Capacity[0].Floor != 1 || tables.Capacity[0].Remaining != 100 {
		t.Fatalf("unexpected capacity row: %+v", tables.Capacity[0])
	}
}

func TestSaveAllRoundTrip(t *testing.T) {
	s := newTestStore(t)
	opTime := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	tables := models.NewTables()
	tables.Products = []models.Product{{ID: 1, Code: "A-001", Type: "样品", Notes: "含,逗号", Purpose: "展示"}}
	tables.Features = []models.Feature{
		{ID: 1, ProductID: 1, UnitPrice: qty(t, "12.5"), Weight: qty(t, "0.3"), Spec: "大", Color: "红"},
		{ID: 2, ProductID: models.NoRef, UnitPrice: qty(t, "0"), Weight: qty(t, "0")},
	}
	tables.Locations = []models.Location{{ID: 1, AddressType: 1, Floor: 2, ShelfNo: "A1", BoxNo: "B2"}}
	tables.Manufacturers = []models.Manufacturer{{ID: 1, Name: "厂家甲", Address: "上海", Phone: "123"}}
	tables.Inventory = []models.Inventory{
		{ID: 1, FeatureID: 1, LocationID: 1, ManufacturerID: models.NoRef, Unit: "框", Quantity: qty(t, "70"), DefectQuantity: qty(t, "0"), Batch: 2, Status: "正常"},
		{ID: 2, FeatureID: 2, LocationID: 0, ManufacturerID: 1, Unit: "个", Quantity: qty(t, "-1"), DefectQuantity: qty(t, "1.5"), Batch: 1, Status: "正常"},
	}
	tables.Operations = []models.OperationRecord{
		{ID: 1, InventoryID: 1, Type: constants.OpInbound, Time: opTime, Quantity: qty(t, "100"), Operator: "张三", Note: "批量入库: A-001"},
		{ID: 2, InventoryID: 1, Type: constants.OpOutbound, Time: opTime, Quantity: qty(t, "30"), Operator: "李四"},
	}
	tables.Capacity = []models.Capacity{{Floor: 1, Capacity: 100, Remaining: 100}, {Floor: 2, Capacity: 100, Remaining: 99}, {Floor: 3, Capacity: 100, Remaining: 100}}

	if err := s.SaveAll(tables); err != nil {
		t.Fatalf("save all failed: %v", err)
	}
	got, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}

	if got.Products[0] != tables.Products[0] {
		t.Fatalf("product mismatch: want %+v got %+v", tables.Products[0], got.Products[0])
	}
	if got.Features[1].ProductID != models.NoRef {
		t.Fatalf("sentinel fk should round trip, got %d", got.Features[1].ProductID)
	}
	if got.Inventory[0].ManufacturerID != models.NoRef {
		t.Fatalf("sentinel manufacturer should round trip, got %d", got.Inventory[0].ManufacturerID)
	}
	if got.Inventory[1].LocationID != 0 {
		t.Fatalf("zero fk should stay zero, got %d", got.Inventory[1].LocationID)
	}
	if !got.Inventory[1].DefectQuantity.Equal(qty(t, "1.5").Decimal) {
		t.Fatalf("defect quantity mismatch: %s", got.Inventory[1].DefectQuantity)
	}
	if !got.Features[0].UnitPrice.Equal(qty(t, "12.5").Decimal) {
		t.Fatalf("unit price mismatch: %s", got.Features[0].UnitPrice)
	}
	if !got.Operations[0].Time.Equal(opTime) {
		t.Fatalf("operation time mismatch: %v", got.Operations[0].Time)
	}
	if got.Operations[1].Operator != "李四" || got.Operations[1].Type != constants.OpOutbound {
		t.Fatalf("operation mismatch: %+v", got.Operations[1])
	}
	if got.Capacity[1].Remaining != 99 {
		t.Fatalf("capacity mismatch: %+v", got.Capacity[1])
	}
}

func TestSaveAllWritesBOMAndHeader(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveAll(models.NewTables()); err != nil {
		t.Fatalf("save all failed: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(s.DataDir(), "product.csv"))
	if err != nil {
		t.Fatalf("read product failed: %v", err)
	}
	if !bytes.HasPrefix(content, utf8BOM) {
		t.Fatalf("expected utf-8 bom prefix")
	}
	if !bytes.Contains(content, []byte("商品ID,货号,类型,备注,用途")) {
		t.Fatalf("unexpected header: %s", content)
	}
	entries, err := os.ReadDir(s.DataDir())
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".csv" {
			t.Fatalf("unexpected leftover file: %s", entry.Name())
		}
	}
}

func TestLoadAllCoercesIDsAndDropsCorruptRows(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, filepath.Join(s.DataDir(), "inventory.csv"), []byte(
		"库存ID,关联商品特征ID,关联位置ID,关联厂家ID,单位,库存数量,次品数量,批次,状态\n"+
			" 3 ,2.0,,abc,,,,,\n"+
			"oops,1,1,1,个,5,0,1,正常\n"+
			"4.5,1,1,1,个,5,0,1,正常\n",
	))

	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Inventory) != 1 {
		t.Fatalf("expected one surviving row, got %d", len(tables.Inventory))
	}
	inv := tables.Inventory[0]
	if inv.ID != 3 || inv.FeatureID != 2 {
		t.Fatalf("unexpected coerced ids: %+v", inv)
	}
	if inv.LocationID != models.NoRef || inv.ManufacturerID != models.NoRef {
		t.Fatalf("blank or invalid fk should become sentinel: %+v", inv)
	}
	if inv.Unit != constants.DefaultUnit || inv.Status != constants.DefaultStatus || inv.Batch != constants.DefaultBatch {
		t.Fatalf("defaults not repaired: %+v", inv)
	}
	if !inv.Quantity.IsZero() {
		t.Fatalf("quantity should default to zero, got %s", inv.Quantity)
	}
}

func TestLoadAllMissingColumnsTakeDefaults(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, filepath.Join(s.DataDir(), "product.csv"), []byte("\ufeff商品ID,货号\n1,X-1\n"))
	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Products) != 1 || tables.Products[0].Code != "X-1" || tables.Products[0].Type != "" {
		t.Fatalf("unexpected product: %+v", tables.Products)
	}
}

func TestLoadAllFallsBackToBackup(t *testing.T) {
	s := newTestStore(t)
	dir := s.DataDir()
	writeRaw(t, filepath.Join(dir, "product.csv"), []byte("商品ID,货号\n1,\"unterminated\n"))
	writeRaw(t, filepath.Join(dir, "product.csv.backup"), []byte("商品ID,货号\n7,FROM-BACKUP\n"))
	writeRaw(t, filepath.Join(dir, "feature.csv"), []byte("no,id,column\n1,2,3\n"))

	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Products) != 1 || tables.Products[0].Code != "FROM-BACKUP" {
		t.Fatalf("expected backup fallback, got %+v", tables.Products)
	}
	if len(tables.Features) != 0 {
		t.Fatalf("expected empty fallback, got %+v", tables.Features)
	}
}

func TestLoadAllDecodesGB18030(t *testing.T) {
	s := newTestStore(t)
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("厂家ID,厂家,厂家地址,电话\n1,华南五金,广州,020\n"))
	if err != nil {
		t.Fatalf("encode gb18030 failed: %v", err)
	}
	writeRaw(t, filepath.Join(s.DataDir(), "manufacturer.csv"), encoded)

	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Manufacturers) != 1 || tables.Manufacturers[0].Name != "华南五金" {
		t.Fatalf("unexpected manufacturers: %+v", tables.Manufacturers)
	}
}

func TestBackupAndRestore(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RestoreAll(); !errors.Is(err, ErrNoBackup) {
		t.Fatalf("expected ErrNoBackup, got %v", err)
	}

	first := models.NewTables()
	first.Products = []models.Product{{ID: 1, Code: "OLD"}}
	if err := s.SaveAll(first); err != nil {
		t.Fatalf("save first failed: %v", err)
	}
	if err := s.BackupAll(); err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	second := first.Clone()
	second.Products = append(second.Products, models.Product{ID: 2, Code: "NEW"})
	if err := s.SaveAll(second); err != nil {
		t.Fatalf("save second failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		report, err := s.RestoreAll()
		if err != nil {
			t.Fatalf("restore %d failed: %v", i, err)
		}
		if len(report.Restored) != len(schemas) {
			t.Fatalf("expected all tables restored, got %v", report.Restored)
		}
		got, err := s.LoadAll()
		if err != nil {
			t.Fatalf("load after restore failed: %v", err)
		}
		if len(got.Products) != 1 || got.Products[0].Code != "OLD" {
			t.Fatalf("restore %d produced %+v", i, got.Products)
		}
	}
}

func TestBackupAllRemovesStaleBackupForMissingTable(t *testing.T) {
	s := newTestStore(t)
	stale := filepath.Join(s.DataDir(), "product.csv.backup")
	writeRaw(t, stale, []byte("商品ID,货号\n1,STALE\n"))
	if err := s.BackupAll(); err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale backup should be removed")
	}
}

func TestInitAndStatus(t *testing.T) {
	s := newTestStore(t)
	if s.Status().Initialized {
		t.Fatalf("empty dir should not be initialized")
	}
	if err := s.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	status := s.Status()
	if !status.Initialized || len(status.Missing) != 0 {
		t.Fatalf("expected initialized store, got %+v", status)
	}
	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(tables.Capacity) != 3 {
		t.Fatalf("init should seed capacity rows, got %+v", tables.Capacity)
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{raw: "3", want: 3, ok: true},
		{raw: " 3 ", want: 3, ok: true},
		{raw: "3.0", want: 3, ok: true},
		{raw: "-1", want: -1, ok: true},
		{raw: "3.5", ok: false},
		{raw: "", ok: false},
		{raw: "abc", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := coerceInt(tc.raw)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Fatalf("coerceInt(%q) = %d,%v want %d,%v", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestLoadSavePreservesUnparsedCells(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.DataDir(), "operation_record.csv")
	writeRaw(t, path, []byte(
		"操作ID,关联库存ID,操作类型,操作时间,操作数量,操作人,备注\n"+
			"1,1,入库,2024年5月1日 上午,10,张三,x\n"+
			"2,1,出库,2024-05-02 10:00:00,三个,李四,y\n",
	))

	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	if len(tables.Operations) != 2 {
		t.Fatalf("both rows should be kept, got %d", len(tables.Operations))
	}
	if tables.Operations[0].RawTime != "2024年5月1日 上午" || !tables.Operations[0].Time.IsZero() {
		t.Fatalf("unparsed time should keep raw text: %+v", tables.Operations[0])
	}
	if tables.Operations[1].Quantity.Valid() || tables.Operations[1].Quantity.Text() != "三个" {
		t.Fatalf("unparsed quantity should keep raw text: %+v", tables.Operations[1])
	}

	if err := s.SaveAll(tables); err != nil {
		t.Fatalf("save all failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read operation records failed: %v", err)
	}
	for _, want := range []string{"1,1,入库,2024年5月1日 上午,10,张三,x", "2,1,出库,2024-05-02 10:00:00,三个,李四,y"} {
		if !bytes.Contains(content, []byte(want)) {
			t.Fatalf("row %q lost after round trip:\n%s", want, content)
		}
	}
}

func TestLoadAllRejectsOutOfRangeQuantityCell(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, filepath.Join(s.DataDir(), "operation_record.csv"), []byte(
		"操作ID,关联库存ID,操作类型,操作时间,操作数量,操作人,备注\n"+
			"1,1,入库,2024-05-01 09:00:00,1e900000000,张三,\n",
	))
	tables, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load all failed: %v", err)
	}
	op := tables.Operations[0]
	if op.Quantity.Valid() || op.Quantity.Text() != "1e900000000" {
		t.Fatalf("out of range cell should be kept as raw text: %+v", op)
	}
}
