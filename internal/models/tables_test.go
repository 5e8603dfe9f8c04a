package models

import "testing"

func TestNextIDAllocators(t *testing.T) {
	empty := NewTables()
	cases := []struct {
		name string
		next func(*Tables) int
	}{
		{"product", (*Tables).NextProductID},
		{"feature", (*Tables).NextFeatureID},
		{"inventory", (*Tables).NextInventoryID},
		{"location", (*Tables).NextLocationID},
		{"manufacturer", (*Tables).NextManufacturerID},
		{"operation", (*Tables).NextOperationID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.next(empty); got != 1 {
				t.Fatalf("empty table should start at 1, got %d", got)
			}
		})
	}

	gapped := NewTables()
	gapped.Products = []Product{{ID: 2}, {ID: 9}, {ID: 4}}
	gapped.Features = []Feature{{ID: 7}, {ID: 3}}
	gapped.Inventory = []Inventory{{ID: 1}, {ID: 5}}
	gapped.Locations = []Location{{ID: 12}}
	gapped.Manufacturers = []Manufacturer{{ID: 3}, {ID: 1}}
	gapped.Operations = []OperationRecord{{ID: 40}, {ID: 2}, {ID: 41}}
	want := map[string]int{
		"product": 10, "feature": 8, "inventory": 6,
		"location": 13, "manufacturer": 4, "operation": 42,
	}
	for _, tc := range cases {
		t.Run(tc.name+" gapped", func(t *testing.T) {
			if got := tc.next(gapped); got != want[tc.name] {
				t.Fatalf("want %d got %d", want[tc.name], got)
			}
		})
	}
}

func TestOperationRecordTimeText(t *testing.T) {
	rec := OperationRecord{RawTime: "2024年5月1日 上午"}
	if rec.TimeText() != "2024年5月1日 上午" {
		t.Fatalf("raw time should be kept, got %q", rec.TimeText())
	}
	parsed, err := ParseOperationTime("2024-05-01 09:30:00")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	rec = OperationRecord{Time: parsed}
	if rec.TimeText() != "2024-05-01 09:30:00" {
		t.Fatalf("unexpected time text %q", rec.TimeText())
	}
}

func TestParseQuantityRange(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"10", true},
		{"-1", true},
		{"0.25", true},
		{"1000000000000", true},
		{"1000000000001", false},
		{"1e900000000", false},
		{"1e-900000000", false},
		{"abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			_, err := ParseQuantity(tc.raw)
			if (err == nil) != tc.ok {
				t.Fatalf("ParseQuantity(%q) err=%v, want ok=%v", tc.raw, err, tc.ok)
			}
		})
	}
	if q := UnparsedQuantity("三个"); q.Valid() || q.Text() != "三个" {
		t.Fatalf("unparsed quantity should keep raw text")
	}
}
