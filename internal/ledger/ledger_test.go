package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/warehouse/internal/constants"
	"github.com/dujiao-next/warehouse/internal/models"
)

type recordBuilder struct {
	records []models.OperationRecord
	nextID  int
	at      time.Time
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{nextID: 1, at: time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)}
}

func (b *recordBuilder) add(lotID int, opType string, raw string) *recordBuilder {
	q, err := models.ParseQuantity(raw)
	if err != nil {
		panic(err)
	}
	b.records = append(b.records, models.OperationRecord{
		ID:          b.nextID,
		InventoryID: lotID,
		Type:        opType,
		Time:        b.at.Add(time.Duration(b.nextID) * time.Minute),
		Quantity:    q,
	})
	b.nextID++
	return b
}

func mustQty(t *testing.T, raw string) models.Quantity {
	t.Helper()
	q, err := models.ParseQuantity(raw)
	if err != nil {
		t.Fatalf("parse quantity failed: %v", err)
	}
	return q
}

func TestComputeStockFormula(t *testing.T) {
	b := newRecordBuilder().
		add(1, constants.OpInbound, "100").
		add(1, constants.OpOutbound, "30").
		add(1, constants.OpLend, "20").
		add(1, constants.OpReturn, "5").
		add(2, constants.OpInbound, "999").
		add(1, constants.OpInbound, "0.1").
		add(1, constants.OpInbound, "0.2")

	got, special := ComputeStock(1, b.records)
	if special {
		t.Fatalf("lot should not be special")
	}
	if !got.Equal(mustQty(t, "55.3").Decimal) {
		t.Fatalf("want 55.3 got %s", got)
	}
}

func TestComputeStockEmptyLot(t *testing.T) {
	got, special := ComputeStock(9, nil)
	if special || !got.IsZero() {
		t.Fatalf("empty lot should be zero and not special, got %s %v", got, special)
	}
}

func TestComputeStockSpecialUsesFirstRecordByID(t *testing.T) {
	records := []models.OperationRecord{
		{ID: 5, InventoryID: 1, Type: constants.OpOutbound, Quantity: mustQty(t, "50")},
		{ID: 2, InventoryID: 1, Type: constants.OpInbound, Quantity: mustQty(t, "-1")},
	}
	got, special := ComputeStock(1, records)
	if !special || !got.Equal(SpecialStock.Decimal) {
		t.Fatalf("expected special sentinel, got %s %v", got, special)
	}

	records[1].ID = 9
	got, special = ComputeStock(1, records)
	if special {
		t.Fatalf("lot whose first record is outbound should not be special")
	}
	if !got.Equal(mustQty(t, "-51").Decimal) {
		t.Fatalf("want -51 got %s", got)
	}
}

func TestSpecialLotScenario(t *testing.T) {
	b := newRecordBuilder()
	verdict, err := ValidateOperation(1, constants.OpInbound, -1, b.records)
	if err != nil {
		t.Fatalf("first inbound -1 should be accepted: %v", err)
	}
	if !verdict.Special {
		t.Fatalf("first inbound -1 should mark lot special")
	}
	b.add(1, constants.OpInbound, "-1")

	for _, opType := range []string{constants.OpOutbound, constants.OpLend, constants.OpReturn} {
		verdict, err = ValidateOperation(1, opType, "50", b.records)
		if err != nil {
			t.Fatalf("%s on special lot should bypass sufficiency: %v", opType, err)
		}
		if !verdict.Current.Equal(SpecialStock.Decimal) {
			t.Fatalf("special current should be -1, got %s", verdict.Current)
		}
		b.add(1, opType, "50")
	}

	got, special := ComputeStock(1, b.records)
	if !special || !got.Equal(SpecialStock.Decimal) {
		t.Fatalf("special lot should keep reporting -1, got %s", got)
	}

	if _, err := ValidateOperation(1, constants.OpOutbound, "0", b.records); err == nil {
		t.Fatalf("non-positive outbound on special lot should be rejected")
	}
	if _, err := ValidateOperation(1, constants.OpInbound, "-1", b.records); err == nil {
		t.Fatalf("second inbound -1 should be rejected")
	}
	if _, err := ValidateOperation(1, constants.OpInbound, "5", b.records); err != nil {
		t.Fatalf("positive inbound on special lot should pass: %v", err)
	}
}

func TestSufficiencyScenario(t *testing.T) {
	b := newRecordBuilder().
		add(1, constants.OpInbound, "100").
		add(1, constants.OpOutbound, "30")

	_, err := ValidateOperation(1, constants.OpOutbound, 80, b.records)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || ruleErr.Reason != ReasonInsufficient {
		t.Fatalf("expected insufficient error, got %v", err)
	}
	if !strings.Contains(ruleErr.Message, "70") || !strings.Contains(ruleErr.Message, "80") {
		t.Fatalf("message should cite current and requested: %s", ruleErr.Message)
	}

	verdict, err := ValidateOperation(1, constants.OpOutbound, "70", b.records)
	if err != nil {
		t.Fatalf("outbound of full stock should pass: %v", err)
	}
	if !verdict.Current.Equal(mustQty(t, "70").Decimal) {
		t.Fatalf("unexpected current %s", verdict.Current)
	}
	b.add(1, constants.OpOutbound, "70")
	got, _ := ComputeStock(1, b.records)
	if !got.IsZero() {
		t.Fatalf("expected zero stock, got %s", got)
	}
}

func TestValidateOperationRules(t *testing.T) {
	records := newRecordBuilder().add(1, constants.OpInbound, "10").records
	cases := []struct {
		name   string
		opType string
		raw    interface{}
		reason Reason
	}{
		{name: "unknown type", opType: "调拨", raw: "1", reason: ReasonInvalidType},
		{name: "non numeric", opType: constants.OpOutbound, raw: "abc", reason: ReasonInvalidQuantity},
		{name: "nil quantity", opType: constants.OpLend, raw: nil, reason: ReasonInvalidQuantity},
		{name: "zero inbound", opType: constants.OpInbound, raw: "0", reason: ReasonNonPositive},
		{name: "negative inbound on used lot", opType: constants.OpInbound, raw: "-1", reason: ReasonNonPositive},
		{name: "zero return", opType: constants.OpReturn, raw: 0, reason: ReasonNonPositive},
		{name: "lend too much", opType: constants.OpLend, raw: 10.5, reason: ReasonInsufficient},
		{name: "ok outbound", opType: constants.OpOutbound, raw: "10"},
		{name: "ok return above stock", opType: constants.OpReturn, raw: "500"},
		{name: "ok numeric string with spaces", opType: constants.OpLend, raw: " 2.5 "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateOperation(1, tc.opType, tc.raw, records)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("expected pass, got %v", err)
				}
				return
			}
			var ruleErr *RuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("expected rule error, got %v", err)
			}
			if ruleErr.Reason != tc.reason {
				t.Fatalf("want reason %s got %s (%s)", tc.reason, ruleErr.Reason, ruleErr.Message)
			}
		})
	}
}

func TestLendReturnScenario(t *testing.T) {
	b := newRecordBuilder().
		add(1, constants.OpInbound, "100").
		add(1, constants.OpLend, "20")

	err := CheckReturn(1, mustQty(t, "25"), b.records)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || ruleErr.Reason != ReasonExceedsLent {
		t.Fatalf("return above net lent should be rejected, got %v", err)
	}

	if err := CheckReturn(1, mustQty(t, "20"), b.records); err != nil {
		t.Fatalf("return of full lent should pass: %v", err)
	}
	b.add(1, constants.OpReturn, "20")

	s := Summarize(1, b.records)
	if !s.NetLent.IsZero() {
		t.Fatalf("net lent should be zero, got %s", s.NetLent)
	}
	err = CheckReturn(1, mustQty(t, "0.01"), b.records)
	if !errors.As(err, &ruleErr) || ruleErr.Reason != ReasonNoOutstanding {
		t.Fatalf("return without outstanding lend should be rejected, got %v", err)
	}
}

func TestSummarizeStatusText(t *testing.T) {
	b := newRecordBuilder().
		add(1, constants.OpInbound, "100").
		add(1, constants.OpInbound, "50").
		add(1, constants.OpOutbound, "30").
		add(1, constants.OpLend, "20").
		add(1, constants.OpReturn, "5").
		add(1, "盘点", "1")

	s := Summarize(1, b.records)
	want := "入:2次(150个) 出:1次(30个) 借:1次(20个) 还:1次(5个) (15个未还)"
	if s.Status != want {
		t.Fatalf("want %q got %q", want, s.Status)
	}
	if s.OtherCounts["盘点"] != 1 || s.RecordCount != 6 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !s.Current.Equal(mustQty(t, "105").Decimal) {
		t.Fatalf("unexpected current %s", s.Current)
	}
	if !s.LastOperation.Equal(b.records[len(b.records)-1].Time) {
		t.Fatalf("unexpected last operation time %v", s.LastOperation)
	}

	if got := Summarize(2, b.records).Status; got != constants.NoOperationsStatus {
		t.Fatalf("want %q got %q", constants.NoOperationsStatus, got)
	}
}

func TestValidateOperationRejectsOutOfRangeQuantity(t *testing.T) {
	records := newRecordBuilder().add(1, constants.OpInbound, "100").records
	cases := []struct {
		name string
		raw  interface{}
	}{
		{name: "huge exponent number", raw: json.Number("1e900000000")},
		{name: "tiny exponent string", raw: "1e-900000000"},
		{name: "above limit", raw: "10000000000000"},
		{name: "huge float", raw: 1e300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := ValidateOperation(1, constants.OpOutbound, tc.raw, records)
				done <- err
			}()
			select {
			case err := <-done:
				var ruleErr *RuleError
				if !errors.As(err, &ruleErr) || ruleErr.Reason != ReasonInvalidQuantity {
					t.Fatalf("expected invalid quantity, got %v", err)
				}
				if !strings.Contains(ruleErr.Message, "出库数量格式错误") {
					t.Fatalf("unexpected message %s", ruleErr.Message)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("ValidateOperation did not return in time")
			}
		})
	}

	if _, err := ValidateOperation(1, constants.OpOutbound, "1000000000000", records); err == nil {
		t.Fatalf("limit value should pass range check and fail on stock")
	} else {
		var ruleErr *RuleError
		if !errors.As(err, &ruleErr) || ruleErr.Reason != ReasonInsufficient {
			t.Fatalf("expected insufficient, got %v", err)
		}
	}
}

func TestLedgerSkipsUnparsedRecords(t *testing.T) {
	records := newRecordBuilder().
		add(1, constants.OpInbound, "10").
		add(1, constants.OpOutbound, "3").
		records
	records = append(records, models.OperationRecord{
		ID:          3,
		InventoryID: 1,
		Type:        constants.OpOutbound,
		Quantity:    models.UnparsedQuantity("三个"),
	})

	current, special := ComputeStock(1, records)
	if special || current.String() != "7" {
		t.Fatalf("unparsed record should be skipped, got %s special=%v", current, special)
	}
	summary := Summarize(1, records)
	if summary.RecordCount != 2 || summary.Counts[constants.OpOutbound] != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
