package sequence

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

func mustScanner(t *testing.T, spec Spec) *Scanner {
	t.Helper()
	s, err := NewScanner(spec, nil)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	return s
}

var vehicleSpec = FieldSpec{
	Name: "truck_no",
	Rules: []FieldRule{
		{Kind: RuleLine, Pattern: `\b([A-Z]{2}\d{2}[A-Z]{2}\d{4})\b`, CaseSensitive: true},
		{Kind: RuleText, Pattern: `Truck NO\.?\s*:?\s*([A-Z0-9]+)`, Corrector: "vehicle_number"},
	},
}

var ac4Spec = FieldSpec{
	Name: "ac4_no",
	Rules: []FieldRule{
		{Kind: RuleLookahead, Anchor: `AC4`, Pattern: `\b(\d{10})\b`, Lines: 5},
		{Kind: RuleText, Pattern: `AC4\s*:?\s*(\d+)`},
	},
}

func TestFieldRuleChain(t *testing.T) {
	s := mustScanner(t, Spec{Fields: []FieldSpec{
		{Name: "sap_plant_code", Rules: []FieldRule{{Kind: RuleText, Pattern: `SAP Plant Code\s*:?\s*(\d+)`}}},
		vehicleSpec,
		ac4Spec,
		{Name: "missing", Rules: []FieldRule{{Kind: RuleText, Pattern: `Nothing Here (\d+)`}}},
	}})

	tests := []struct {
		name  string
		lines []string
		want  map[string]*string
	}{
		{
			name: "primary rules",
			lines: []string{
				"sap plant code: 1234",
				"Vehicle TS10UB9177 loaded",
				"AC4 Details",
				"Receipt",
				"9876543210",
			},
			want: map[string]*string{
				"sap_plant_code": entity.Ptr("1234"),
				"truck_no":       entity.Ptr("TS10UB9177"),
				"ac4_no":         entity.Ptr("9876543210"),
				"missing":        nil,
			},
		},
		{
			name: "fallbacks and corrector",
			lines: []string{
				"Truck NO. TSTZUA5601",
				"ts10ub9177",
				"AC4: 42",
				"a",
				"b",
				"c",
				"d",
				"1234567890",
			},
			want: map[string]*string{
				"sap_plant_code": nil,
				"truck_no":       entity.Ptr("TS12UA5601"),
				"ac4_no":         entity.Ptr("42"),
				"missing":        nil,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, items := s.Scan(entity.NewLineBuffer(tt.lines))
			if diff := cmp.Diff(tt.want, fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
			if len(items) != 0 {
				t.Errorf("Expected no items, got %d", len(items))
			}
		})
	}
}

var equipmentWindow = WindowSpec{
	Kind:   "equipment",
	Anchor: `^Equipment Code`,
	Size:   20,
	Parts: []PartSpec{
		{Name: "desc", Pattern: `Kg LPG Cylinder`},
		{Name: "empty", Pattern: `Empty`},
		{Name: "code", Pattern: `\(M\d+`, CaseSensitive: true, Remove: []string{"_", " "}},
	},
	Composites: []CompositeSpec{{Name: "equipment_code", Format: "{desc} - {empty} {code}"}},
	Pairs:      []PairSpec{{Name: "return_description", Line: "Good", Next: "On-Hand", Value: "Good / On-Hand"}},
	After:      []AfterSpec{{Name: "quantity", Marker: `^Return Description`, Pattern: `^\d{1,5}$`}},
}

func TestChallanWindow(t *testing.T) {
	s := mustScanner(t, Spec{
		Fields:  []FieldSpec{{Name: "delivery_challan_date", Rules: []FieldRule{{Kind: RuleText, Pattern: `Delivery Challan Date\s*:?\s*([0-9\-:\. ]+[APM]{2})`}}}},
		Windows: []WindowSpec{equipmentWindow},
		Derived: []DerivedSpec{{Name: "delivery_challan_timestamp", From: "delivery_challan_date", Transform: "indian_datetime"}},
	})

	lines := []string{
		"Delivery Challan Date: 05-03-2024 02.15.30 PM",
		"Equipment Code",
		"Return Description",
		"14.2 Kg LPG Cylinder",
		"Empty",
		"(M1_2345 )",
		"Good",
		"On-Hand Stock",
		"12",
		"Footer",
	}
	fields, items := s.Scan(entity.NewLineBuffer(lines))

	want := map[string]*string{
		"delivery_challan_date":      entity.Ptr("05-03-2024 02.15.30 PM"),
		"delivery_challan_timestamp": entity.Ptr("2024-03-05 14:15:30"),
		"equipment_code":             entity.Ptr("14.2 Kg LPG Cylinder - Empty (M12345)"),
		"return_description":         entity.Ptr("Good / On-Hand"),
		"quantity":                   entity.Ptr("12"),
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(items) != 1 || items[0].Kind != "equipment" {
		t.Fatalf("Expected one equipment row, got %+v", items)
	}
	if v, _ := items[0].Get("quantity"); v != "12" {
		t.Errorf("Expected quantity 12, got %q", v)
	}

	wantOrder := []string{"delivery_challan_date", "equipment_code", "return_description", "quantity", "delivery_challan_timestamp"}
	if diff := cmp.Diff(wantOrder, s.FieldOrder()); diff != "" {
		t.Errorf("FieldOrder (-want +got):\n%s", diff)
	}
}

func TestChallanWindowMissingPart(t *testing.T) {
	s := mustScanner(t, Spec{Windows: []WindowSpec{equipmentWindow}})
	fields, items := s.Scan(entity.NewLineBuffer([]string{
		"Equipment Code",
		"14.2 Kg LPG Cylinder",
		"(M12345)",
	}))
	if fields["equipment_code"] != nil {
		t.Errorf("Expected nil equipment_code, got %q", *fields["equipment_code"])
	}
	for _, k := range []string{"equipment_code", "return_description", "quantity"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("Expected key %q to be present", k)
		}
	}
	if len(items) != 0 {
		t.Errorf("Expected no rows, got %d", len(items))
	}
}

var materialBlock = BlockSpec{
	Kind: "material",
	Slots: []SlotSpec{
		{Name: "item_no", Validator: "item_number"},
		{Name: "material_code", Validator: "material_code"},
		{Name: "material_description"},
		{Name: "quantity", Validator: "quantity"},
		{Name: "unit"},
		{Name: "hsn_code", Validator: "hsn_code"},
	},
}

func materialRow(item, code, desc, qty, unit, hsn string) entity.LineItemRow {
	return entity.LineItemRow{Kind: "material", Values: []entity.Value{
		{Name: "item_no", Value: item},
		{Name: "material_code", Value: code},
		{Name: "material_description", Value: desc},
		{Name: "quantity", Value: qty},
		{Name: "unit", Value: unit},
		{Name: "hsn_code", Value: hsn},
	}}
}

func TestBlockScan(t *testing.T) {
	s := mustScanner(t, Spec{Blocks: []BlockSpec{materialBlock}})

	tests := []struct {
		name  string
		lines []string
		want  []entity.LineItemRow
	}{
		{
			name: "two clean blocks",
			lines: []string{
				"Item", "10", "M12345", "LPG 14.2", "2.5", "EA", "271111",
				"20", "M5432", "Valve", "3", "NOS", "848180",
			},
			want: []entity.LineItemRow{
				materialRow("10", "M12345", "LPG 14.2", "2.5", "EA", "271111"),
				materialRow("20", "M5432", "Valve", "3", "NOS", "848180"),
			},
		},
		{
			name: "resync after injected noise",
			lines: []string{
				"10", "M12345", "NOISE", "LPG 14.2", "2.5", "EA", "271111",
				"20", "M5432", "Valve", "3", "NOS", "848180",
			},
			want: []entity.LineItemRow{
				materialRow("20", "M5432", "Valve", "3", "NOS", "848180"),
			},
		},
		{
			name:  "truncated block",
			lines: []string{"10", "M12345", "LPG", "2.5"},
			want:  []entity.LineItemRow{},
		},
		{
			name:  "anchor inside rejected block",
			lines: []string{"10", "99", "M12345", "LPG", " 4 ", "KG", " 271111 "},
			want: []entity.LineItemRow{
				materialRow("99", "M12345", "LPG", "4", "KG", "271111"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, items := s.Scan(entity.NewLineBuffer(tt.lines))
			if diff := cmp.Diff(tt.want, items); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewScannerRejectsBadSpecs(t *testing.T) {
	tests := map[string]Spec{
		"bad kind":       {Fields: []FieldSpec{{Name: "a", Rules: []FieldRule{{Kind: "fuzzy", Pattern: "x"}}}}},
		"bad regex":      {Fields: []FieldSpec{{Name: "a", Rules: []FieldRule{{Kind: RuleText, Pattern: "("}}}}},
		"bad corrector":  {Fields: []FieldSpec{{Name: "a", Rules: []FieldRule{{Kind: RuleText, Pattern: "x", Corrector: "nope"}}}}},
		"duplicate":      {Fields: []FieldSpec{{Name: "a"}, {Name: "a"}}},
		"unknown source": {Derived: []DerivedSpec{{Name: "d", From: "x", Transform: "indian_datetime"}}},
		"bad validator":  {Blocks: []BlockSpec{{Kind: "b", Slots: []SlotSpec{{Name: "s", Validator: "nope"}}}}},
		"bad composite":  {Windows: []WindowSpec{{Kind: "w", Anchor: "x", Size: 2, Composites: []CompositeSpec{{Name: "c", Format: "{ghost}"}}}}},
	}
	for name, spec := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewScanner(spec, nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
