package billing

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestExportXLSX_RoundTrip(t *testing.T) {
	fx := newFixture()
	b := fx.createBill(t, 100)
	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	data, err := fx.svc.ExportXLSX(context.Background(), testOrg, from, to)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != exportSheet {
		t.Fatalf("expected a single %q sheet, got %v", exportSheet, sheets)
	}
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one bill, got %d rows", len(rows))
	}
	for i, h := range exportHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	row := rows[1]
	if row[1] != b.ID.String() || row[2] != "Asha" || row[3] != "Dr. Rao" {
		t.Errorf("unexpected identity columns %v", row[:4])
	}
	if row[4] != "Glucose, Lipid Profile" {
		t.Errorf("unexpected tests column %q", row[4])
	}
	if row[5] != "770" || row[8] != "670" || row[9] != string(StatusPartial) {
		t.Errorf("unexpected amount columns %v", row[5:])
	}
}

func TestExportXLSX_EmptyRangeHasHeaderOnly(t *testing.T) {
	data, err := writeBillsSheet(nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(exportSheet)
	if len(rows) != 1 {
		t.Errorf("expected header row only, got %d rows", len(rows))
	}
}
