// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package report

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"whoisreport/pkg/model"
)

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WHOIS_Analysis_Report.xlsx")
	r := Build(sampleRecords(), time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC))

	if err := WriteXLSX(path, r); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	wantSheets := []string{SheetAll, SheetByOrganization, SheetByCountry, SheetByASN, SheetSuccessful, SheetSummary}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, wantSheets) {
		t.Fatalf("got sheets %v, want %v", got, wantSheets)
	}

	rows, err := f.GetRows(SheetAll)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("got %d rows in %s, want 7", len(rows), SheetAll)
	}
	if rows[0][0] != "ip" || rows[0][12] != "success" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "1.1.1.1" || rows[1][1] != "Acme" {
		t.Errorf("unexpected first row %v", rows[1])
	}

	orgRows, err := f.GetRows(SheetByOrganization)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if want := []string{"Acme", "3", "Germany", "AS100"}; !reflect.DeepEqual(orgRows[1], want) {
		t.Errorf("got %v, want %v", orgRows[1], want)
	}

	summary, err := f.GetRows(SheetSummary)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if summary[3][1] != "83.3%" {
		t.Errorf("got success rate %v, want 83.3%%", summary[3][1])
	}

	width, err := f.GetColWidth(SheetAll, "B")
	if err != nil {
		t.Fatalf("GetColWidth() error = %v", err)
	}
	if width != 35 {
		t.Errorf("got column B width %v, want 35", width)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteXLSXEmptyViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	records := []*model.Record{rec("10.0.0.1", model.NA, model.NA, model.NA)}

	if err := WriteXLSX(path, Build(records, time.Now())); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	if n := len(f.GetSheetList()); n != 6 {
		t.Errorf("got %d sheets, want 6", n)
	}
	rows, err := f.GetRows(SheetByOrganization)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestWriteXLSXUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "report.xlsx")
	if err := WriteXLSX(path, Build(sampleRecords(), time.Now())); err == nil {
		t.Error("expected error for unwritable destination")
	}
}
