// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package archive

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"whoisreport/pkg/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecords(n int) []*model.Record {
	records := make([]*model.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, &model.Record{
			IP:             fmt.Sprintf("10.0.0.%d", i+1),
			Organization:   "Example Org",
			Country:        "Germany",
			City:           "Berlin",
			Region:         "Land Berlin",
			Netname:        "EXAMPLEORG",
			ASN:            "AS64512",
			ASNDescription: "Example Org",
			ISP:            "Example ISP",
			PostalCode:     "10115",
			Timezone:       "Europe/Berlin",
			DataSource:     "ipapi.co",
			Success:        model.SuccessYes,
		})
	}
	return records
}

func testRun(started time.Time) *Run {
	stats := &model.RunStats{
		Processed:  3,
		Successful: 2,
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Second),
	}
	return NewRun(stats, "ip_list.txt", "WHOIS_Analysis_Report.xlsx", []string{"ipapi.co", "ipwhois.app"})
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}

	if db.Path() != dir {
		t.Errorf("got path %s, want %s", db.Path(), dir)
	}
	if _, err := db.Runs(); err != nil {
		t.Errorf("Runs() on open archive error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
	if err := db.Close(); !errors.Is(err, model.ErrArchiveClosed) {
		t.Errorf("second Close() got %v, want ErrArchiveClosed", err)
	}
	if _, err := db.Runs(); !errors.Is(err, model.ErrArchiveClosed) {
		t.Errorf("Runs() on closed archive got %v", err)
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	run := testRun(started)
	records := testRecords(3)
	records[2].Organization = model.NA
	records[2].Success = model.SuccessNo

	if err := db.SaveRun(run, records); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !got.StartedAt.Equal(run.StartedAt) || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("timestamps not preserved: got %v..%v", got.StartedAt, got.FinishedAt)
	}
	if got.Processed != 3 || got.Successful != 2 || got.Input != "ip_list.txt" {
		t.Errorf("unexpected run %+v", got)
	}
	if !reflect.DeepEqual(got.Providers, run.Providers) {
		t.Errorf("got providers %v, want %v", got.Providers, run.Providers)
	}

	stored, err := db.Records(run.ID)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if !reflect.DeepEqual(stored, records) {
		t.Errorf("records not preserved:\ngot  %+v\nwant %+v", stored, records)
	}
}

func TestRecordsKeepOrderPastByteBoundary(t *testing.T) {
	db := openTestDB(t)

	run := testRun(time.Now())
	records := testRecords(300)
	if err := db.SaveRun(run, records); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	stored, err := db.Records(run.ID)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(stored) != len(records) {
		t.Fatalf("got %d records, want %d", len(stored), len(records))
	}
	for i := range records {
		if stored[i].IP != records[i].IP {
			t.Fatalf("record %d: got %s, want %s", i, stored[i].IP, records[i].IP)
		}
	}
}

func TestRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	older := testRun(base)
	newer := testRun(base.Add(24 * time.Hour))
	for _, r := range []*Run{older, newer} {
		if err := db.SaveRun(r, testRecords(1)); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("runs not ordered newest first")
	}
}

func TestUnknownRun(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetRun("missing"); !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("GetRun() got %v, want ErrRunNotFound", err)
	}
	if _, err := db.Records("missing"); !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("Records() got %v, want ErrRunNotFound", err)
	}
	if err := db.DeleteRun("missing"); !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("DeleteRun() got %v, want ErrRunNotFound", err)
	}
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)

	keep := testRun(time.Now())
	drop := testRun(time.Now())
	for _, r := range []*Run{keep, drop} {
		if err := db.SaveRun(r, testRecords(4)); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	if err := db.DeleteRun(drop.ID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != keep.ID {
		t.Errorf("got runs %v, want only %s", runs, keep.ID)
	}

	records, err := db.Records(keep.ID)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 4 {
		t.Errorf("got %d records for kept run, want 4", len(records))
	}
}

func TestRecordKey(t *testing.T) {
	key := RecordKey("abc", 258)
	want := []byte{'r', 'e', 'c', ':', 'a', 'b', 'c', ':', 0, 0, 1, 2}
	if !reflect.DeepEqual(key, want) {
		t.Errorf("got %v, want %v", key, want)
	}

	seq, err := DecodeRecordKey("abc", key)
	if err != nil {
		t.Fatalf("DecodeRecordKey() error = %v", err)
	}
	if seq != 258 {
		t.Errorf("got seq %d, want 258", seq)
	}

	if _, err := DecodeRecordKey("abd", key); err == nil {
		t.Error("expected error for key of another run")
	}
	if _, err := DecodeRecordKey("abc", key[:len(key)-1]); err == nil {
		t.Error("expected error for short key")
	}
}
