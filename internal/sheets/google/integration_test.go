//go:build integration

package google

import (
	"context"
	"encoding/json"
	"testing"

	"budget/internal/config"
	"budget/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportAndDeleteMonth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := config.Load()
	if !cfg.SheetsEnabled() {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	creds := CredentialsFromConfig(cfg)
	hasServiceAccount := creds.ServiceAccountJSON != "" || creds.ServiceAccountFile != ""
	hasOAuth := (creds.OAuthClientJSON != "" || creds.OAuthClientFile != "") &&
		(creds.OAuthTokenJSON != "" || creds.OAuthTokenFile != "")
	if !hasServiceAccount && !hasOAuth {
		t.Skip("Google credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg.GoogleSpreadsheetID, creds)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// A month far in the future keeps real tabs untouched.
	rec, err := core.NewMonthRecord(2099, 12)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.AddRow(core.LedgerIncome, json.RawMessage(`{"source":"Salary","estimated":"2000","actual":"2000"}`)); err != nil {
		t.Fatal(err)
	}
	if err := rec.AddRow(core.LedgerVariableCosts, json.RawMessage(`{"category":"Groceries","estimatedAmount":"300"}`)); err != nil {
		t.Fatal(err)
	}
	summary := core.Recompute(&rec)

	t.Cleanup(func() {
		if err := client.DeleteMonth(ctx, rec.Key()); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	})

	if err := client.ExportMonth(ctx, rec, summary); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}
	if _, found, err := client.sheetID(ctx, rec.Key()); err != nil || !found {
		t.Fatalf("tab %s after export: found=%v err=%v", rec.Key(), found, err)
	}

	// A second export rewrites the same tab.
	if err := client.ExportMonth(ctx, rec, summary); err != nil {
		t.Fatalf("second ExportMonth: %v", err)
	}
}
