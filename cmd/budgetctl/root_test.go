package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budget/internal/services"
	"budget/internal/sheets/memory"
)

func run(t *testing.T, budget *services.BudgetService, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*services.BudgetService, func() error, error) {
		return budget, func() error { return nil }, nil
	}
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateShowAndList(t *testing.T) {
	budget := services.NewBudgetService(memory.New(), nil)

	out, err := run(t, budget, "create", "2025-01")
	if err != nil || !strings.Contains(out, "Created 2025-01") {
		t.Fatalf("create: %q, %v", out, err)
	}
	if _, err := run(t, budget, "create", "2025-01"); err == nil {
		t.Fatal("duplicate create succeeded")
	}

	out, err = run(t, budget, "show", "2025-01")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"January 2025", "Grand savings", "£0.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, budget, "list")
	if err != nil || !strings.Contains(out, "2025-01") {
		t.Fatalf("list: %q, %v", out, err)
	}
}

func TestCreateDefaultsToCurrentMonth(t *testing.T) {
	old := now
	now = func() time.Time { return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) }
	defer func() { now = old }()

	budget := services.NewBudgetService(memory.New(), nil)
	out, err := run(t, budget, "create")
	if err != nil || !strings.Contains(out, "Created 2026-03") {
		t.Fatalf("create: %q, %v", out, err)
	}
}

func TestCopyExportImport(t *testing.T) {
	budget := services.NewBudgetService(memory.New(), nil)
	if _, err := run(t, budget, "create", "2025-01"); err != nil {
		t.Fatal(err)
	}
	if out, err := run(t, budget, "copy", "2025-01", "2025-02"); err != nil || !strings.Contains(out, "into 2025-02") {
		t.Fatalf("copy: %q, %v", out, err)
	}

	file := filepath.Join(t.TempDir(), "feb.json")
	if _, err := run(t, budget, "export", "2025-02", "-o", file); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(file)
	if err != nil || !bytes.Contains(data, []byte("February")) {
		t.Fatalf("exported document: %s, %v", data, err)
	}

	if _, err := run(t, budget, "import", file); err == nil {
		t.Fatal("import over an existing month succeeded without --overwrite")
	}
	if out, err := run(t, budget, "import", "--overwrite", file); err != nil || !strings.Contains(out, "Imported 2025-02") {
		t.Fatalf("import: %q, %v", out, err)
	}

	if _, err := run(t, budget, "delete", "2025-02"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, budget, "show", "2025-02"); err == nil {
		t.Fatal("deleted month still shown")
	}
}
