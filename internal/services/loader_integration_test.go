package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	testhelpers "github.com/vvka-141/tabsync/internal/testing"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

func writeSourceFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	return path
}

func integrationConfig(path, database, table string) tabsync.LoadConfig {
	return tabsync.LoadConfig{
		FilePath:           path,
		Database:           database,
		ManagementDatabase: tabsync.DefaultManagementDB,
		Schema:             tabsync.DefaultSchema,
		Table:              table,
		Mode:               tabsync.ModeUpdate,
		BatchSize:          tabsync.DefaultBatchSize,
		SurrogateKey:       tabsync.DefaultSurrogateKey,
	}
}

func countRows(t *testing.T, connString, dbName, table string) int {
	t.Helper()

	pool := testhelpers.GetTestPool(t, connString, dbName)
	var count int
	err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM public."+table).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return count
}

func columnTypes(t *testing.T, connString, dbName, table string) map[string][2]string {
	t.Helper()

	pool := testhelpers.GetTestPool(t, connString, dbName)
	rows, err := pool.Query(context.Background(),
		`SELECT column_name, data_type, is_nullable
		 FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		t.Fatalf("Failed to read column types: %v", err)
	}
	defer rows.Close()

	types := make(map[string][2]string)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			t.Fatalf("Failed to scan column row: %v", err)
		}
		types[name] = [2]string{dataType, nullable}
	}
	return types
}

func TestLoadService_BootstrapAndTypedLoad(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_bootstrap"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	path := writeSourceFile(t, "readings.csv",
		"id,qty,price,active,day,at,note\n"+
			"1,42,9.99,true,2024-03-05,2024-03-05 10:30:00,hello\n"+
			"2,,0.5,false,2023-12-31,2023-12-31 23:59:59,\"with,comma\"\n"+
			"3,7,100,TRUE,2024-01-01,2024-01-01 00:00:00,\n")

	result, err := loader.Load(ctx, integrationConfig(path, testDB, "readings"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Status != tabsync.StatusSuccess {
		t.Fatalf("Expected success, got %s", result.Status)
	}
	if result.RowsWritten != 3 {
		t.Errorf("Expected 3 rows written, got %d", result.RowsWritten)
	}

	// The target database did not exist; the run must have created it.
	if got := countRows(t, connString, testDB, "readings"); got != 3 {
		t.Errorf("Expected 3 rows, got %d", got)
	}

	types := columnTypes(t, connString, testDB, "readings")
	expected := map[string][2]string{
		"idpk":   {"bigint", "NO"},
		"id":     {"bigint", "NO"},
		"qty":    {"bigint", "YES"},
		"price":  {"numeric", "NO"},
		"active": {"boolean", "NO"},
		"day":    {"date", "NO"},
		"at":     {"timestamp without time zone", "NO"},
		"note":   {"text", "YES"},
	}
	for col, want := range expected {
		got, ok := types[col]
		if !ok {
			t.Errorf("Expected column %s to exist", col)
			continue
		}
		if got != want {
			t.Errorf("Column %s: got %v, want %v", col, got, want)
		}
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)

	var qty *int64
	if err := pool.QueryRow(ctx, "SELECT qty FROM public.readings WHERE id = 2").Scan(&qty); err != nil {
		t.Fatalf("Failed to read qty: %v", err)
	}
	if qty != nil {
		t.Errorf("Expected blank cell to load as NULL, got %v", *qty)
	}

	var price string
	if err := pool.QueryRow(ctx, "SELECT price::text FROM public.readings WHERE id = 3").Scan(&price); err != nil {
		t.Fatalf("Failed to read price: %v", err)
	}
	if price != "100" {
		t.Errorf("Expected price 100, got %s", price)
	}

	var idpk []int64
	rows, err := pool.Query(ctx, "SELECT idpk FROM public.readings ORDER BY idpk")
	if err != nil {
		t.Fatalf("Failed to read surrogate keys: %v", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("Failed to scan surrogate key: %v", err)
		}
		idpk = append(idpk, v)
	}
	rows.Close()
	if len(idpk) != 3 || idpk[0] != 1 || idpk[2] != 3 {
		t.Errorf("Expected surrogate keys 1..3, got %v", idpk)
	}
}

func TestLoadService_UpsertIsIdempotent(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_upsert"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	path := writeSourceFile(t, "orders.csv", "id,amount\n1,9.50\n2,12.00\n3,7.25\n")

	config := integrationConfig(path, testDB, "orders")
	config.KeyColumns = []string{"id"}

	for i := 0; i < 2; i++ {
		if _, err := loader.Load(ctx, config); err != nil {
			t.Fatalf("Load %d failed: %v", i+1, err)
		}
	}
	if got := countRows(t, connString, testDB, "orders"); got != 3 {
		t.Errorf("Expected 3 rows after repeated loads, got %d", got)
	}

	// A changed file with the same keys updates in place.
	config.FilePath = writeSourceFile(t, "orders2.csv", "id,amount\n1,100.00\n2,12.00\n3,7.25\n")
	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("Update load failed: %v", err)
	}
	if got := countRows(t, connString, testDB, "orders"); got != 3 {
		t.Errorf("Expected 3 rows after keyed update, got %d", got)
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var amount string
	if err := pool.QueryRow(ctx, "SELECT amount::text FROM public.orders WHERE id = 1").Scan(&amount); err != nil {
		t.Fatalf("Failed to read amount: %v", err)
	}
	if amount != "100.00" {
		t.Errorf("Expected updated amount 100.00, got %s", amount)
	}
}

func TestLoadService_UpdateWithoutKeyAppends(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_append"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	path := writeSourceFile(t, "orders.csv", "id,amount\n1,9.50\n2,12.00\n3,7.25\n")
	config := integrationConfig(path, testDB, "orders")

	for i := 0; i < 2; i++ {
		result, err := loader.Load(ctx, config)
		if err != nil {
			t.Fatalf("Load %d failed: %v", i+1, err)
		}
		if len(result.Warnings) == 0 {
			t.Error("Expected a warning about keyless update")
		}
	}
	if got := countRows(t, connString, testDB, "orders"); got != 6 {
		t.Errorf("Expected 6 rows after two keyless loads, got %d", got)
	}
}

func TestLoadService_ReplaceSwapsRows(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_replace"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	first := writeSourceFile(t, "orders.csv", "id,amount\n1,9.50\n2,12.00\n3,7.25\n")
	if _, err := loader.Load(ctx, integrationConfig(first, testDB, "orders")); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	second := writeSourceFile(t, "orders_next.csv", "id,amount\n10,1.00\n11,2.00\n")
	config := integrationConfig(second, testDB, "orders")
	config.Mode = tabsync.ModeReplace

	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("Replace load failed: %v", err)
	}
	if got := countRows(t, connString, testDB, "orders"); got != 2 {
		t.Errorf("Expected 2 rows after replace, got %d", got)
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var minID int
	if err := pool.QueryRow(ctx, "SELECT MIN(id) FROM public.orders").Scan(&minID); err != nil {
		t.Fatalf("Failed to read min id: %v", err)
	}
	if minID != 10 {
		t.Errorf("Expected old rows gone, min id = %d", minID)
	}
}

func TestLoadService_FailedLoadRollsBackCompletely(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_rollback"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	// The keyed first load creates the table with UNIQUE(id).
	first := writeSourceFile(t, "orders.csv", "id,amount\n1,9.50\n2,12.00\n3,7.25\n")
	config := integrationConfig(first, testDB, "orders")
	config.KeyColumns = []string{"id"}
	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	snapshot := func() []string {
		pool := testhelpers.GetTestPool(t, connString, testDB)
		rows, err := pool.Query(ctx, "SELECT id::text || '|' || amount::text FROM public.orders ORDER BY id")
		if err != nil {
			t.Fatalf("Failed to snapshot table: %v", err)
		}
		defer rows.Close()
		var out []string
		for rows.Next() {
			var line string
			if err := rows.Scan(&line); err != nil {
				t.Fatalf("Failed to scan snapshot row: %v", err)
			}
			out = append(out, line)
		}
		return out
	}
	before := snapshot()

	// Replace mode deletes all rows in the transaction, then the duplicated
	// id violates the unique constraint mid-batch.
	bad := writeSourceFile(t, "orders_bad.csv", "id,amount\n7,1.00\n7,2.00\n")
	badConfig := integrationConfig(bad, testDB, "orders")
	badConfig.Mode = tabsync.ModeReplace

	result, err := loader.Load(ctx, badConfig)
	if err == nil {
		t.Fatal("Expected the duplicate key to fail the load")
	}
	if !errors.Is(err, tabsync.ErrTransaction) {
		t.Errorf("Expected a transaction error, got %v", err)
	}
	if result.Status != tabsync.StatusFailed {
		t.Errorf("Expected status failed, got %s", result.Status)
	}

	after := snapshot()
	if len(before) != len(after) {
		t.Fatalf("Row count changed across a failed load: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Row %d changed across a failed load: %s -> %s", i, before[i], after[i])
		}
	}
}

func TestLoadService_SchemaEvolution(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_evolution"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	v1 := writeSourceFile(t, "v1.csv", "id,qty\n1,10\n2,20\n")
	config := integrationConfig(v1, testDB, "inventory")
	config.KeyColumns = []string{"id"}
	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("v1 load failed: %v", err)
	}

	types := columnTypes(t, connString, testDB, "inventory")
	if types["qty"] != [2]string{"bigint", "NO"} {
		t.Fatalf("Expected qty bigint NOT NULL after v1, got %v", types["qty"])
	}

	// v2 turns qty into text and introduces region.
	v2 := writeSourceFile(t, "v2.csv", "id,qty,region\n1,10,west\n2,backorder,east\n3,30,north\n")
	config.FilePath = v2
	result, err := loader.Load(ctx, config)
	if err != nil {
		t.Fatalf("v2 load failed: %v", err)
	}
	if len(result.StructuralOps) == 0 {
		t.Error("Expected structural operations for the widened and added columns")
	}

	types = columnTypes(t, connString, testDB, "inventory")
	if types["qty"] != [2]string{"text", "NO"} {
		t.Errorf("Expected qty widened to text, got %v", types["qty"])
	}
	if types["region"] != [2]string{"text", "YES"} {
		t.Errorf("Expected region added as nullable text, got %v", types["region"])
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var qty string
	if err := pool.QueryRow(ctx, "SELECT qty FROM public.inventory WHERE id = 1").Scan(&qty); err != nil {
		t.Fatalf("Failed to read widened qty: %v", err)
	}
	if qty != "10" {
		t.Errorf("Expected pre-widen value preserved as text, got %q", qty)
	}

	// v3 sends a blank qty, relaxing NOT NULL.
	v3 := writeSourceFile(t, "v3.csv", "id,qty,region\n4,,south\n")
	config.FilePath = v3
	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("v3 load failed: %v", err)
	}

	types = columnTypes(t, connString, testDB, "inventory")
	if types["qty"] != [2]string{"text", "YES"} {
		t.Errorf("Expected qty NOT NULL relaxed, got %v", types["qty"])
	}
	if got := countRows(t, connString, testDB, "inventory"); got != 4 {
		t.Errorf("Expected 4 rows after v3, got %d", got)
	}
}

func TestLoadService_DeleteModeRebuildsTable(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_rebuild"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	wide := writeSourceFile(t, "wide.csv", "id,qty,region\n1,10,west\n2,20,east\n")
	if _, err := loader.Load(ctx, integrationConfig(wide, testDB, "inventory")); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	narrow := writeSourceFile(t, "narrow.csv", "id,qty\n5,50\n")
	config := integrationConfig(narrow, testDB, "inventory")
	config.Mode = tabsync.ModeDelete

	result, err := loader.Load(ctx, config)
	if err != nil {
		t.Fatalf("Rebuild load failed: %v", err)
	}
	if result.Status != tabsync.StatusSuccess {
		t.Errorf("Expected success, got %s", result.Status)
	}

	types := columnTypes(t, connString, testDB, "inventory")
	if _, exists := types["region"]; exists {
		t.Error("Expected region to be gone after the rebuild")
	}
	if got := countRows(t, connString, testDB, "inventory"); got != 1 {
		t.Errorf("Expected 1 row after rebuild, got %d", got)
	}
}

func TestLoadService_SpreadsheetWorkbook(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_workbook"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"sku", "stock"},
		{"A-100", 5},
		{"B-200", 12},
	}
	for i, cells := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Failed to compute cell name: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatalf("Failed to write sheet row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Failed to close workbook: %v", err)
	}

	result, err := loader.Load(ctx, integrationConfig(path, testDB, "stock"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.RowsWritten != 2 {
		t.Errorf("Expected 2 rows written, got %d", result.RowsWritten)
	}

	types := columnTypes(t, connString, testDB, "stock")
	if types["sku"] != [2]string{"text", "NO"} {
		t.Errorf("Expected sku text, got %v", types["sku"])
	}
	if types["stock"] != [2]string{"bigint", "NO"} {
		t.Errorf("Expected stock bigint, got %v", types["stock"])
	}

	pool := testhelpers.GetTestPool(t, connString, testDB)
	var stock int64
	if err := pool.QueryRow(ctx, "SELECT stock FROM public.stock WHERE sku = 'A-100'").Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	if stock != 5 {
		t.Errorf("Expected stock 5, got %d", stock)
	}
}

func TestLoadService_NoSurrogateKey(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()
	loader := testhelpers.NewTestLoader(t, connString)

	testDB := "tabsync_it_nosurrogate"
	t.Cleanup(func() { testhelpers.CleanupTestDB(t, connString, testDB) })

	path := writeSourceFile(t, "orders.csv", "id,amount\n1,9.50\n")
	config := integrationConfig(path, testDB, "orders")
	config.SurrogateKey = ""

	if _, err := loader.Load(ctx, config); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	types := columnTypes(t, connString, testDB, "orders")
	if _, exists := types["idpk"]; exists {
		t.Error("Expected no surrogate key column")
	}
	if len(types) != 2 {
		t.Errorf("Expected exactly the file columns, got %v", types)
	}
}
