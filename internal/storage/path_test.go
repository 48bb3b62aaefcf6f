package storage

import "testing"

func TestBuildDatasetFilePath(t *testing.T) {
	key, err := BuildDatasetFilePath("datasets/", "marketing_campaigns", 3)
	if err != nil {
		t.Fatalf("BuildDatasetFilePath() error = %v", err)
	}
	want := "datasets/marketing_campaigns/part-00003.parquet"
	if key != want {
		t.Fatalf("BuildDatasetFilePath() = %q, want %q", key, want)
	}
}

func TestBuildDatasetFilePathWithoutPrefix(t *testing.T) {
	key, err := BuildDatasetFilePath("", "ad_performance", 0)
	if err != nil {
		t.Fatalf("BuildDatasetFilePath() error = %v", err)
	}
	if key != "ad_performance/part-00000.parquet" {
		t.Fatalf("BuildDatasetFilePath() = %q", key)
	}
}

func TestBuildPathRejectsInvalidComponent(t *testing.T) {
	if _, err := BuildDatasetFilePath("datasets", "../oops", 1); err == nil {
		t.Fatal("expected invalid table error")
	}
	if _, err := BuildDatasetFilePath("data/../x", "events", 1); err == nil {
		t.Fatal("expected invalid prefix error")
	}
	if _, err := BuildDatasetFilePath("datasets", "events", -1); err == nil {
		t.Fatal("expected negative sequence error")
	}
}

func TestTableFromDatasetKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		table  string
		ok     bool
	}{
		{prefix: "datasets", key: "datasets/customer_metrics/part-00000.parquet", table: "customer_metrics", ok: true},
		{prefix: "", key: "customer_metrics/part-00001.parquet", table: "customer_metrics", ok: true},
		{prefix: "datasets", key: "other/customer_metrics/part-00000.parquet"},
		{prefix: "datasets", key: "datasets/customer_metrics/nested/part.parquet"},
		{prefix: "datasets", key: "datasets/customer_metrics/readme.txt"},
		{prefix: "datasets", key: "datasets/part-00000.parquet"},
	}
	for _, tc := range tests {
		table, ok := TableFromDatasetKey(tc.prefix, tc.key)
		if ok != tc.ok || table != tc.table {
			t.Fatalf("TableFromDatasetKey(%q, %q) = %q/%v, want %q/%v", tc.prefix, tc.key, table, ok, tc.table, tc.ok)
		}
	}
}
