package main

import (
	"context"
	"testing"
)

func TestDatasetSegmentDirectory(t *testing.T) {
	testCases := []struct {
		segment  DatasetSegment
		expected string
	}{
		{DatasetSegment{}, ""},
		{DatasetSegment{PartitionColumn: "ss_sold_date_sk", PartitionValue: "2450816"}, "ss_sold_date_sk=2450816"},
		{DatasetSegment{PartitionColumn: "ss_sold_date_sk", IsNull: true}, "ss_sold_date_sk=__HIVE_DEFAULT_PARTITION__"},
		{DatasetSegment{PartitionColumn: "d_date", PartitionValue: "a/b:c=d"}, "d_date=a%2Fb%3Ac%3Dd"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.expected, func(t *testing.T) {
			if testCase.segment.Directory() != testCase.expected {
				t.Errorf("Expected %s, got %s", testCase.expected, testCase.segment.Directory())
			}
		})
	}

	t.Run("Unescapes partition values", func(t *testing.T) {
		value := unescapePartitionValue(escapePartitionValue("a/b:c=d%"))

		if value != "a/b:c=d%" {
			t.Errorf("Expected a/b:c=d%%, got %s", value)
		}
	})
}

func TestDatasetColumnTypes(t *testing.T) {
	t.Run("Maps decimals per table format", func(t *testing.T) {
		column := DatasetColumn{Name: "ss_net_paid", Type: "DECIMAL(7,2)"}

		if !column.IsDecimal() {
			t.Errorf("Expected a decimal column")
		}
		if column.DeltaType() != "decimal(7,2)" {
			t.Errorf("Expected delta type decimal(7,2), got %s", column.DeltaType())
		}
		if column.ToIcebergSchemaField(3).Type != "decimal(7, 2)" {
			t.Errorf("Expected iceberg type decimal(7, 2), got %v", column.ToIcebergSchemaField(3).Type)
		}
		if column.OrcType() != "double" {
			t.Errorf("Expected orc type double, got %s", column.OrcType())
		}
		if column.ScanExpression() != "CAST(\"ss_net_paid\" AS VARCHAR) AS \"ss_net_paid\"" {
			t.Errorf("Unexpected scan expression: %s", column.ScanExpression())
		}
	})

	t.Run("Maps other types", func(t *testing.T) {
		testCases := map[string][]string{
			"INTEGER": {"integer", "int", "int"},
			"BIGINT":  {"long", "long", "bigint"},
			"DATE":    {"date", "date", "date"},
			"VARCHAR": {"string", "string", "string"},
			"DOUBLE":  {"double", "double", "double"},
		}

		for columnType, expected := range testCases {
			column := DatasetColumn{Name: "c", Type: columnType}
			if column.DeltaType() != expected[0] || column.ToIcebergSchemaField(1).Type != expected[1] || column.OrcType() != expected[2] {
				t.Errorf("Unexpected mapping for %s: %s, %v, %s", columnType, column.DeltaType(), column.ToIcebergSchemaField(1).Type, column.OrcType())
			}
		}
	})
}

func TestPrepareDataset(t *testing.T) {
	ctx := context.Background()

	t.Run("Splits rows into one segment per partition value, nulls last", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		dataset := loadTestDataset(t, config, duckdb, "inventory", TEST_INVENTORY_ROWS)

		prepared, err := PrepareDataset(ctx, duckdb, dataset, PartitionBy("inv_date_sk"))

		if err != nil {
			t.Fatalf("Expected dataset to be prepared, got %v", err)
		}
		if len(prepared.Segments) != 3 {
			t.Fatalf("Expected 3 segments, got %v", prepared.Segments)
		}
		if prepared.Segments[0].PartitionValue != "2450815" || prepared.Segments[0].RowCount != 2 {
			t.Errorf("Unexpected first segment: %+v", prepared.Segments[0])
		}
		if !prepared.Segments[2].IsNull || prepared.Segments[2].RowCount != 1 {
			t.Errorf("Expected the null segment last, got %+v", prepared.Segments[2])
		}
		if prepared.RowCount() != 4 {
			t.Errorf("Expected 4 rows, got %d", prepared.RowCount())
		}
		if len(prepared.DataColumns(false)) != 3 || len(prepared.DataColumns(true)) != 4 {
			t.Errorf("Expected the partition column to be dropped only on request")
		}
	})

	t.Run("Sorts once and selects each segment by its typed value", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		dataset := loadTestDataset(t, config, duckdb, "inventory", TEST_INVENTORY_ROWS)

		prepared, err := PrepareDataset(ctx, duckdb, dataset, PartitionBy("inv_date_sk"))

		if err != nil {
			t.Fatalf("Expected dataset to be prepared, got %v", err)
		}
		if prepared.Relation != "src_inventory_sorted" {
			t.Errorf("Expected the sorted relation, got %s", prepared.Relation)
		}
		query := prepared.SelectQuery(prepared.Segments[0], []DatasetColumn{{Name: "inv_item_sk", Type: "INTEGER"}}, false)
		if query != "SELECT \"inv_item_sk\" FROM \"src_inventory_sorted\" WHERE \"inv_date_sk\" = CAST('2450815' AS INTEGER)" {
			t.Errorf("Unexpected select query: %s", query)
		}
		for _, segment := range prepared.Segments {
			count := queryTestValue(t, duckdb, "SELECT COUNT(*) FROM ("+prepared.SelectQuery(segment, prepared.DataColumns(true), false)+")")
			if count != IntToString(int(segment.RowCount)) {
				t.Errorf("Expected %d rows for %s, got %s", segment.RowCount, segment.Directory(), count)
			}
		}

		err = prepared.Release(ctx, duckdb)

		if err != nil {
			t.Fatalf("Expected the sorted relation to be dropped, got %v", err)
		}
		if queryTestValue(t, duckdb, "SELECT COUNT(*) FROM duckdb_tables() WHERE table_name = 'src_inventory_sorted'") != "0" {
			t.Errorf("Expected the sorted relation to be gone")
		}
		if queryTestValue(t, duckdb, "SELECT COUNT(*) FROM src_inventory") != "4" {
			t.Errorf("Expected the loaded relation to be kept")
		}
	})

	t.Run("Selects date partitions without casting the column", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		_, err := duckdb.ExecContext(ctx, "CREATE TABLE src_dates AS SELECT * FROM (VALUES (DATE '2024-01-02', 1), (DATE '2024-01-01', 2), (DATE '2024-01-02', 3)) t(d_date, d_value)", nil)
		if err != nil {
			t.Fatalf("Failed to create relation: %v", err)
		}
		dataset, err := DescribeRelation(ctx, duckdb, "dates", "src_dates")
		if err != nil {
			t.Fatalf("Failed to describe relation: %v", err)
		}

		prepared, err := PrepareDataset(ctx, duckdb, dataset, PartitionBy("d_date"))

		if err != nil {
			t.Fatalf("Expected dataset to be prepared, got %v", err)
		}
		if len(prepared.Segments) != 2 || prepared.Segments[1].PartitionValue != "2024-01-02" {
			t.Fatalf("Unexpected segments: %v", prepared.Segments)
		}
		sum := queryTestValue(t, duckdb, "SELECT SUM(d_value) FROM ("+prepared.SelectQuery(prepared.Segments[1], prepared.DataColumns(false), false)+")")
		if sum != "4" {
			t.Errorf("Expected the 2024-01-02 rows, got sum %s", sum)
		}
	})

	t.Run("Coalesces an unpartitioned table into a single segment", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		dataset := loadTestDataset(t, config, duckdb, "income_band", TEST_INCOME_BAND_ROWS)

		prepared, err := PrepareDataset(ctx, duckdb, dataset, NoPartition())

		if err != nil {
			t.Fatalf("Expected dataset to be prepared, got %v", err)
		}
		if len(prepared.Segments) != 1 || prepared.Segments[0].RowCount != 3 {
			t.Errorf("Expected a single segment of 3 rows, got %v", prepared.Segments)
		}
		query := prepared.SelectQuery(prepared.Segments[0], prepared.DataColumns(false), false)
		if query != "SELECT \"ib_income_band_sk\", \"ib_lower_bound\", \"ib_upper_bound\" FROM \"src_income_band\"" {
			t.Errorf("Unexpected select query: %s", query)
		}
	})

	t.Run("Rejects a partition column missing from the dataset", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		dataset := loadTestDataset(t, config, duckdb, "income_band", TEST_INCOME_BAND_ROWS)

		_, err := PrepareDataset(ctx, duckdb, dataset, PartitionBy("inv_date_sk"))

		if err == nil {
			t.Errorf("Expected an error")
		}
	})
}
