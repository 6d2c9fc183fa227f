package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPartitionPolicy(t *testing.T) {
	t.Run("Partitions the fact tables by their date key", func(t *testing.T) {
		policy := DefaultPartitionPolicy()

		for table, column := range map[string]string{
			"catalog_sales":   "cs_sold_date_sk",
			"catalog_returns": "cr_returned_date_sk",
			"inventory":       "inv_date_sk",
			"store_sales":     "ss_sold_date_sk",
			"store_returns":   "sr_returned_date_sk",
			"web_sales":       "ws_sold_date_sk",
			"web_returns":     "wr_returned_date_sk",
		} {
			plan := policy.PlanFor(table)
			if plan.String() != "PartitionBy("+column+")" {
				t.Errorf("Expected %s to be partitioned by %s, got %s", table, column, plan)
			}
		}
	})

	t.Run("Leaves dimension tables unpartitioned", func(t *testing.T) {
		plan := DefaultPartitionPolicy().PlanFor("catalog_page")

		if plan.IsPartitioned() {
			t.Errorf("Expected catalog_page to be unpartitioned, got %s", plan)
		}
		if plan.String() != "NoPartition" {
			t.Errorf("Expected NoPartition, got %s", plan)
		}
	})

	t.Run("Matches the full-load schemas", func(t *testing.T) {
		err := DefaultPartitionPolicy().Validate(NdsSchemas(true))

		if err != nil {
			t.Errorf("Expected the default policy to be valid, got %v", err)
		}
	})
}

func TestLoadPartitionPolicy(t *testing.T) {
	t.Run("Reads table partitioning from YAML", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "partitioning.yml")
		content := "partitioning:\n  store_sales: ss_sold_date_sk\n  date_dim: d_year\n"
		err := os.WriteFile(filePath, []byte(content), 0644)
		if err != nil {
			t.Fatalf("Failed to write policy file: %v", err)
		}

		policy, err := LoadPartitionPolicy(filePath)

		if err != nil {
			t.Fatalf("Expected policy to load, got %v", err)
		}
		if column, ok := policy.PartitionColumnFor("date_dim"); !ok || column != "d_year" {
			t.Errorf("Expected date_dim to be partitioned by d_year, got %s", column)
		}
		if policy.PlanFor("inventory").IsPartitioned() {
			t.Errorf("Expected inventory to be unpartitioned under a custom policy")
		}
	})

	t.Run("Rejects malformed YAML", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "partitioning.yml")
		err := os.WriteFile(filePath, []byte("partitioning: [store_sales"), 0644)
		if err != nil {
			t.Fatalf("Failed to write policy file: %v", err)
		}

		_, err = LoadPartitionPolicy(filePath)

		var validationError *ValidationError
		if !errors.As(err, &validationError) {
			t.Errorf("Expected a validation error, got %v", err)
		}
	})
}

func TestPartitionPolicyValidate(t *testing.T) {
	t.Run("Rejects a column missing from the table", func(t *testing.T) {
		policy := NewPartitionPolicy(map[string]string{"inventory": "ss_sold_date_sk"})

		err := policy.Validate(NdsSchemas(true))

		var validationError *ValidationError
		if !errors.As(err, &validationError) {
			t.Errorf("Expected a validation error, got %v", err)
		}
	})
}
