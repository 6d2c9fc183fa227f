package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSession(t *testing.T) {
	t.Run("Records the runtime configuration for iceberg runs", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg")

		session, _ := newTestSession(t, config)

		conf := session.Conf()
		if conf.Get(CONF_APP_NAME) != "NDS - transcode - iceberg" {
			t.Errorf("Expected the app name, got %s", conf.Get(CONF_APP_NAME))
		}
		if conf.Get(CONF_ICEBERG_WAREHOUSE) != config.OutputPrefix {
			t.Errorf("Expected the warehouse to be the output prefix, got %s", conf.Get(CONF_ICEBERG_WAREHOUSE))
		}
		if !conf.HasKey("engine.duckdb.version") {
			t.Errorf("Expected the engine settings, got %v", conf.Keys())
		}
		if session.CurrentDatabase() != DEFAULT_DATABASE {
			t.Errorf("Expected the default database, got %s", session.CurrentDatabase())
		}
	})

	t.Run("Uses the configured database with --hive", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--hive", "--database", "tpcds")

		session, _ := newTestSession(t, config)

		if session.CurrentDatabase() != "tpcds" {
			t.Errorf("Expected database tpcds, got %s", session.CurrentDatabase())
		}
		if session.TableLocation("store_sales") != config.OutputPrefix+"/tpcds.db/store_sales" {
			t.Errorf("Unexpected table location: %s", session.TableLocation("store_sales"))
		}
	})
}

func TestSessionSql(t *testing.T) {
	ctx := context.Background()

	t.Run("Fails a CTAS over data at the managed location", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg")
		session, duckdb := newTestSession(t, config)
		dataset := loadTestDataset(t, config, duckdb, "income_band", TEST_INCOME_BAND_ROWS)
		prepared, err := PrepareDataset(ctx, duckdb, dataset, NoPartition())
		if err != nil {
			t.Fatalf("Failed to prepare dataset: %v", err)
		}
		os.MkdirAll(filepath.Join(config.OutputPrefix, "income_band"), os.ModePerm)
		session.CreateOrReplaceTempView(TEMP_VIEW_NAME, prepared)

		err = session.Sql(ctx, CreateTableAsSelect{Name: "income_band", Provider: FORMAT_ICEBERG, SourceView: TEMP_VIEW_NAME})

		var writeConflictError *WriteConflictError
		if !errors.As(err, &writeConflictError) {
			t.Errorf("Expected a write conflict, got %v", err)
		}
	})

	t.Run("Fails a CTAS from an unknown view", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg")
		session, _ := newTestSession(t, config)

		err := session.Sql(ctx, CreateTableAsSelect{Name: "income_band", Provider: FORMAT_ICEBERG, SourceView: "missing"})

		var validationError *ValidationError
		if !errors.As(err, &validationError) {
			t.Errorf("Expected a validation error, got %v", err)
		}
	})

	t.Run("Drops external tables without their data", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		session, _ := newTestSession(t, config)
		location := filepath.Join(config.OutputPrefix, "inventory")
		os.MkdirAll(location, os.ModePerm)
		err := session.Sql(ctx, CreateExternalTable{Name: "inventory", Provider: FORMAT_PARQUET, Location: location})
		if err != nil {
			t.Fatalf("Expected the table to be registered, got %v", err)
		}

		err = session.Sql(ctx, DropTable{Name: "inventory"})

		if err != nil {
			t.Fatalf("Expected the table to be dropped, got %v", err)
		}
		if _, err := os.Stat(location); err != nil {
			t.Errorf("Expected the data to be kept, got %v", err)
		}
		exists, _ := session.TableExists(ctx, "inventory")
		if !exists {
			t.Errorf("Expected data at the managed location to still count as an existing table")
		}
	})

	t.Run("Fails to drop a missing table without IF EXISTS", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		session, _ := newTestSession(t, config)

		if session.Sql(ctx, DropTable{Name: "inventory", IfExists: true}) != nil {
			t.Errorf("Expected DROP TABLE IF EXISTS to succeed")
		}
		if session.Sql(ctx, DropTable{Name: "inventory"}) == nil {
			t.Errorf("Expected DROP TABLE to fail")
		}
	})

	t.Run("Refuses a missing database", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		session, _ := newTestSession(t, config)

		err := session.UseDatabase(ctx, "missing")

		if err == nil {
			t.Errorf("Expected an error")
		}
		if session.Sql(ctx, CreateDatabase{Name: "missing"}) != nil || session.UseDatabase(ctx, "missing") != nil {
			t.Errorf("Expected the database to be usable once created")
		}
	})
}
