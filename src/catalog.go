package main

import (
	"context"
)

const (
	CATALOG_PROVIDER_ICEBERG = FORMAT_ICEBERG
	CATALOG_PROVIDER_DELTA   = FORMAT_DELTA
)

// A table registered in the metastore
type CatalogTable struct {
	Database         string            `json:"database"`
	Name             string            `json:"name"`
	Provider         string            `json:"provider"` // iceberg, delta, parquet, orc, avro, json
	Location         string            `json:"location"`
	External         bool              `json:"external"`
	PartitionColumns []string          `json:"partitionColumns"`
	Columns          []CatalogColumn   `json:"columns"`
	Properties       map[string]string `json:"properties"`
}

type CatalogColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func NewCatalogColumns(columns []DatasetColumn) []CatalogColumn {
	catalogColumns := make([]CatalogColumn, len(columns))
	for i, column := range columns {
		catalogColumns[i] = CatalogColumn{Name: column.Name, Type: column.Type}
	}
	return catalogColumns
}

func (table CatalogTable) QualifiedName() string {
	return table.Database + "." + table.Name
}

// Hive-metastore role: databases and table registrations
type Catalog interface {
	CreateDatabase(ctx context.Context, database string, location string) (err error)
	DatabaseExists(ctx context.Context, database string) (exists bool, err error)
	GetTable(ctx context.Context, database string, name string) (table *CatalogTable, err error) // nil when missing
	TableExists(ctx context.Context, database string, name string) (exists bool, err error)
	CreateTable(ctx context.Context, table CatalogTable) (err error)
	DropTable(ctx context.Context, database string, name string) (err error)
	Close()
}

// Postgres when a metastore URL is configured, JSON files under the output prefix otherwise
func NewCatalog(ctx context.Context, config *Config, storage Storage, warehousePath string) (Catalog, error) {
	if config.MetastoreUrl != "" {
		return NewPostgresCatalog(ctx, config)
	}
	return NewWarehouseCatalog(config, storage, warehousePath), nil
}

// Example:
// - From "/data/nds", "default" and "store_sales"
// - To "/data/nds/store_sales"
func ManagedTableLocation(warehousePath string, database string, name string) string {
	if database == "" || database == DEFAULT_DATABASE {
		return JoinPath(warehousePath, name)
	}
	return JoinPath(warehousePath, database+".db", name)
}
