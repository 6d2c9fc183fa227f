package main

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	WAREHOUSE_METASTORE_DIR_NAME = "_metastore"
	WAREHOUSE_DATABASE_FILE_NAME = "_database.json"
)

// Registrations stored as JSON files next to the data:
// <warehouse>/_metastore/<database>.db/<table>.json
type WarehouseCatalog struct {
	config        *Config
	storage       Storage
	warehousePath string
}

func NewWarehouseCatalog(config *Config, storage Storage, warehousePath string) *WarehouseCatalog {
	return &WarehouseCatalog{config: config, storage: storage, warehousePath: warehousePath}
}

func (catalog *WarehouseCatalog) CreateDatabase(ctx context.Context, database string, location string) error {
	exists, err := catalog.DatabaseExists(ctx, database)
	if err != nil || exists {
		return err
	}

	content, err := json.Marshal(map[string]string{"name": database, "location": location})
	if err != nil {
		return err
	}
	LogDebug(catalog.config, "Creating database", database, "in the warehouse metastore...")
	return catalog.storage.WriteFile(JoinPath(catalog.databaseDirPath(database), WAREHOUSE_DATABASE_FILE_NAME), content)
}

func (catalog *WarehouseCatalog) DatabaseExists(ctx context.Context, database string) (bool, error) {
	if database == DEFAULT_DATABASE {
		return true, nil
	}
	return catalog.storage.Exists(JoinPath(catalog.databaseDirPath(database), WAREHOUSE_DATABASE_FILE_NAME))
}

func (catalog *WarehouseCatalog) GetTable(ctx context.Context, database string, name string) (*CatalogTable, error) {
	tablePath := catalog.tableFilePath(database, name)
	exists, err := catalog.storage.Exists(tablePath)
	if err != nil || !exists {
		return nil, err
	}

	content, err := catalog.storage.ReadFile(tablePath)
	if err != nil {
		return nil, err
	}

	var table CatalogTable
	err = json.Unmarshal(content, &table)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog table %s.%s: %v", database, name, err)
	}
	return &table, nil
}

func (catalog *WarehouseCatalog) TableExists(ctx context.Context, database string, name string) (bool, error) {
	return catalog.storage.Exists(catalog.tableFilePath(database, name))
}

func (catalog *WarehouseCatalog) CreateTable(ctx context.Context, table CatalogTable) error {
	exists, err := catalog.DatabaseExists(ctx, table.Database)
	if err != nil {
		return err
	}
	if !exists {
		return NewValidationError("Database %s does not exist", table.Database)
	}

	content, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	LogDebug(catalog.config, "Registering table", table.QualifiedName(), "at", table.Location)
	return catalog.storage.WriteFile(catalog.tableFilePath(table.Database, table.Name), content)
}

func (catalog *WarehouseCatalog) DropTable(ctx context.Context, database string, name string) error {
	LogDebug(catalog.config, "Unregistering table", database+"."+name)
	return catalog.storage.Delete(catalog.tableFilePath(database, name))
}

func (catalog *WarehouseCatalog) Close() {
}

func (catalog *WarehouseCatalog) databaseDirPath(database string) string {
	return JoinPath(catalog.warehousePath, WAREHOUSE_METASTORE_DIR_NAME, database+".db")
}

func (catalog *WarehouseCatalog) tableFilePath(database string, name string) string {
	return JoinPath(catalog.databaseDirPath(database), name+".json")
}
