package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const APP_NAME_PREFIX = "NDS - transcode - "

// Engine session: runtime configuration, current database, temporary views and the
// structured statements executed against the catalog and the output namespace
type Session struct {
	config          *Config
	duckdb          *Duckdb
	storage         Storage
	catalog         Catalog
	dataFileWriter  *DataFileWriter
	icebergWriter   *IcebergWriter
	icebergReader   *IcebergReader
	deltaLog        *DeltaLog
	conf            *OrderedMap
	warehousePath   string
	currentDatabase string
	tempViews       map[string]*PreparedDataset
	history         []string
}

func NewSession(ctx context.Context, config *Config, duckdb *Duckdb) (*Session, error) {
	storage := NewStorage(config, config.OutputPrefix)
	catalog, err := NewCatalog(ctx, config, storage, config.OutputPrefix)
	if err != nil {
		return nil, err
	}

	session := &Session{
		config:          config,
		duckdb:          duckdb,
		storage:         storage,
		catalog:         catalog,
		dataFileWriter:  NewDataFileWriter(config, duckdb, storage),
		icebergWriter:   NewIcebergWriter(config, storage),
		icebergReader:   NewIcebergReader(config, storage),
		deltaLog:        NewDeltaLog(config, storage),
		conf:            NewOrderedMap(nil),
		warehousePath:   config.OutputPrefix,
		currentDatabase: DEFAULT_DATABASE,
		tempViews:       map[string]*PreparedDataset{},
	}

	session.conf.Set(CONF_APP_NAME, APP_NAME_PREFIX+config.OutputFormat)
	if config.OutputFormat == FORMAT_ICEBERG {
		session.conf.Set(CONF_ICEBERG_WAREHOUSE, config.OutputPrefix)
	}
	if config.OutputFormat == FORMAT_DELTA && !config.DeltaUnmanaged {
		session.conf.Set(CONF_WAREHOUSE_DIR, config.OutputPrefix)
		session.conf.Set(CONF_CATALOG_IMPLEMENTATION, "hive")
	}

	settings, err := duckdb.Settings(ctx)
	if err != nil {
		catalog.Close()
		return nil, NewEngineError("read engine settings", err)
	}
	for _, setting := range settings {
		session.conf.Set(setting[0], setting[1])
	}

	if config.Hive {
		err = session.Sql(ctx, CreateDatabase{Name: config.Database, IfNotExists: true})
		if err == nil {
			err = session.UseDatabase(ctx, config.Database)
		}
		if err != nil {
			catalog.Close()
			return nil, err
		}
	}

	return session, nil
}

func (session *Session) Sql(ctx context.Context, statement Statement) error {
	LogInfo(session.config, "Executing:", statement.Render())
	session.history = append(session.history, statement.Render())

	switch typedStatement := statement.(type) {
	case CreateDatabase:
		return session.createDatabase(ctx, typedStatement)
	case SetConf:
		session.conf.Set(typedStatement.Key, typedStatement.Value)
		return nil
	case DropTable:
		return session.dropTable(ctx, typedStatement)
	case CreateTableAsSelect:
		return session.createTableAsSelect(ctx, typedStatement)
	case CreateExternalTable:
		return session.createExternalTable(ctx, typedStatement)
	}
	return fmt.Errorf("unsupported statement: %s", statement.Render())
}

func (session *Session) CreateOrReplaceTempView(name string, prepared *PreparedDataset) {
	LogDebug(session.config, "Staging", prepared.Dataset.TableName, "as", name, "("+prepared.Plan.String()+")")
	session.tempViews[name] = prepared
}

func (session *Session) UseDatabase(ctx context.Context, database string) error {
	exists, err := session.catalog.DatabaseExists(ctx, database)
	if err != nil {
		return NewEngineError("use database "+database, err)
	}
	if !exists {
		return NewValidationError("Database %s does not exist", database)
	}
	session.currentDatabase = database
	return nil
}

func (session *Session) CurrentDatabase() string {
	return session.currentDatabase
}

func (session *Session) TableLocation(name string) string {
	return ManagedTableLocation(session.warehousePath, session.currentDatabase, name)
}

func (session *Session) GetTable(ctx context.Context, name string) (*CatalogTable, error) {
	table, err := session.catalog.GetTable(ctx, session.currentDatabase, name)
	return table, NewEngineError("look up table "+name, err)
}

// A registration or data at the managed location both count
func (session *Session) TableExists(ctx context.Context, name string) (bool, error) {
	exists, err := session.catalog.TableExists(ctx, session.currentDatabase, name)
	if err != nil {
		return false, NewEngineError("look up table "+name, err)
	}
	if exists {
		return true, nil
	}

	location := session.TableLocation(name)
	exists, err = session.storage.Exists(location)
	return exists, NewEngineError("check "+location, err)
}

func (session *Session) Conf() *OrderedMap {
	return session.conf
}

func (session *Session) History() []string {
	return session.history
}

func (session *Session) Close() {
	session.catalog.Close()
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func (session *Session) createDatabase(ctx context.Context, statement CreateDatabase) error {
	exists, err := session.catalog.DatabaseExists(ctx, statement.Name)
	if err != nil {
		return NewEngineError("create database "+statement.Name, err)
	}
	if exists {
		if statement.IfNotExists {
			return nil
		}
		return NewValidationError("Database %s already exists", statement.Name)
	}

	location := JoinPath(session.warehousePath, statement.Name+".db")
	return NewEngineError("create database "+statement.Name, session.catalog.CreateDatabase(ctx, statement.Name, location))
}

// Managed tables lose their data, external tables only their registration
func (session *Session) dropTable(ctx context.Context, statement DropTable) error {
	table, err := session.GetTable(ctx, statement.Name)
	if err != nil {
		return err
	}
	if table == nil {
		if statement.IfExists {
			return nil
		}
		return NewValidationError("Table %s.%s not found", session.currentDatabase, statement.Name)
	}

	err = session.catalog.DropTable(ctx, table.Database, table.Name)
	if err != nil {
		return NewEngineError("drop table "+table.QualifiedName(), err)
	}
	if table.External {
		return nil
	}
	return NewEngineError("delete "+table.Location, session.storage.Delete(table.Location))
}

func (session *Session) createTableAsSelect(ctx context.Context, statement CreateTableAsSelect) error {
	prepared, ok := session.tempViews[statement.SourceView]
	if !ok {
		return NewValidationError("Table or view %s not found", statement.SourceView)
	}

	location := session.TableLocation(statement.Name)
	exists, err := session.TableExists(ctx, statement.Name)
	if err != nil {
		return err
	}
	if exists {
		return &WriteConflictError{Target: session.currentDatabase + "." + statement.Name, WriteMode: WRITE_MODE_ERROR_IF_EXISTS}
	}

	var properties map[string]string
	switch statement.Provider {
	case FORMAT_ICEBERG:
		properties, err = session.writeIcebergTable(ctx, statement, prepared, location)
	case FORMAT_DELTA:
		properties, err = session.writeDeltaTable(ctx, statement, prepared, location)
	default:
		return NewUnsupportedFormatError("catalog table", statement.Provider)
	}
	if err != nil {
		return err
	}

	return NewEngineError("register table "+statement.Name, session.catalog.CreateTable(ctx, CatalogTable{
		Database:         session.currentDatabase,
		Name:             statement.Name,
		Provider:         statement.Provider,
		Location:         location,
		PartitionColumns: partitionColumns(statement.PartitionColumn),
		Columns:          NewCatalogColumns(prepared.Dataset.Columns),
		Properties:       properties,
	}))
}

func (session *Session) writeIcebergTable(ctx context.Context, statement CreateTableAsSelect, prepared *PreparedDataset, location string) (map[string]string, error) {
	format := FORMAT_PARQUET
	if property, ok := statement.Property(TABLE_PROPERTY_WRITE_FORMAT); ok {
		format = property.Value
	}
	codec := DEFAULT_ICEBERG_CODECS[format]
	if property, ok := statement.Property(TABLE_PROPERTY_COMPRESSION_CODEC); ok {
		codec = property.Value
	}
	resolvedCodec, err := ResolveCodec(format, codec, DEFAULT_ICEBERG_CODECS[format])
	if err != nil {
		return nil, err
	}

	properties := map[string]string{}
	for _, property := range statement.Properties {
		properties[property.Key()] = property.Value
	}
	icebergTable := NewIcebergTable(location, prepared.Dataset.Columns, statement.PartitionColumn, properties)

	writeUuid := uuid.New().String()
	spec := DataFileSpec{Format: format, Codec: resolvedCodec, Columns: prepared.DataColumns(true), FieldIds: true}
	dataFiles := make([]DataFile, 0, len(prepared.Segments))
	for i, segment := range prepared.Segments {
		filePath := JoinPath(icebergTable.DataDirPath(), segment.Directory(), DataFileName(DATA_FILE_NAMING_ICEBERG, i, writeUuid, format, resolvedCodec))
		dataFile, err := session.dataFileWriter.WriteSegment(ctx, prepared, segment, spec, filePath)
		if err != nil {
			return nil, err
		}
		dataFiles = append(dataFiles, dataFile)
	}

	_, err = session.icebergWriter.Write(icebergTable, dataFiles)
	if err != nil {
		return nil, NewEngineError("commit iceberg table "+statement.Name, err)
	}

	metadataFilePath, err := session.icebergReader.MetadataFilePath(location)
	if err != nil {
		return nil, NewEngineError("read back iceberg table "+statement.Name, err)
	}
	LogDebug(session.config, "Iceberg table", statement.Name, "is at", metadataFilePath)
	return properties, nil
}

// Delta stores partition values only in directory names and the log
func (session *Session) writeDeltaTable(ctx context.Context, statement CreateTableAsSelect, prepared *PreparedDataset, location string) (map[string]string, error) {
	codec := session.conf.Get(CONF_PARQUET_COMPRESSION_CODEC)
	resolvedCodec, err := ResolveCodec(FORMAT_PARQUET, codec, DEFAULT_DATA_FILE_CODECS[FORMAT_PARQUET])
	if err != nil {
		return nil, err
	}

	dataFiles, err := WriteSegments(ctx, session.dataFileWriter, prepared, location, DataFileSpec{
		Format:  FORMAT_PARQUET,
		Codec:   resolvedCodec,
		Columns: prepared.DataColumns(false),
	})
	if err != nil {
		return nil, err
	}

	_, err = session.deltaLog.Commit(location, DeltaCommit{
		Operation:        DELTA_OPERATION_CTAS,
		WriteMode:        WRITE_MODE_ERROR_IF_EXISTS,
		Columns:          prepared.Dataset.Columns,
		PartitionColumns: partitionColumns(statement.PartitionColumn),
		DataFiles:        dataFiles,
	})
	if err != nil {
		return nil, NewEngineError("commit delta table "+statement.Name, err)
	}
	return map[string]string{}, nil
}

func (session *Session) createExternalTable(ctx context.Context, statement CreateExternalTable) error {
	exists, err := session.catalog.TableExists(ctx, session.currentDatabase, statement.Name)
	if err != nil {
		return NewEngineError("look up table "+statement.Name, err)
	}
	if exists {
		return &WriteConflictError{Target: session.currentDatabase + "." + statement.Name, WriteMode: WRITE_MODE_ERROR_IF_EXISTS}
	}

	return NewEngineError("register table "+statement.Name, session.catalog.CreateTable(ctx, CatalogTable{
		Database:         session.currentDatabase,
		Name:             statement.Name,
		Provider:         statement.Provider,
		Location:         statement.Location,
		External:         true,
		PartitionColumns: partitionColumns(statement.PartitionColumn),
		Columns:          NewCatalogColumns(statement.Columns),
		Properties:       map[string]string{},
	}))
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Spark-style data files, one per segment, under <location>/<column>=<value>/
func WriteSegments(ctx context.Context, dataFileWriter *DataFileWriter, prepared *PreparedDataset, location string, spec DataFileSpec) ([]DataFile, error) {
	writeUuid := uuid.New().String()
	dataFiles := make([]DataFile, 0, len(prepared.Segments))
	for i, segment := range prepared.Segments {
		filePath := JoinPath(location, segment.Directory(), DataFileName(DATA_FILE_NAMING_HADOOP, i, writeUuid, spec.Format, spec.Codec))
		dataFile, err := dataFileWriter.WriteSegment(ctx, prepared, segment, spec, filePath)
		if err != nil {
			return nil, err
		}
		dataFiles = append(dataFiles, dataFile)
	}
	return dataFiles, nil
}

func partitionColumns(partitionColumn string) []string {
	if partitionColumn == "" {
		return []string{}
	}
	return []string{partitionColumn}
}
