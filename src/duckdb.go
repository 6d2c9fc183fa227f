package main

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	pgQuery "github.com/pganalyze/pg_query_go/v5"
)

var DEFAULT_BOOT_QUERIES = []string{
	"SET preserve_insertion_order=true",
	"SET enable_progress_bar=false",
}

var S3_BOOT_QUERIES = []string{
	"INSTALL httpfs",
	"LOAD httpfs",
}

type Duckdb struct {
	db     *sql.DB
	config *Config
}

func NewDuckdb(config *Config) *Duckdb {
	ctx := context.Background()
	db, err := sql.Open("duckdb", "")
	PanicIfError(err)

	// Views and session settings live on a single connection
	db.SetMaxOpenConns(1)

	duckdb := &Duckdb{
		db:     db,
		config: config,
	}

	bootQueries := readDuckdbInitFile(config)
	if bootQueries == nil {
		bootQueries = DEFAULT_BOOT_QUERIES
	}
	for _, query := range bootQueries {
		_, err := duckdb.ExecContext(ctx, query, nil)
		PanicIfError(err)
	}

	if IsS3Path(config.InputPrefix) || IsS3Path(config.OutputPrefix) {
		for _, query := range S3_BOOT_QUERIES {
			_, err := duckdb.ExecContext(ctx, query, nil)
			PanicIfError(err)
		}

		query := "CREATE SECRET aws_s3_secret (TYPE S3, KEY_ID '$accessKeyId', SECRET '$secretAccessKey', REGION '$region'"
		if config.Aws.S3Endpoint != "" {
			query += ", ENDPOINT '$endpoint', URL_STYLE 'path'"
		}
		query += ")"
		_, err = duckdb.ExecContext(ctx, query, map[string]string{
			"accessKeyId":     config.Aws.AccessKeyId,
			"secretAccessKey": config.Aws.SecretAccessKey,
			"region":          config.Aws.Region,
			"endpoint":        strings.TrimPrefix(strings.TrimPrefix(config.Aws.S3Endpoint, "https://"), "http://"),
		})
		PanicIfError(err)

		if config.LogLevel == LOG_LEVEL_TRACE || config.LogLevel == LOG_LEVEL_ALL {
			_, err = duckdb.ExecContext(ctx, "SET enable_http_logging=true", nil)
			PanicIfError(err)
		}
	}

	return duckdb
}

func (duckdb *Duckdb) ExecContext(ctx context.Context, query string, args map[string]string) (sql.Result, error) {
	LogDebug(duckdb.config, "Querying DuckDB:", query, args)
	return duckdb.db.ExecContext(ctx, replaceNamedStringArgs(query, args))
}

func (duckdb *Duckdb) QueryContext(ctx context.Context, query string) (*sql.Rows, error) {
	LogDebug(duckdb.config, "Querying DuckDB:", query)
	return duckdb.db.QueryContext(ctx, query)
}

// Reads the whole result, so the connection is free for the next statement
func (duckdb *Duckdb) QueryAll(ctx context.Context, query string) (values [][]interface{}, err error) {
	rows, err := duckdb.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		row := make([]interface{}, len(columns))
		rowPointers := make([]interface{}, len(columns))
		for i := range row {
			rowPointers[i] = &row[i]
		}
		if err := rows.Scan(rowPointers...); err != nil {
			return nil, err
		}
		values = append(values, row)
	}

	return values, rows.Err()
}

func (duckdb *Duckdb) BeginTx(ctx context.Context) (*sql.Tx, error) {
	LogDebug(duckdb.config, "Starting DuckDB transaction")
	return duckdb.db.BeginTx(ctx, nil)
}

// Engine settings reported next to the runtime configuration
func (duckdb *Duckdb) Settings(ctx context.Context) (settings [][]string, err error) {
	values, err := duckdb.QueryAll(ctx, "SELECT version(), current_setting('threads'), current_setting('memory_limit')")
	if err != nil {
		return nil, err
	}

	row := values[0]
	return [][]string{
		{"engine.duckdb.version", toString(row[0])},
		{"engine.duckdb.threads", toString(row[1])},
		{"engine.duckdb.memory_limit", toString(row[2])},
	}, nil
}

func (duckdb *Duckdb) Close() {
	duckdb.db.Close()
}

func replaceNamedStringArgs(query string, args map[string]string) string {
	re := regexp.MustCompile(`['";]`) // Escape single quotes, double quotes, and semicolons from args

	for key, value := range args {
		query = strings.ReplaceAll(query, "$"+key, re.ReplaceAllString(value, ""))
	}
	return query
}

func readDuckdbInitFile(config *Config) []string {
	_, err := os.Stat(config.InitSqlFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			LogDebug(config, "DuckDB: No init file found at", config.InitSqlFilepath)
			return nil
		}
		PanicIfError(err)
	}

	LogInfo(config, "DuckDB: Reading init file", config.InitSqlFilepath)
	content, err := os.ReadFile(config.InitSqlFilepath)
	PanicIfError(err)

	queries, err := pgQuery.SplitWithScanner(string(content), true)
	PanicIfError(err, "Failed to split DuckDB init file")

	var bootQueries []string
	for _, query := range queries {
		if query != "" {
			bootQueries = append(bootQueries, query)
		}
	}
	return bootQueries
}
