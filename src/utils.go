package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func PanicIfError(err error, message ...string) {
	if err != nil {
		if len(message) == 1 {
			panic(fmt.Errorf(message[0]+": %w", err))
		}

		panic(err)
	}
}

func CreateTemporaryFile(prefix string) (file *os.File, err error) {
	tempFile, err := os.CreateTemp("", prefix)
	if err != nil {
		return nil, err
	}

	return tempFile, nil
}

func DeleteTemporaryFile(file *os.File) {
	file.Close()
	os.Remove(file.Name())
}

func IntToString(i int) string {
	return strconv.Itoa(i)
}

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// Identifiers are always double-quoted so TPC-DS column names never collide with DuckDB keywords
func QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func QuoteIdentifiers(identifiers []string) []string {
	quoted := make([]string, len(identifiers))
	for i, identifier := range identifiers {
		quoted[i] = QuoteIdentifier(identifier)
	}
	return quoted
}

// Example:
// - From "s3://bucket/nds/" and "store_sales"
// - To "s3://bucket/nds/store_sales"
func JoinPath(prefix string, elements ...string) string {
	path := strings.TrimRight(prefix, "/")
	for _, element := range elements {
		element = strings.Trim(element, "/")
		if element == "" {
			continue
		}
		if path == "" {
			path = element
			continue
		}
		path += "/" + element
	}
	return path
}

func SplitCommaSeparated(value string) []string {
	var values []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
