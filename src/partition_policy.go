package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var DEFAULT_TABLE_PARTITIONING = map[string]string{
	"catalog_sales":   "cs_sold_date_sk",
	"catalog_returns": "cr_returned_date_sk",
	"inventory":       "inv_date_sk",
	"store_sales":     "ss_sold_date_sk",
	"store_returns":   "sr_returned_date_sk",
	"web_sales":       "ws_sold_date_sk",
	"web_returns":     "wr_returned_date_sk",
}

type PartitionPlan struct {
	Column string // empty for NoPartition
}

func NoPartition() PartitionPlan {
	return PartitionPlan{}
}

func PartitionBy(column string) PartitionPlan {
	return PartitionPlan{Column: column}
}

func (plan PartitionPlan) IsPartitioned() bool {
	return plan.Column != ""
}

func (plan PartitionPlan) String() string {
	if !plan.IsPartitioned() {
		return "NoPartition"
	}
	return "PartitionBy(" + plan.Column + ")"
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type PartitionPolicy struct {
	columnByTable map[string]string
}

func NewPartitionPolicy(columnByTable map[string]string) *PartitionPolicy {
	copied := make(map[string]string, len(columnByTable))
	for table, column := range columnByTable {
		copied[table] = column
	}
	return &PartitionPolicy{columnByTable: copied}
}

func DefaultPartitionPolicy() *PartitionPolicy {
	return NewPartitionPolicy(DEFAULT_TABLE_PARTITIONING)
}

type partitionPolicyFile struct {
	Partitioning map[string]string `yaml:"partitioning"`
}

// Example:
//
//	partitioning:
//	  store_sales: ss_sold_date_sk
//	  inventory: inv_date_sk
func LoadPartitionPolicy(filePath string) (*PartitionPolicy, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition policy file: %w", err)
	}

	var policyFile partitionPolicyFile
	err = yaml.Unmarshal(content, &policyFile)
	if err != nil {
		return nil, NewValidationError("Invalid partition policy file %s: %v", filePath, err)
	}

	for table, column := range policyFile.Partitioning {
		if table == "" || column == "" {
			return nil, NewValidationError("Invalid partition policy file %s: empty table or column name", filePath)
		}
	}

	return NewPartitionPolicy(policyFile.Partitioning), nil
}

func PartitionPolicyFromConfig(config *Config) (*PartitionPolicy, error) {
	if config.PartitionPolicyFilepath == "" {
		return DefaultPartitionPolicy(), nil
	}

	LogInfo(config, "Reading partition policy from", config.PartitionPolicyFilepath)
	return LoadPartitionPolicy(config.PartitionPolicyFilepath)
}

func (policy *PartitionPolicy) PartitionColumnFor(tableName string) (column string, ok bool) {
	column, ok = policy.columnByTable[tableName]
	return column, ok
}

func (policy *PartitionPolicy) PlanFor(tableName string) PartitionPlan {
	if column, ok := policy.PartitionColumnFor(tableName); ok {
		return PartitionBy(column)
	}
	return NoPartition()
}

// Every policy column must exist in its table's schema
func (policy *PartitionPolicy) Validate(tables TableSet) error {
	for _, table := range tables {
		column, ok := policy.PartitionColumnFor(table.Name)
		if ok && !table.HasColumn(column) {
			return NewValidationError("Invalid partition column %s for table %s", column, table.Name)
		}
	}
	return nil
}
