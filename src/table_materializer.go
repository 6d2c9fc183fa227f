package main

import (
	"context"
)

type TableMaterializer struct {
	config         *Config
	session        *Session
	policy         *PartitionPolicy
	directFileSink *DirectFileSink
	catalogCtas    *CatalogCtas
}

func NewTableMaterializer(config *Config, session *Session, policy *PartitionPolicy) *TableMaterializer {
	return &TableMaterializer{
		config:         config,
		session:        session,
		policy:         policy,
		directFileSink: NewDirectFileSink(config, session),
		catalogCtas:    NewCatalogCtas(config, session),
	}
}

// Picks the write strategy and the partition plan, prepares the dataset and writes it
func (materializer *TableMaterializer) Materialize(ctx context.Context, dataset *Dataset, job ConversionJob) error {
	strategy := job.WriteStrategy()
	plan := materializer.policy.PlanFor(job.Table.Name)

	prepared, err := PrepareDataset(ctx, materializer.session.duckdb, dataset, plan)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := prepared.Release(ctx, materializer.session.duckdb); releaseErr != nil {
			LogWarn(materializer.config, "Failed to release", prepared.Relation+":", releaseErr)
		}
	}()
	LogInfo(materializer.config, "Materializing", job.String(), "with", string(strategy), "("+plan.String()+",", prepared.RowCount(), "rows)")

	switch strategy {
	case WRITE_STRATEGY_CATALOG_CTAS:
		return materializer.catalogCtas.Write(ctx, prepared, job)
	default:
		return materializer.directFileSink.Write(ctx, prepared, job)
	}
}
