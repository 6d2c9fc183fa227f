package main

import (
	"context"
)

// Catalog-backed "create table as select" for iceberg and managed delta tables:
// drop under overwrite, stage the temporary view, apply the session codec, create once
type CatalogCtas struct {
	config  *Config
	session *Session
}

func NewCatalogCtas(config *Config, session *Session) *CatalogCtas {
	return &CatalogCtas{config: config, session: session}
}

func (ctas *CatalogCtas) Write(ctx context.Context, prepared *PreparedDataset, job ConversionJob) error {
	if job.WriteMode == WRITE_MODE_OVERWRITE {
		err := ctas.session.Sql(ctx, DropTable{Name: job.Table.Name, IfExists: true})
		if err != nil {
			return err
		}
	} else {
		exists, err := ctas.session.TableExists(ctx, job.Table.Name)
		if err != nil {
			return err
		}
		if exists {
			return &WriteConflictError{Target: ctas.session.CurrentDatabase() + "." + job.Table.Name, WriteMode: job.WriteMode}
		}
	}

	ctas.session.CreateOrReplaceTempView(TEMP_VIEW_NAME, prepared)

	if setConf := BuildSessionConf(job); setConf != nil {
		err := ctas.session.Sql(ctx, *setConf)
		if err != nil {
			return err
		}
	}

	return ctas.session.Sql(ctx, BuildCtas(job, prepared.Plan))
}
