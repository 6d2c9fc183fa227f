package main

import (
	"context"
)

// Plain file writes to <output_prefix>/<table>, optionally registered as an external table
type DirectFileSink struct {
	config  *Config
	session *Session
}

func NewDirectFileSink(config *Config, session *Session) *DirectFileSink {
	return &DirectFileSink{config: config, session: session}
}

func (sink *DirectFileSink) Write(ctx context.Context, prepared *PreparedDataset, job ConversionJob) error {
	target := job.TargetPath()
	format := job.DataFileFormat()
	isDelta := job.OutputFormat == FORMAT_DELTA

	codec, err := ResolveCodec(format, job.CompressionCodec, DEFAULT_DATA_FILE_CODECS[format])
	if err != nil {
		return err
	}

	exists, err := sink.targetExists(target, isDelta)
	if err != nil {
		return err
	}
	var registeredTable *CatalogTable
	if job.UseHiveExternalTable {
		registeredTable, err = sink.session.GetTable(ctx, job.Table.Name)
		if err != nil {
			return err
		}
	}

	switch job.WriteMode {
	case WRITE_MODE_OVERWRITE:
		if registeredTable != nil {
			err = sink.session.Sql(ctx, DropTable{Name: job.Table.Name, IfExists: true})
			if err != nil {
				return err
			}
			registeredTable = nil
		}
		// Delta keeps old files and removes them in the next commit
		if exists && !isDelta {
			err = sink.session.storage.Delete(target)
			if err != nil {
				return NewEngineError("overwrite "+target, err)
			}
		}
	case WRITE_MODE_IGNORE:
		if exists || registeredTable != nil {
			LogInfo(sink.config, "Skipping", job.Table.Name+":", target, "already exists")
			return nil
		}
	case WRITE_MODE_ERROR, WRITE_MODE_ERROR_IF_EXISTS:
		if exists || registeredTable != nil {
			return &WriteConflictError{Target: target, WriteMode: job.WriteMode}
		}
	}

	dataFiles, err := WriteSegments(ctx, sink.session.dataFileWriter, prepared, target, DataFileSpec{
		Format:  format,
		Codec:   codec,
		Columns: prepared.DataColumns(false),
	})
	if err != nil {
		return err
	}

	if isDelta {
		_, err = sink.session.deltaLog.Commit(target, DeltaCommit{
			Operation:        DELTA_OPERATION_WRITE,
			WriteMode:        job.WriteMode,
			Columns:          prepared.Dataset.Columns,
			PartitionColumns: partitionColumns(prepared.Plan.Column),
			DataFiles:        dataFiles,
		})
	} else {
		err = sink.session.storage.WriteFile(JoinPath(target, SUCCESS_FILE_NAME), []byte{})
	}
	if err != nil {
		return NewEngineError("commit "+target, err)
	}

	if !job.UseHiveExternalTable || registeredTable != nil {
		return nil
	}
	return sink.session.Sql(ctx, CreateExternalTable{
		Name:            job.Table.Name,
		Provider:        job.OutputFormat,
		PartitionColumn: prepared.Plan.Column,
		Location:        target,
		Columns:         prepared.Dataset.Columns,
	})
}

func (sink *DirectFileSink) targetExists(target string, isDelta bool) (bool, error) {
	var exists bool
	var err error
	if isDelta {
		exists, err = sink.session.deltaLog.Exists(target)
	} else {
		exists, err = sink.session.storage.Exists(target)
	}
	return exists, NewEngineError("check "+target, err)
}
