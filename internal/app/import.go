package app

import (
	"context"
	"errors"

	"github.com/prk-tuition/homework-service/internal/config"
	"github.com/prk-tuition/homework-service/internal/importer"
	"github.com/rs/zerolog"
)

// RunImport copies the configured spreadsheets into the Postgres
// repositories.
func RunImport(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*importer.Report, error) {
	if cfg.Storage.Driver == config.StorageDriverSheets {
		return nil, errors.New("import-sheets needs storage.driver=postgres as the destination")
	}

	dst, err := NewStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	gw, err := dst.openSheets(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	ids := cfg.Storage.Sheets
	src := importer.Source{
		Repositories:  sheetRepositories(gw, ids, log),
		Gateway:       gw,
		LiveAnswersID: ids.LegacyLiveAnswersID,
		AnswerBankID:  ids.LegacyAnswerBankID,
	}
	if ids.AnswersID == "" {
		src.Answers = nil
	}

	return importer.New(src, dst.Repositories, log).Run(ctx)
}
