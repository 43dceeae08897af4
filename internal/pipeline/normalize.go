package pipeline

import (
	"go.uber.org/zap"

	"mtfcrawler/internal"
)

// NormalizerService turns downloaded spreadsheet files into material
// records. It never returns an error: a file that cannot be read at all
// still yields one RAW record, so a batch always produces at least one
// record per input file.
type NormalizerService struct {
	log *zap.SugaredLogger
}

func NewNormalizerService(log *zap.SugaredLogger) *NormalizerService {
	return &NormalizerService{log: log.Named("normalizer")}
}

// ProcessMaterials extracts materials from every file in the batch.
func (s *NormalizerService) ProcessMaterials(files []internal.SourceFile) []internal.MaterialRecord {
	var records []internal.MaterialRecord
	for _, file := range files {
		recs := s.processSingleFile(file)
		records = append(records, recs...)
	}
	s.log.Infow("batch processed", "files", len(files), "materials", len(records))
	return records
}

func (s *NormalizerService) processSingleFile(file internal.SourceFile) []internal.MaterialRecord {
	table, err := ReadTable(file.Content, file.FileType)
	if err != nil {
		s.log.Warnw("unreadable file", "filename", file.Filename, "err", err)
		rec := internal.NewRawMaterialRecord(
			MaterialNameFromFilename(file.Filename),
			file.SHA256Hash,
			map[string]any{"error": err.Error()},
		)
		return []internal.MaterialRecord{rec}
	}

	records := ExtractMaterials(table, file)
	s.log.Debugw("file processed",
		"filename", file.Filename, "sheet", table.SheetName, "materials", len(records))
	return records
}
