package internal

// QualityRating classifies how much a material record can be trusted
// downstream. OK means the record carries at least three extracted
// properties, WARN means extraction succeeded but yielded fewer, RAW means
// extraction failed and the record carries a diagnostic payload instead.
type QualityRating string

const (
	QualityOK   QualityRating = "OK"
	QualityWarn QualityRating = "WARN"
	QualityRaw  QualityRating = "RAW"
)

// NormalizedValue is one SI-converted property value. OriginalValue and
// OriginalUnit reproduce the cell exactly as parsed, before conversion.
type NormalizedValue struct {
	Value         float64 `json:"value"`
	Unit          string  `json:"unit"`
	OriginalValue float64 `json:"original_value"`
	OriginalUnit  string  `json:"original_unit"`
}

// MaterialRecord is the normalized output entity for one material found in
// one source file. Field names are the wire contract of the per-post JSON
// document.
type MaterialRecord struct {
	MaterialName     string                     `json:"material_name"`
	Brand            *string                    `json:"brand"`
	Properties       map[string]any             `json:"properties"`
	OriginalValues   map[string]any             `json:"original_values"`
	NormalizedValues map[string]NormalizedValue `json:"normalized_values"`
	QualityRating    QualityRating              `json:"quality_rating"`
	SourceFileHash   string                     `json:"source_file_hash"`
	SheetPosition    *string                    `json:"sheet_position"`
}

// NewMaterialRecord creates an empty record ready for AddProperty calls
// during extraction.
func NewMaterialRecord(name, sourceFileHash string) MaterialRecord {
	return MaterialRecord{
		MaterialName:     name,
		Properties:       map[string]any{},
		OriginalValues:   map[string]any{},
		NormalizedValues: map[string]NormalizedValue{},
		QualityRating:    QualityOK,
		SourceFileHash:   sourceFileHash,
	}
}

// NewRawMaterialRecord creates a RAW-quality record carrying a diagnostic
// payload in place of extracted properties.
func NewRawMaterialRecord(name, sourceFileHash string, diagnostics map[string]any) MaterialRecord {
	original := make(map[string]any, len(diagnostics))
	for k, v := range diagnostics {
		original[k] = v
	}
	return MaterialRecord{
		MaterialName:     name,
		Properties:       diagnostics,
		OriginalValues:   original,
		NormalizedValues: map[string]NormalizedValue{},
		QualityRating:    QualityRaw,
		SourceFileHash:   sourceFileHash,
	}
}

// AddProperty records one extracted property. The current value in
// Properties is the normalized value when conversion succeeded, else the
// original. Repeated calls for the same canonical name overwrite
// (last-column-wins).
func (m *MaterialRecord) AddProperty(name string, original any, normalized *NormalizedValue) {
	if normalized != nil {
		m.Properties[name] = normalized.Value
		m.NormalizedValues[name] = *normalized
	} else {
		m.Properties[name] = original
	}
	m.OriginalValues[name] = original
}

// PropertyValue returns the current value for a canonical property,
// preferring the normalized value when present.
func (m *MaterialRecord) PropertyValue(name string) (any, bool) {
	if nv, ok := m.NormalizedValues[name]; ok {
		return nv.Value, true
	}
	v, ok := m.Properties[name]
	return v, ok
}

// SourceFile is one downloaded spreadsheet attachment. Content holds the
// raw bytes when the file has been read; the normalizer operates on Content
// only and never touches the filesystem.
type SourceFile struct {
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	SHA256Hash    string `json:"sha256_hash"`
	FilePath      string `json:"file_path"`
	DownloadedAt  string `json:"download_timestamp"`
	SourcePostURL string `json:"source_post_url"`
	FileSize      int    `json:"file_size"`
	URL           string `json:"url"`

	Content []byte `json:"-"`
}

// PostRow is a crawled material test post as stored in the database.
type PostRow struct {
	ID                int
	URL               string
	Title             string
	CleanedText       string
	YouTubeLink       *string
	ManufacturerLinks []string
	DownloadedAt      string
	PostHash          string
	Status            string
}

// Provenance is the audit block attached to every per-post document.
type Provenance struct {
	SourceURL         string  `json:"source_url"`
	DownloadTimestamp string  `json:"download_timestamp"`
	StorageKey        string  `json:"storage_key"`
	SHA256Hash        string  `json:"sha256_hash"`
	FileCount         int     `json:"file_count"`
	MaterialCount     int     `json:"material_count"`
	SheetPosition     *string `json:"sheet_position,omitempty"`
}

// PostInfo is the post metadata section of the per-post document.
type PostInfo struct {
	URL               string   `json:"url"`
	Title             string   `json:"title"`
	CleanedText       string   `json:"cleaned_text"`
	YouTubeLink       *string  `json:"youtube_link"`
	ManufacturerLinks []string `json:"manufacturer_links"`
	DownloadTimestamp string   `json:"download_timestamp"`
	PostHash          string   `json:"post_hash"`
}

// DocumentMetadata describes the generator of a per-post document.
type DocumentMetadata struct {
	SchemaVersion string `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	Generator     string `json:"generator"`
}

// DocumentLicensing carries the attribution block required for
// redistribution of the extracted data.
type DocumentLicensing struct {
	Attribution string `json:"attribution"`
	License     string `json:"license"`
	SourceURL   string `json:"source_url"`
}

// PostDocument is the complete per-post output: post metadata, file
// metadata, extracted materials and the provenance block. The post/files/
// materials/provenance field names are a downstream contract.
type PostDocument struct {
	Post       PostInfo          `json:"post"`
	Files      []SourceFile      `json:"files"`
	Materials  []MaterialRecord  `json:"materials"`
	Provenance Provenance        `json:"provenance"`
	Title      string            `json:"title"`
	Metadata   DocumentMetadata  `json:"_metadata"`
	Licensing  DocumentLicensing `json:"_licensing"`
}

// MaterialExportRow is one flattened material/property pair for spreadsheet
// export.
type MaterialExportRow struct {
	MaterialName   string
	QualityRating  string
	SourceFileHash string
	SheetPosition  *string
	Property       string
	Value          *float64
	Unit           *string
	OriginalValue  *float64
	OriginalUnit   *string
}
