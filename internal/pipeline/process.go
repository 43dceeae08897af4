package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"mtfcrawler/internal"
	"mtfcrawler/internal/config"
	"mtfcrawler/internal/storage"
)

// ProcessingService runs normalization over crawled posts: it loads each
// post's downloaded files from disk, extracts material records and stores
// them, advancing the post to the "processed" status.
type ProcessingService struct {
	db         *storage.DB
	cfg        config.Config
	log        *zap.SugaredLogger
	normalizer *NormalizerService
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger) *ProcessingService {
	return &ProcessingService{
		db:         db,
		cfg:        cfg,
		log:        log.Named("process"),
		normalizer: NewNormalizerService(log),
	}
}

type ProcessResult struct {
	PostID    int
	Materials int
}

func (s *ProcessingService) ProcessByURL(url string) (ProcessResult, error) {
	post, err := s.db.MustPostByURL(url)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessPost(post)
}

// ProcessPending processes up to limit posts in the "fetched" status.
// Returns the number of posts and materials processed.
func (s *ProcessingService) ProcessPending(limit int) (int, int, error) {
	pending, err := s.db.ListPostsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedPosts := 0
	processedMaterials := 0
	for _, post := range pending {
		res, err := s.ProcessPost(post)
		if err != nil {
			return processedPosts, processedMaterials, err
		}
		processedPosts++
		processedMaterials += res.Materials
	}
	return processedPosts, processedMaterials, nil
}

func (s *ProcessingService) ProcessPost(post internal.PostRow) (ProcessResult, error) {
	start := time.Now()

	files, err := s.db.ListFilesByPost(post.ID)
	if err != nil {
		return ProcessResult{}, err
	}

	for i := range files {
		content, err := os.ReadFile(files[i].FilePath)
		if err != nil {
			// nil Content degrades to a RAW record in the normalizer
			s.log.Warnw("cannot read stored file", "path", files[i].FilePath, "err", err)
			continue
		}
		files[i].Content = content
	}

	materials := s.normalizer.ProcessMaterials(files)
	if err := s.db.ReplaceMaterials(post.ID, materials); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdatePostStatus(post.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}

	ok, warn, raw := 0, 0, 0
	for _, m := range materials {
		switch m.QualityRating {
		case internal.QualityOK:
			ok++
		case internal.QualityWarn:
			warn++
		case internal.QualityRaw:
			raw++
		}
	}
	_ = s.db.InsertRun(traceID(), post.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"files": len(files), "materials": len(materials), "ok": ok, "warn": warn, "raw": raw})

	s.log.Infow("post processed", "post", post.URL, "materials", len(materials), "ok", ok, "warn", warn, "raw", raw)
	return ProcessResult{PostID: post.ID, Materials: len(materials)}, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
