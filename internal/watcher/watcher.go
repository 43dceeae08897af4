package watcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mtfcrawler/internal/config"
	"mtfcrawler/internal/crawler"
	"mtfcrawler/internal/pipeline"
	"mtfcrawler/internal/storage"
)

// Service periodically re-crawls the listing page, fetches files for new
// posts, processes them and optionally exports the results. One cycle
// advances posts along the discovered -> fetched -> processed -> exported
// lifecycle.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log *zap.SugaredLogger
}

func NewService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, log: log.Named("watcher")}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Errorw("watcher cycle error", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatchIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	client := crawler.NewClient(s.cfg, s.log)
	crawlService := crawler.NewCrawlerService(client, s.log)
	fileService := crawler.NewFileService(client, s.cfg, s.log)

	posts, err := crawlService.CrawlPosts(ctx, s.cfg.BaseURL, s.cfg.WatchCrawlMax)
	if err != nil {
		return err
	}
	discovered := 0
	for _, post := range posts {
		existing, err := s.db.GetPostByURL(post.URL)
		if err != nil {
			return err
		}
		// unchanged posts keep their status, so reprocessing only happens
		// when the content hash moves
		if existing != nil && existing.PostHash == post.PostHash {
			continue
		}
		if _, err := s.db.UpsertPost(post); err != nil {
			return err
		}
		discovered++
	}

	fetched, err := s.fetchDiscovered(ctx, fileService)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	processedPosts, _, err := processor.ProcessPending(s.cfg.WatchProcessBatch)
	if err != nil {
		return err
	}

	exported := 0
	if s.cfg.WatchAutoExport {
		exported, err = s.exportProcessed()
		if err != nil {
			return err
		}
	}

	s.log.Infow("watcher cycle done",
		"discovered", discovered, "fetched", fetched, "processed", processedPosts, "exported", exported)
	return nil
}

func (s *Service) fetchDiscovered(ctx context.Context, fileService *crawler.FileService) (int, error) {
	pending, err := s.db.ListPostsByStatus("discovered", s.cfg.WatchProcessBatch)
	if err != nil {
		return 0, err
	}

	fetched := 0
	for _, post := range pending {
		files, err := fileService.ExtractFiles(ctx, post)
		if err != nil {
			s.log.Warnw("file fetch failed", "url", post.URL, "err", err)
			continue
		}
		for _, file := range files {
			if err := s.db.UpsertFile(post.ID, file); err != nil {
				return fetched, err
			}
		}
		if err := s.db.UpdatePostStatus(post.ID, "fetched"); err != nil {
			return fetched, err
		}
		fetched++
	}
	return fetched, nil
}

func (s *Service) exportProcessed() (int, error) {
	posts, err := s.db.ListPostsByStatus("processed", 200)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, post := range posts {
		files, err := s.db.ListFilesByPost(post.ID)
		if err != nil {
			return exported, err
		}
		materials, err := s.db.ListMaterialsByPost(post.ID)
		if err != nil {
			return exported, err
		}

		doc := pipeline.BuildPostDocument(post, files, materials)
		if _, err := pipeline.WritePostDocument(doc, s.cfg.OutputDir); err != nil {
			return exported, err
		}
		if err := s.db.UpdatePostStatus(post.ID, "exported"); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}
