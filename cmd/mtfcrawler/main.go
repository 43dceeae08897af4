package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mtfcrawler/internal"
	"mtfcrawler/internal/config"
	"mtfcrawler/internal/crawler"
	"mtfcrawler/internal/logging"
	"mtfcrawler/internal/pipeline"
	"mtfcrawler/internal/storage"
	"mtfcrawler/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "crawl:posts":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		url := fs.String("url", cfg.BaseURL, "listing page url")
		max := fs.Int("max", cfg.MaxPosts, "max posts, 0 = all")
		_ = fs.Parse(os.Args[2:])

		client := crawler.NewClient(cfg, log)
		svc := crawler.NewCrawlerService(client, log)
		posts, err := svc.CrawlPosts(context.Background(), *url, *max)
		must(err)
		stored := 0
		for _, post := range posts {
			_, err := db.UpsertPost(post)
			must(err)
			stored++
		}
		fmt.Printf("crawl done discovered=%d stored=%d\n", len(posts), stored)
	case "files:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", 20, "posts per run")
		_ = fs.Parse(os.Args[2:])

		client := crawler.NewClient(cfg, log)
		fileService := crawler.NewFileService(client, cfg, log)
		pending, err := db.ListPostsByStatus("discovered", *batch)
		must(err)

		fetchedPosts, fetchedFiles := 0, 0
		for _, post := range pending {
			files, err := fileService.ExtractFiles(context.Background(), post)
			if err != nil {
				log.Warnw("file fetch failed", "url", post.URL, "err", err)
				continue
			}
			for _, file := range files {
				must(db.UpsertFile(post.ID, file))
			}
			must(db.UpdatePostStatus(post.ID, "fetched"))
			fetchedPosts++
			fetchedFiles += len(files)
		}
		fmt.Printf("files fetch done posts=%d files=%d\n", fetchedPosts, fetchedFiles)
	case "materials:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		url := fs.String("url", "", "process one post by url")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])

		processor := pipeline.NewProcessingService(db, cfg, log)
		if strings.TrimSpace(*url) != "" {
			res, err := processor.ProcessByURL(*url)
			must(err)
			fmt.Printf("processed post id=%d materials=%d\n", res.PostID, res.Materials)
			return
		}
		posts, materials, err := processor.ProcessPending(*batch)
		must(err)
		fmt.Printf("processed pending posts=%d materials=%d\n", posts, materials)
	case "export:json":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", cfg.OutputDir, "output directory")
		batch := fs.Int("batch", 200, "posts per run")
		_ = fs.Parse(os.Args[2:])

		posts, err := db.ListPostsByStatus("processed", *batch)
		must(err)
		exported := 0
		for _, post := range posts {
			files, err := db.ListFilesByPost(post.ID)
			must(err)
			materials, err := db.ListMaterialsByPost(post.ID)
			must(err)
			doc := pipeline.BuildPostDocument(post, files, materials)
			path, err := pipeline.WritePostDocument(doc, *out)
			must(err)
			must(db.UpdatePostStatus(post.ID, "exported"))
			log.Infow("document written", "path", path)
			exported++
		}
		fmt.Printf("export done posts=%d dir=%s\n", exported, *out)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		url := fs.String("url", "", "post url")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*url) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--url and --out are required"))
		}

		post, err := db.MustPostByURL(*url)
		must(err)
		materials, err := db.ListMaterialsByPost(post.ID)
		must(err)
		rows := pipeline.MaterialsToExportRows(materials)
		if len(rows) == 0 {
			must(fmt.Errorf("no material rows for url=%s", *url))
		}
		must(pipeline.ExportMaterialsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "local spreadsheet path")
		output := fs.String("output", "", "output json path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}

		must(runLocalFile(*input, *output))
		fmt.Printf("run done output=%s\n", *output)
	case "watch":
		svc := watcher.NewService(db, cfg, log)
		must(svc.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

// runLocalFile normalizes a single spreadsheet without touching the
// crawler or the database and writes the material records as JSON.
func runLocalFile(inputPath, outputPath string) error {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(content)
	file := internal.SourceFile{
		Filename:   filepath.Base(inputPath),
		FileType:   strings.ToLower(filepath.Ext(inputPath)),
		SHA256Hash: hex.EncodeToString(sum[:]),
		FilePath:   inputPath,
		FileSize:   len(content),
		Content:    content,
	}

	normalizer := pipeline.NewNormalizerService(logging.NewNop())
	materials := normalizer.ProcessMaterials([]internal.SourceFile{file})

	data, err := json.MarshalIndent(materials, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func usage() {
	fmt.Println("usage: mtfcrawler <command>")
	fmt.Println("commands:")
	fmt.Println("  crawl:posts [--url=...] [--max=0]")
	fmt.Println("  files:fetch [--batch=20]")
	fmt.Println("  materials:process [--url=...] [--batch=20]")
	fmt.Println("  export:json [--out=./data/processed] [--batch=200]")
	fmt.Println("  export:xlsx --url=... --out=./out/materials.xlsx")
	fmt.Println("  run --input=./tests.xlsx --output=./materials.json")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
