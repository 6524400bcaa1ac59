package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"certrag/src/core/rag"
	"certrag/src/infrastructure/log"
	"certrag/src/storage/minioctrl"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Upload and ingest a directory of study materials",
	Long: `The ingest command walks a local directory, uploads every supported
file (PDF, DOCX) to the material bucket and runs the ingestion pipeline
for each one. Object keys mirror the relative paths inside the
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := args[0]

	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %w", err)
	}

	ollamaClient, err := newOllamaClient()
	if err != nil {
		return fmt.Errorf("failed to initialize ollama client: %w", err)
	}

	vectorIndex, err := newVectorIndex()
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}

	chunker, err := newChunker()
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	// No material tracking for one-shot CLI ingestion
	ingestService := rag.NewIngestService(minioService, chunker, ollamaClient, vectorIndex, nil)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".docx":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("no supported files found")
		return nil
	}

	ctx := context.Background()
	bucket := viper.GetString("minio.material_bucket")
	if err := minioService.EnsureBucketExists(ctx, bucket); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	bar := progressbar.Default(int64(len(files)), "ingesting")
	ingested := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error(err, "failed to read file", "path", path)
			bar.Add(1)
			continue
		}

		objectKey, err := filepath.Rel(root, path)
		if err != nil {
			objectKey = filepath.Base(path)
		}
		objectKey = filepath.ToSlash(objectKey)

		if err := minioService.PutObject(ctx, bucket, objectKey, data, ""); err != nil {
			log.Error(err, "failed to upload file", "path", path)
			bar.Add(1)
			continue
		}

		if _, err := ingestService.IngestObject(ctx, bucket, objectKey); err != nil {
			log.Error(err, "failed to ingest file", "objectKey", objectKey)
			bar.Add(1)
			continue
		}

		ingested++
		bar.Add(1)
	}

	fmt.Printf("ingested %d of %d files\n", ingested, len(files))
	return nil
}
