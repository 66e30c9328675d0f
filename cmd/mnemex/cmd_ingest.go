package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mnemex/internal/toolimpl"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a single file immediately",
	Long: `Hashes and ingests one file right now, running the same
doc/image/asr pipeline selection the watch daemon runs on a poll cycle,
and prints the resulting memory card's summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, sample, size, err := hashFileForIngest(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	mime := toolimpl.DetectMime(path, sample)

	src, err := a.store.UpsertSource("filesystem", "file://"+path)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	blob, err := a.store.UpsertBlob(sum, path, mime, size)
	if err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}

	consoleLog.Info("ingesting", zap.String("path", path), zap.String("mime", mime), zap.String("blob_id", blob.BlobID))

	ctx := context.Background()
	if err := a.orchestrator.IngestBlob(ctx, map[string]any{
		"blob_id":   blob.BlobID,
		"source_id": src.SourceID,
		"path":      path,
		"sha256":    sum,
		"mime":      mime,
		"size":      float64(size),
	}); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	card, err := a.store.FindMemoryCardByBlobID(blob.BlobID)
	if err != nil {
		return fmt.Errorf("load resulting memory card: %w", err)
	}
	if card == nil {
		fmt.Println("Ingested, but no memory card was produced.")
		return nil
	}
	fmt.Printf("memory_id: %s\ntype:      %s\nsummary:   %s\n", card.MemoryID, card.CardType, card.Summary)
	return nil
}

// hashFileForIngest streams the file through SHA-256 and returns its
// digest, a sample of up to its first 512 bytes for mime sniffing, and
// its size, mirroring internal/watcher.Scanner's own hashing step for
// a one-shot CLI ingest.
func hashFileForIngest(path string) (sum string, sample []byte, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", nil, 0, err
	}

	h := sha256.New()
	buf := make([]byte, 32*1024)
	first := true
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if first {
				sampleLen := n
				if sampleLen > 512 {
					sampleLen = 512
				}
				sample = append([]byte(nil), buf[:sampleLen]...)
				first = false
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", nil, 0, readErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), sample, info.Size(), nil
}
