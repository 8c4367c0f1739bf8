package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/storage"
)

// Journal appends every settled trade to a CSV file as it happens.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// OpenJournal opens path for appending, writing the header to a new file.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	j := &Journal{file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := j.writer.Write(CSVHeaders()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write journal header: %w", err)
		}
		j.writer.Flush()
	}
	return j, nil
}

// Handle implements events.Handler for TradeExecuted.
func (j *Journal) Handle(_ context.Context, event events.Event) error {
	trade, ok := event.(events.TradeEvent)
	if !ok {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Write(CSVRecord(storage.TradeFromEvent(trade))); err != nil {
		return fmt.Errorf("failed to write journal row: %w", err)
	}
	j.writer.Flush()
	return j.writer.Error()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
