package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const shardFileTemplate = "client_%d_data.csv"

// WriteShards writes one CSV per shard into dir, named client_<id>_data.csv
// with ids starting at 1. This is the agent's on-disk data contract.
func WriteShards(dir string, shards []Set) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shard directory '%s': %w", dir, err)
	}

	for i, shard := range shards {
		path := filepath.Join(dir, fmt.Sprintf(shardFileTemplate, i+1))
		if err := WriteSet(path, shard); err != nil {
			return err
		}
	}

	return nil
}

// WriteSet writes one labelled set as a CSV with a header row.
func WriteSet(path string, shard Set) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create shard file '%s': %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append(append([]string{}, shard.Features...), targetColumn)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write shard header: %w", err)
	}

	row := make([]string, len(header))
	for i, x := range shard.X {
		for j, v := range x {
			row[j] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		row[len(row)-1] = strconv.Itoa(shard.Y[i])
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write shard row: %w", err)
		}
	}
	w.Flush()

	return w.Error()
}

// LoadShard reads one client's shard from dir by its numeric id.
func LoadShard(dir string, clientID int) (Set, error) {
	return Load(filepath.Join(dir, fmt.Sprintf(shardFileTemplate, clientID)))
}
