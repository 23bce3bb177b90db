package main

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// IngestedFile records a spreadsheet that was ingested and its content hash.
type IngestedFile struct {
	FilePath      string    `json:"file_path"`
	FileHash      string    `json:"file_hash"`
	EntriesAdded  int       `json:"entries_added"`
	EntriesFailed int       `json:"entries_failed"`
	IngestedAt    time.Time `json:"ingested_at"`
}

// CacheData is the on-disk record of ingested files, keyed by path.
type CacheData struct {
	IngestedFiles map[string]IngestedFile `json:"ingested_files"`
}

func newCache() *CacheData {
	return &CacheData{IngestedFiles: make(map[string]IngestedFile)}
}

// loadCache reads the cache file. A missing or empty file is an empty cache.
func loadCache(cacheFile string) (*CacheData, error) {
	data, err := os.ReadFile(cacheFile)
	if os.IsNotExist(err) {
		return newCache(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return newCache(), nil
	}

	cache := newCache()
	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.IngestedFiles == nil {
		cache.IngestedFiles = make(map[string]IngestedFile)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Unchanged reports whether path was ingested before with the same hash.
func (c *CacheData) Unchanged(path, hash string) bool {
	cached, ok := c.IngestedFiles[path]
	return ok && hash != "" && cached.FileHash == hash
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
