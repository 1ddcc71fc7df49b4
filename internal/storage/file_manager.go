package storage

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"geoalert/internal/providers"
)

// PersisterInterface saves and restores durable state between runs.
type PersisterInterface interface {
	Restore() error
	Persist() error
}

// FileManager writes MemoryStore snapshots as zstd-compressed JSON,
// replacing the previous file atomically.
type FileManager struct {
	store      *MemoryStore
	compressor CompressorInterface
	logger     providers.Logger
	path       string
}

func NewFileManager(path string, store *MemoryStore, compressor CompressorInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		store:      store,
		compressor: compressor,
		logger:     logger,
		path:       path,
	}
}

func (f *FileManager) Persist() error {
	return f.SaveToFile(f.path)
}

func (f *FileManager) Restore() error {
	return f.LoadFromFile(f.path)
}

func (f *FileManager) SaveToFile(fileName string) error {
	jsonData, err := json.Marshal(f.store.Snapshot())
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile restores the store from fileName. A missing file is not an
// error: the store simply starts empty.
func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressed, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(decompressed, &snapshot); err != nil {
		return err
	}
	if snapshot.Version > snapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported %d", snapshot.Version, snapshotVersion)
	}
	f.store.Restore(&snapshot)
	f.logger.Infof(providers.TypeApp, "Restored %d trackers, %d geofences, %d rules from %s",
		len(snapshot.Trackers), len(snapshot.Geofences), len(snapshot.Rules), fileName)
	return nil
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

type noopPersister struct{}

func (noopPersister) Restore() error { return nil }
func (noopPersister) Persist() error { return nil }
