package storage

import (
	"fmt"

	"geoalert/internal/providers"
	"geoalert/internal/structures"
)

func NewStore(conf *structures.Config, logger providers.Logger) (Store, func(), error) {
	switch conf.Storage.Driver {
	case "sqlite":
		s, err := OpenSQLiteStore(conf.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof(providers.TypeApp, "Using sqlite store at %s", conf.Storage.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Errorf(providers.TypeApp, "Closing sqlite store: %s", err)
			}
		}, nil
	case "memory", "":
		logger.Infof(providers.TypeApp, "Using in-memory store, snapshots at %s", conf.Persistence.FilePath)
		return NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

// NewPersister snapshots the in-memory store to disk. SQLite is durable on
// its own and gets a no-op.
func NewPersister(conf *structures.Config, store Store, logger providers.Logger) (PersisterInterface, func(), error) {
	mem, ok := store.(*MemoryStore)
	if !ok {
		return noopPersister{}, func() {}, nil
	}
	compressor, err := NewZstdCompressor()
	if err != nil {
		return nil, nil, fmt.Errorf("create compressor: %w", err)
	}
	fm := NewFileManager(conf.Persistence.FilePath, mem, compressor, logger)
	return fm, fm.Close, nil
}
