// Package keyvalue opens the configured backend of the client-local session storage.
package keyvalue

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	filekv "github.com/trezcool/tripsync/storage/keyvalue/file"
	memorykv "github.com/trezcool/tripsync/storage/keyvalue/memory"
	postgreskv "github.com/trezcool/tripsync/storage/keyvalue/postgres"
	rediskv "github.com/trezcool/tripsync/storage/keyvalue/redis"
)

// Open returns the KeyValueStore selected by conf.Backend.
func Open(ctx context.Context, conf core.SessionConfig) (core.KeyValueStore, error) {
	switch conf.Backend {
	case core.SessionBackendMemory:
		return memorykv.Open(), nil
	case core.SessionBackendFile, "":
		return filekv.Open(conf.File)
	case core.SessionBackendRedis:
		return rediskv.Open(ctx, conf)
	case core.SessionBackendPostgres:
		db, err := postgreskv.Open(ctx, conf.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := postgreskv.New(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, errors.Errorf("unknown session backend %q", conf.Backend)
}
