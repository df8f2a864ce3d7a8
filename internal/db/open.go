package stamps

import (
	conf "github.com/glkeru/loyalty/stamps/internal/config"
	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	"go.uber.org/zap"
)

// OpenLocal opens the local store chosen by STAMPS_LOCAL_STORE: sqlite by default or redis.
func OpenLocal(cfg *conf.Config, logger *zap.Logger) (interf.LocalStore, func(), error) {
	if cfg.LocalStore == "redis" {
		cache, err := NewCacheService(cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { cache.Close() }, nil
	}
	local, err := NewLocalDB(cfg.SQLitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	return local, func() { local.Close() }, nil
}
