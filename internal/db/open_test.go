package stamps

import (
	"context"
	"path/filepath"
	"testing"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenLocalSQLite(t *testing.T) {
	cfg := &conf.Config{LocalStore: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "stamps.db")}
	local, closeLocal, err := OpenLocal(cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeLocal()

	require.IsType(t, &LocalDB{}, local)
	require.NoError(t, local.SetMeta(context.Background(), "k", "v"))
}

func TestOpenLocalRedisRequiresAddr(t *testing.T) {
	_, _, err := OpenLocal(&conf.Config{LocalStore: "redis"}, zap.NewNop())
	require.Error(t, err)
}
