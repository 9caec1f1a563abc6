package dig_container

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

func TestNew_MemoryEngine(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_DATABASE_ENGINE", "memory")
	t.Setenv("TEST_REDIS_ADDRESS", "")

	c := New()
	err := c.Invoke(func(conf *core.Config, db *sqlx.DB, sessions session.Store, server *echoapi.Server) {
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Nil(t, db, "no SQL database for the memory engine")
		assert.NotNil(t, sessions)
		assert.NotNil(t, server)
	})
	require.NoError(t, err)
}
