package dig_container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/bitacora/apps/api/echo"
	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/storage"
)

func TestNew(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_STORE_DRIVER", core.StoreMemory)
	t.Setenv("TEST_TIMEZONE", "UTC")

	c := New()
	err := c.Invoke(func(conf *core.Config, server *echoapi.Server, verifier echoapi.IDTokenVerifier, closeStore storage.CloseFunc) {
		assert.Equal(t, core.StoreMemory, conf.Store.Driver)
		assert.NotNil(t, server)
		assert.Nil(t, verifier)
		assert.NoError(t, closeStore())
	})
	require.NoError(t, err)
}
