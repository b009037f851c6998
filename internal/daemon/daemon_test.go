package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/apurimac/internal/api"
	"github.com/matheus3301/apurimac/internal/config"
	"github.com/matheus3301/apurimac/internal/lock"
	"github.com/matheus3301/apurimac/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// testParams points the daemon at a throwaway home. Sockets go under /tmp to
// stay below the 104-char Unix socket path limit on macOS.
func testParams(t *testing.T) Params {
	t.Helper()
	t.Setenv(session.HomeEnv, t.TempDir())

	tmpDir, err := os.MkdirTemp("/tmp", "apurimac-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	cfg := config.Default()
	cfg.Blob.Listen = "127.0.0.1:0"
	return Params{
		SessionName: "test",
		SocketPath:  filepath.Join(tmpDir, "d.sock"),
		Config:      cfg,
	}
}

func TestFxModuleWiring(t *testing.T) {
	require.NoError(t, fx.ValidateApp(Module(testParams(t))))
}

func TestDaemonLifecycle(t *testing.T) {
	p := testParams(t)
	app := fxtest.New(t, Module(p))
	app.RequireStart()

	c, err := api.Dial(p.SocketPath)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SIGNED_OUT", st.Phase)

	st, err = c.SignUp(ctx, api.SignUpRequest{Name: "Nadia", PhoneNumber: "5550001", Email: "n@x.com", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, st.User)

	image := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	addr, err := c.UploadProfileImage(ctx, image)
	require.NoError(t, err)

	resp, err := resty.New().R().SetContext(ctx).Get(addr)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, image, resp.Body())

	// The lock is held while running.
	_, err = lock.Acquire(session.LockPath(p.SessionName))
	var held *lock.LockHeldError
	assert.True(t, errors.As(err, &held))

	app.RequireStop()
	_, err = os.Stat(p.SocketPath)
	assert.True(t, os.IsNotExist(err), "socket left behind")
}

func TestDaemonRestoresSession(t *testing.T) {
	p := testParams(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app := fxtest.New(t, Module(p))
	app.RequireStart()
	c, err := api.Dial(p.SocketPath)
	require.NoError(t, err)
	_, err = c.SignUp(ctx, api.SignUpRequest{Name: "Nadia", PhoneNumber: "5550001", Email: "n@x.com", Password: "secret"})
	require.NoError(t, err)
	_ = c.Close()
	app.RequireStop()

	app = fxtest.New(t, Module(p))
	app.RequireStart()
	defer app.RequireStop()

	c, err = api.Dial(p.SocketPath)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.Eventually(t, func() bool {
		st, err := c.GetState(ctx)
		return err == nil && st.User != nil && st.User.Email == "n@x.com" &&
			st.Profile != nil && st.Phase == "READY"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestInvalidConfigFailsStartup(t *testing.T) {
	p := testParams(t)
	p.Config.Blob.Backend = "ftp"
	app := fx.New(Module(p), fx.NopLogger)
	assert.Error(t, app.Err())
}
