package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/apurimac/internal/api"
	"github.com/matheus3301/apurimac/internal/auth"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/blob"
	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/config"
	"github.com/matheus3301/apurimac/internal/docstore"
	"github.com/matheus3301/apurimac/internal/lock"
	"github.com/matheus3301/apurimac/internal/logging"
	"github.com/matheus3301/apurimac/internal/session"
	"github.com/matheus3301/apurimac/internal/store"
	"github.com/matheus3301/apurimac/internal/viewmodel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional; nil = load ~/.apurimac/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideAuth,
			provideDocStore,
			provideBlobs,
			provideViewModel,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOrDefault(session.ConfigPath()); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is only opened by its holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAuth(p Params, cfg *config.Config, db *store.DB, logger *zap.Logger) (*auth.Service, error) {
	secret := cfg.Auth.Secret
	if secret == "" {
		var err error
		if secret, err = auth.LoadOrCreateSecret(session.SecretPath(p.SessionName)); err != nil {
			return nil, err
		}
	}
	return auth.New(db, auth.Options{
		Secret:    secret,
		TokenPath: session.TokenPath(p.SessionName),
		TokenTTL:  cfg.Auth.TokenTTL.Duration,
	}, logger.Named("auth"))
}

func provideDocStore(db *store.DB, b *bus.Bus, logger *zap.Logger) *docstore.Store {
	return docstore.New(db, b, logger.Named("docstore"))
}

// provideBlobs picks the blob backend. The file backend comes with an HTTP
// endpoint; S3 serves presigned addresses itself.
func provideBlobs(p Params, cfg *config.Config, logger *zap.Logger) (backend.BlobStore, *BlobServer, error) {
	if cfg.Blob.Backend == config.BlobS3 {
		s3cfg := cfg.Blob.S3
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s3store, err := blob.NewS3Store(ctx, blob.S3Options{
			Region:     s3cfg.Region,
			Endpoint:   s3cfg.Endpoint,
			Bucket:     s3cfg.Bucket,
			AccessKey:  s3cfg.AccessKey,
			SecretKey:  s3cfg.SecretKey,
			PresignTTL: s3cfg.PresignTTL.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("blob backend: s3", zap.String("bucket", s3cfg.Bucket))
		return s3store, nil, nil
	}

	// Listen before building the store so an ephemeral port ends up in the
	// resolved addresses.
	srv, err := newBlobServer(cfg.Blob.Listen, logger.Named("blob"))
	if err != nil {
		return nil, nil, err
	}
	baseURL := cfg.Blob.PublicURL
	if baseURL == "" {
		baseURL = "http://" + srv.Addr()
	}
	files, err := blob.NewFileStore(session.BlobDir(p.SessionName), baseURL)
	if err != nil {
		_ = srv.listener.Close()
		return nil, nil, err
	}
	srv.serve(files)
	logger.Info("blob backend: file", zap.String("base_url", baseURL))
	return files, srv, nil
}

func provideViewModel(a *auth.Service, docs *docstore.Store, blobs backend.BlobStore, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *viewmodel.ViewModel {
	return viewmodel.New(a, docs, blobs, b, logger.Named("viewmodel"), viewmodel.Options{
		StatusRetention: cfg.Status.Retention.Duration,
	})
}

func provideService(p Params, vm *viewmodel.ViewModel, logger *zap.Logger) *api.Service {
	return api.NewService(p.SessionName, vm, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, blobs *BlobServer, lk *lock.Lock, db *store.DB, vm *viewmodel.ViewModel, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			blobs.Start()

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if vm.Restore() {
				logger.Info("resumed previous session", zap.String("user_id", vm.CurrentUser().UserID))
			} else {
				logger.Info("no session found, sign in required")
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := blobs.Stop(ctx); err != nil {
				logger.Warn("error stopping blob endpoint", zap.Error(err))
			}
			vm.Close()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
