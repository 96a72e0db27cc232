package daemon

import (
	"context"

	"github.com/matheus3301/charly/internal/account"
	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/api"
	"github.com/matheus3301/charly/internal/assistant"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/clock"
	"github.com/matheus3301/charly/internal/config"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/lock"
	"github.com/matheus3301/charly/internal/logging"
	"github.com/matheus3301/charly/internal/profile"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/store"
	intsync "github.com/matheus3301/charly/internal/sync"
	"github.com/matheus3301/charly/internal/voice"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional; nil = load config.toml and CHARLY_* variables
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideBackend,
			provideLibrary,
			provideSequencer,
			provideOverrideWatcher,
			providePreferences,
			provideVoice,
			provideHistory,
			provideAccount,
			provideAssistant,
			provideReconciler,
			provideSyncEngine,
			provideSessionService,
			provideChatService,
			provideHistoryService,
			provideAnimationService,
			provideVoiceService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadWithEnv(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is never opened by a second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.AppDBPath(p.ProfileName)
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

func provideBackend(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.New(backend.Config{
		BaseURL:       cfg.APIURL,
		DeviceName:    cfg.DeviceName,
		Timeout:       cfg.RequestTimeout.Duration,
		RatePerSecond: cfg.RatePerSecond,
	}, logger.Named("backend"))
}

func provideLibrary(p Params) *animation.Library {
	return animation.NewLibrary(profile.AnimationsDir(p.ProfileName))
}

func provideSequencer(cfg *config.Config, lib *animation.Library, b *bus.Bus, logger *zap.Logger) *animation.Sequencer {
	return animation.NewSequencer(animation.NewAssetPlayer(lib), b, logger.Named("animation"), animation.Options{
		Clock:       clock.Real(),
		IdleTimeout: cfg.IdleTimeout.Duration,
	})
}

func provideOverrideWatcher(p Params, seq *animation.Sequencer, logger *zap.Logger) *animation.OverrideWatcher {
	return animation.NewOverrideWatcher(profile.SequencesPath(p.ProfileName), seq, logger.Named("sequences"))
}

func providePreferences(db *store.DB, cfg *config.Config) *account.Preferences {
	return account.NewPreferences(db, cfg.MemoryEnabled, cfg.TTS.AutoRead, cfg.Voice.Mode)
}

func provideVoice(cfg *config.Config, prefs *account.Preferences, b *bus.Bus, logger *zap.Logger) (*voice.Coordinator, error) {
	logger = logger.Named("voice")
	rec, synth, err := newVoiceBackends(cfg, logger)
	if err != nil {
		return nil, err
	}
	mode, err := voice.ParseMode(prefs.VoiceMode())
	if err != nil {
		logger.Warn("stored voice mode ignored", zap.Error(err))
		mode = voice.ModeClick
	}
	return voice.NewCoordinator(rec, synth, b, logger, voice.Options{
		Mode:  mode,
		Clock: clock.Real(),
		Speak: voice.SpeakOptions{
			Voice:  cfg.TTS.Voice,
			Rate:   cfg.TTS.Rate,
			Volume: cfg.TTS.Volume,
			Pitch:  cfg.TTS.Pitch,
		},
	}), nil
}

func provideHistory(cfg *config.Config, db *store.DB, client *backend.Client, b *bus.Bus, logger *zap.Logger) *history.Manager {
	return history.NewManager(history.NewSQLStorage(db), history.NewBackendRemote(client), b, logger.Named("history"), history.Options{
		MaxMessages: cfg.MaxHistory,
	})
}

func provideAccount(db *store.DB, client *backend.Client, machine *status.Machine, seq *animation.Sequencer, logger *zap.Logger) *account.Service {
	return account.New(db, client, machine, seq, logger.Named("account"))
}

func provideAssistant(
	cfg *config.Config,
	h *history.Manager,
	client *backend.Client,
	acct *account.Service,
	prefs *account.Preferences,
	seq *animation.Sequencer,
	v *voice.Coordinator,
	b *bus.Bus,
	logger *zap.Logger,
) *assistant.Assistant {
	return assistant.New(h, client, acct, prefs, seq, v, b, logger.Named("assistant"), assistant.Options{
		WebSearch: cfg.WebSearch,
	})
}

func provideReconciler(db *store.DB, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(db, logger)
}

func provideSyncEngine(h *history.Manager, recon *intsync.Reconciler, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(h, recon, b, logger.Named("sync"))
}

func provideSessionService(
	p Params,
	cfg *config.Config,
	m *status.Machine,
	acct *account.Service,
	h *history.Manager,
	recon *intsync.Reconciler,
	seq *animation.Sequencer,
	v *voice.Coordinator,
	b *bus.Bus,
	logger *zap.Logger,
) *api.SessionService {
	return api.NewSessionService(p.ProfileName, cfg, m, acct, h, recon, seq, v, b, logger)
}

func provideChatService(p Params, a *assistant.Assistant, h *history.Manager, prefs *account.Preferences, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(a, h, prefs, b, p.ProfileName, logger)
}

func provideHistoryService(h *history.Manager, engine *intsync.Engine) *api.HistoryService {
	return api.NewHistoryService(h, engine)
}

func provideAnimationService(p Params, seq *animation.Sequencer, lib *animation.Library, b *bus.Bus, logger *zap.Logger) *api.AnimationService {
	return api.NewAnimationService(seq, lib, b, p.ProfileName, logger)
}

func provideVoiceService(cfg *config.Config, v *voice.Coordinator, prefs *account.Preferences) *api.VoiceService {
	return api.NewVoiceService(v, prefs, cfg.Voice.Backend)
}

type lifecycleDeps struct {
	fx.In

	Server    *Server
	Lock      *lock.Lock
	DB        *store.DB
	Machine   *status.Machine
	Account   *account.Service
	History   *history.Manager
	Assistant *assistant.Assistant
	Sequencer *animation.Sequencer
	Watcher   *animation.OverrideWatcher
	Voice     *voice.Coordinator
	Engine    *intsync.Engine
	Logger    *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	logger := d.Logger
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Subscribe before the first transition so a restored session syncs.
			d.Engine.Start(ctx)

			d.Sequencer.Start()
			if err := d.Watcher.Start(ctx); err != nil {
				logger.Warn("sequence overrides not watched", zap.Error(err))
			}

			d.Voice.SetHooks(voice.Hooks{
				OnListen: d.Sequencer.Think,
				OnSubmit: func(text string) {
					go func() {
						if _, err := d.Assistant.Send(ctx, text); err != nil {
							logger.Error("voice submission failed", zap.Error(err))
						}
					}()
				},
				OnSpeakStart: func() { d.Sequencer.Play(animation.Chatting) },
				OnSpeakEnd:   d.Sequencer.ToIdle,
			})
			d.Voice.Start()

			go func() {
				if err := d.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			go func() {
				if err := d.Account.Restore(ctx); err != nil {
					logger.Error("restore session failed", zap.Error(err))
					_ = d.Machine.Transition(status.Error)
				}
				// READY loads through the sync engine.
				if d.Machine.Current() != status.Ready {
					if _, err := d.History.Load(ctx); err != nil {
						logger.Error("load history failed", zap.Error(err))
					}
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			d.Voice.Stop()
			d.Watcher.Stop()
			d.Sequencer.Stop()
			d.Engine.Stop()
			d.Server.Stop(stopCtx)
			if err := d.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
