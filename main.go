// AvatarSim - conversational 3D avatar client
package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"avatarsim/internal/api"
	"avatarsim/internal/audio"
	"avatarsim/internal/bridge"
	"avatarsim/internal/bus"
	"avatarsim/internal/chat"
	"avatarsim/internal/config"
	"avatarsim/internal/health"
	"avatarsim/internal/lipsync"
	"avatarsim/internal/logging"
	"avatarsim/internal/model"
	"avatarsim/internal/persona"
	"avatarsim/internal/viseme"
)

//go:embed all:frontend/dist
var assets embed.FS

// Global logger instance
var syslog *logging.Logger

// getAssets returns the frontend assets with the correct path
func getAssets() fs.FS {
	fsys, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		syslog.Error("assets", "Failed to get assets", err, nil)
		panic(err)
	}
	return fsys
}

func main() {
	// Initialize structured logger FIRST
	var err error
	syslog, err = logging.New(nil) // Uses default config
	if err != nil {
		// Fallback to standard log if logger fails
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syslog.Close()

	syslog.Info("main", "AvatarSim starting...", nil)

	// Get zerolog instance for components that need it
	zlogger := syslog.Zerolog()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		syslog.Warn("config", "Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	syslog.Info("config", "Configuration loaded", map[string]interface{}{
		"windowSize": fmt.Sprintf("%dx%d", cfg.Window.Width, cfg.Window.Height),
		"apiServer":  cfg.API.BaseURL,
	})

	// Create event bus
	eventBus := bus.NewEventBus()

	// Create API client
	apiClient := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, zlogger)

	// Load the avatar model; the app can run without one (chat-only), so a
	// load failure is a warning, not fatal.
	var avatarModel *model.Avatar
	avatarModel, err = model.LoadAvatar(cfg.Avatar.ModelPath, cfg.Avatar.HeadMesh, cfg.Avatar.TeethMesh)
	if err != nil {
		syslog.Warn("model", "Avatar model not loaded, lip-sync weights disabled", map[string]interface{}{
			"path":  cfg.Avatar.ModelPath,
			"error": err.Error(),
		})
	}

	// Lip-sync pipeline: active viseme cell, blend controller, scheduler
	activeViseme := lipsync.NewActiveViseme()
	var head, teeth *model.MorphMesh
	if avatarModel != nil {
		head, teeth = avatarModel.Head, avatarModel.Teeth
	}
	blend := lipsync.NewBlendController(head, teeth, activeViseme)
	scheduler := lipsync.NewScheduler(viseme.Default(), activeViseme, blend.ResetAll, zlogger)

	// Watch the model file for re-exports
	var watcher *model.Watcher
	if avatarModel != nil && cfg.Avatar.WatchModel {
		watcher, err = model.NewWatcher(cfg.Avatar.ModelPath, cfg.Avatar.HeadMesh, cfg.Avatar.TeethMesh,
			func(reloaded *model.Avatar) {
				blend.SetMeshes(reloaded.Head, reloaded.Teeth)
				eventBus.Publish(bus.Event{
					Type: bus.EventTypeModelReloaded,
					Data: map[string]any{"headTargets": reloaded.Head.TargetCount()},
				})
			}, zlogger)
		if err != nil {
			syslog.Warn("model", "Model watcher unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Speech: the greeting and each assistant reply with audio become one
	// lip-synced playback. Audio output happens in the webview, reached
	// through the bus and the avatar bridge.
	speak := func(text, audioBase64 string, duration time.Duration) {
		player, err := audio.NewPlayer(audioBase64, duration, func(dataURI string) error {
			eventBus.Publish(bus.Event{
				Type: bus.EventTypeAudioPlay,
				Data: map[string]any{"dataUri": dataURI},
			})
			return nil
		}, zlogger)
		if err != nil {
			syslog.Error("audio", "Response audio payload invalid", err, nil)
			return
		}
		eventBus.Publish(bus.Event{Type: bus.EventTypeSpeechStarted, Data: nil})
		scheduler.Speak(lipsync.Utterance{
			Text:     text,
			Player:   player,
			Duration: duration,
			OnEnded: func() {
				eventBus.Publish(bus.Event{Type: bus.EventTypeSpeechEnded, Data: nil})
			},
		})
	}

	session := chat.NewSession(apiClient, chat.Handlers{
		// Log and pending snapshots must reach the webview in the order
		// they were produced, so these publish synchronously.
		OnMessages: func(msgs []chat.Message) {
			eventBus.PublishSync(bus.Event{
				Type: bus.EventTypeChatMessages,
				Data: map[string]any{"messages": msgs},
			})
		},
		OnUtterance: speak,
		OnError: func(text string) {
			eventBus.Publish(bus.Event{
				Type: bus.EventTypeChatError,
				Data: map[string]any{"error": text},
			})
		},
		OnPending: func(pending bool) {
			eventBus.PublishSync(bus.Event{
				Type: bus.EventTypeChatPending,
				Data: map[string]any{"pending": pending},
			})
		},
		OnPersonaName: func(name string) {
			eventBus.Publish(bus.Event{
				Type: bus.EventTypePersonaName,
				Data: map[string]any{"name": name},
			})
		},
		OnReset: func() {
			scheduler.Cancel()
		},
	}, zlogger)

	// Persona selection drives the session
	selection := persona.NewSelection(zlogger)

	// Health monitor
	monitor := health.NewMonitor(apiClient, cfg.Health.Interval, zlogger)
	monitor.SetOnChange(func(st health.Status) {
		eventBus.Publish(bus.Event{
			Type: bus.EventTypeHealthChanged,
			Data: map[string]any{
				"connected": st.Connected,
				"latencyMs": st.Latency.Milliseconds(),
			},
		})
	})

	// Create bridges
	chatBridge := bridge.NewChatBridge(session, eventBus)
	avatarBridge := bridge.NewAvatarBridge(blend, scheduler, eventBus, cfg.Avatar.FrameRate, zlogger)
	personaBridge := bridge.NewPersonaBridge(apiClient, selection, eventBus, zlogger)
	connectionBridge := bridge.NewConnectionBridge(monitor, eventBus, cfg.API.BaseURL)
	logBridge := bridge.NewLogBridge(syslog)

	// Create application
	app := &App{
		cfg:              cfg,
		syslog:           syslog,
		eventBus:         eventBus,
		session:          session,
		selection:        selection,
		scheduler:        scheduler,
		monitor:          monitor,
		watcher:          watcher,
		chatBridge:       chatBridge,
		avatarBridge:     avatarBridge,
		personaBridge:    personaBridge,
		connectionBridge: connectionBridge,
		logBridge:        logBridge,
	}

	// Persona changes reset the conversation; the very first (default)
	// selection starts it.
	selection.SetOnChange(func(id int) {
		go func() {
			if session.State() == chat.StateIdle {
				session.Initialize(context.Background(), id)
			} else {
				session.SwitchPersona(context.Background(), id)
			}
			eventBus.Publish(bus.Event{
				Type: bus.EventTypePersonaChanged,
				Data: map[string]any{"personaId": id},
			})
		}()
	})

	// Create Wails application options
	appOptions := &options.App{
		Title:     cfg.Window.Title,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		MinWidth:  480,
		MinHeight: 360,
		AssetServer: &assetserver.Options{
			Assets: getAssets(),
		},
		BackgroundColour: &options.RGBA{R: 18, G: 18, B: 24, A: 255},
		AlwaysOnTop:      cfg.Window.AlwaysOnTop,
		Frameless:        cfg.Window.Frameless,
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
			chatBridge,
			avatarBridge,
			personaBridge,
			connectionBridge,
			logBridge,
		},
	}

	syslog.Info("wails", "Starting Wails application...", nil)
	if err := wails.Run(appOptions); err != nil {
		syslog.Error("wails", "Wails.Run failed", err, nil)
		os.Exit(1)
	}

	syslog.Info("main", "Application exited normally", nil)
}

// App struct holds the main application state
type App struct {
	ctx              context.Context
	cfg              *config.Config
	syslog           *logging.Logger
	eventBus         *bus.EventBus
	session          *chat.Session
	selection        *persona.Selection
	scheduler        *lipsync.Scheduler
	monitor          *health.Monitor
	watcher          *model.Watcher
	chatBridge       *bridge.ChatBridge
	avatarBridge     *bridge.AvatarBridge
	personaBridge    *bridge.PersonaBridge
	connectionBridge *bridge.ConnectionBridge
	logBridge        *bridge.LogBridge
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.chatBridge.Bind(ctx)
	a.avatarBridge.Bind(ctx)
	a.personaBridge.Bind(ctx)
	a.connectionBridge.Bind(ctx)
	a.logBridge.Bind(ctx)

	a.monitor.Start()

	// Load personas in the background; the default selection kicks off the
	// first greeting.
	go func() {
		if _, err := a.personaBridge.Refresh(); err != nil {
			a.syslog.Error("persona", "Initial persona load failed", err, nil)
		}
	}()

	a.syslog.Info("lifecycle", "App.startup() complete", nil)
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	a.syslog.Info("lifecycle", "App.shutdown() called", nil)
	a.scheduler.Close()
	a.avatarBridge.Shutdown()
	a.monitor.Stop()
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.syslog.Info("lifecycle", "AvatarSim shutdown complete", nil)
}

// GetVersion returns the application version
func (a *App) GetVersion() string {
	return "1.0.0"
}

// GetConfig returns the current configuration
func (a *App) GetConfig() *config.Config {
	return a.cfg
}
