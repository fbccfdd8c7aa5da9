package engine

import (
	"context"
	"time"

	"github.com/spaghettifunk/swapper/engine/assets"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
	"github.com/spaghettifunk/swapper/engine/platform"
	"github.com/spaghettifunk/swapper/engine/renderer"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
	"github.com/spaghettifunk/swapper/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const (
	statsInterval  = 5 * time.Second
	minimizedSleep = 100 * time.Millisecond
)

type Engine struct {
	currentStage Stage
	config       *core.Config
	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      *vulkan.VulkanBackend
	pacer        *renderer.FramePacer
	clock        *core.Clock
	metrics      *core.Metrics

	// platform, assets, backend, pacer
	teardown *containers.TeardownStack
}

func New(config *core.Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager(config.Renderer.ShaderDir)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		platform:     p,
		assetManager: am,
		backend:      vulkan.New(p, am),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		teardown:     containers.NewTeardownStack(),
	}, nil
}

// Initialize opens the window, brings up the backend and builds the first
// chain. Whatever was created is released again on failure.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.config.Application

	if err := e.platform.Startup(app.Name, app.PosX, app.PosY, app.Width, app.Height); err != nil {
		return err
	}
	e.teardown.Push("platform", func() { _ = e.platform.Shutdown() })

	e.teardown.Push("asset manager", func() { _ = e.assetManager.Close() })
	if e.config.Watch.Shaders {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err)
		}
	}

	backendConfig := &metadata.RendererBackendConfig{
		ApplicationName:       app.Name,
		FramesInFlight:        e.config.Renderer.FramesInFlight,
		PreferredPresentModes: e.config.Renderer.PreferredPresentModes,
		Validation:            e.config.Renderer.Validation,
		ShaderDir:             e.config.Renderer.ShaderDir,
		ClearColor:            e.config.Renderer.ClearColor,
	}
	if err := e.backend.Initialize(backendConfig); err != nil {
		e.teardown.Unwind()
		return err
	}
	e.teardown.Push("renderer backend", e.backend.Shutdown)

	pacer, err := renderer.NewFramePacer(e.backend, backendConfig.FramesInFlight)
	if err != nil {
		e.teardown.Unwind()
		return err
	}
	e.pacer = pacer
	e.teardown.Push("frame pacer", func() {
		if err := e.pacer.Shutdown(); err != nil {
			core.LogError("frame pacer shutdown: %s", err)
		}
	})

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Run drives the frame loop until the window closes or ctx is done. Only
// fatal errors are returned.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	lastReport := time.Duration(0)

	for !e.platform.ShouldClose() {
		if ctx.Err() != nil {
			core.LogInfo("Shutdown requested.")
			return nil
		}
		e.platform.PumpMessages()

		in := renderer.FrameInput{
			Resized:    e.platform.ConsumeResize(),
			Invalidate: e.drainReloads(),
		}

		frameStart := time.Now()
		if err := e.pacer.DrawFrame(in); err != nil {
			core.LogError("frame failed (%s): %s", core.Classify(err), err)
			return err
		}
		if e.pacer.Mode() == renderer.ModeRebuilding {
			// minimized, nothing was drawn
			e.platform.WaitEvents(minimizedSleep)
			continue
		}
		e.metrics.Update(time.Since(frameStart))

		e.clock.Update()
		if now := e.clock.Elapsed(); now-lastReport >= statsInterval {
			lastReport = now
			fps, ms := e.metrics.Frame()
			st := e.pacer.Stats()
			core.LogInfo("%.0f fps, %.3f ms/frame, %d frames presented, %d rebuilds, %d hazard waits",
				fps, ms, st.FramesPresented, st.Rebuilds, st.HazardWaits)
		}
	}
	return nil
}

// drainReloads empties the shader reload channel and reports whether any
// stage changed.
func (e *Engine) drainReloads() bool {
	changed := false
	for {
		select {
		case stage := <-e.assetManager.Reloads():
			core.LogInfo("Shader %s changed, rebuilding.", stage)
			changed = true
		default:
			return changed
		}
	}
}

// Shutdown releases everything in reverse creation order.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()
	e.teardown.Unwind()
	core.LogInfo("Engine shut down.")
	return nil
}

func (e *Engine) Stats() renderer.Stats {
	if e.pacer == nil {
		return renderer.Stats{}
	}
	return e.pacer.Stats()
}
