package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/gpu"
	"github.com/gekko3d/particles/particlert/rt/metrics"
	"github.com/gekko3d/particles/particlert/rt/sim"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/google/uuid"
)

var (
	// ErrNoAdapter means no GPU adapter or device could be obtained. The tick
	// loop must not start.
	ErrNoAdapter = errors.New("no compatible GPU adapter")
	// ErrSurfaceUnavailable means this tick's draw was skipped. Simulation work
	// was still submitted; the next tick retries acquisition.
	ErrSurfaceUnavailable = errors.New("surface texture unavailable")
)

type Backend string

const (
	BackendGPU Backend = "gpu"
	BackendCPU Backend = "cpu"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendGPU, BackendCPU:
		return b, nil
	}
	return "", fmt.Errorf("unknown compute backend %q (want gpu or cpu)", s)
}

const (
	profileInterval = 5 * time.Second
	hudFontSize     = 16
)

type Options struct {
	Backend Backend
	Debug   bool
	Logger  Logger
	Metrics *metrics.Metrics
	RunID   string
	Workers int
}

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Settings  core.Config
	RunID     string
	Backend   Backend
	DebugMode bool

	Store     *core.ParticleStore
	Camera    *core.CameraState
	Kernel    sim.Kernel
	Stepper   *sim.Stepper
	Particles *gpu.ParticleResources

	TextRenderer *core.TextRenderer
	Text         *gpu.TextPass
	TextItems    []core.TextItem

	Profiler *Profiler
	Metrics  *metrics.Metrics
	Logger   Logger

	stage            stageTracker
	skips            skipReporter
	needsReconfigure bool
	lastProfile      time.Time
	released         bool

	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

// NewApp seeds the particle store and camera. No GPU work happens until Init.
func NewApp(window *glfw.Window, cfg core.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Backend == "" {
		opts.Backend = BackendGPU
	}
	if _, err := ParseBackend(string(opts.Backend)); err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}

	store, err := core.NewParticleStore(cfg, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}

	a := &App{
		Window:    window,
		Settings:  cfg,
		RunID:     opts.RunID,
		Backend:   opts.Backend,
		DebugMode: opts.Debug,
		Store:     store,
		Camera:    core.NewCameraState(cfg),
		Kernel:    sim.KernelFromConfig(cfg),
		Profiler:  NewProfiler(),
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
	}
	if a.Backend == BackendCPU {
		a.Stepper = sim.NewStepper(a.Kernel, opts.Workers)
	}
	return a, nil
}

// Init acquires the device, configures the surface and builds the particle
// resources. A failure here is fatal; the caller reports it and exits.
func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("%w: request device: %v", ErrNoAdapter, err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return fmt.Errorf("%w: surface reports no formats", ErrNoAdapter)
	}
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.configureSurface()

	style := gpu.RenderStyleFromConfig(a.Settings, a.Config.Width, a.Config.Height)
	a.Particles, err = gpu.NewParticleResources(a.Device, a.Config.Format, a.Store, a.Kernel, style)
	if err != nil {
		return err
	}

	if a.DebugMode {
		a.setupHUD()
	}

	a.Logger.Infof("initialized: particles=%d backend=%s surface=%dx%d format=%v",
		a.Store.Len(), a.Backend, a.Config.Width, a.Config.Height, a.Config.Format)
	return nil
}

// setupHUD failures only cost the overlay.
func (a *App) setupHUD() {
	tr, err := core.NewHudTextRenderer(hudFontSize)
	if err != nil {
		a.Logger.Warnf("HUD disabled: %v", err)
		return
	}
	text, err := gpu.NewTextPass(a.Device, a.Config.Format, tr)
	if err != nil {
		a.Logger.Warnf("HUD disabled: %v", err)
		return
	}
	a.TextRenderer = tr
	a.Text = text
}

func (a *App) configureSurface() {
	if a.Config.Width == 0 || a.Config.Height == 0 {
		a.needsReconfigure = true
		return
	}
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	a.needsReconfigure = false
}

// Resize follows the framebuffer. A zero size leaves the surface alone and
// draws are skipped until a usable size arrives.
func (a *App) Resize(w, h int) {
	if w < 0 || h < 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.configureSurface()
	if w > 0 && h > 0 {
		if err := a.Particles.WriteStyle(gpu.RenderStyleFromConfig(a.Settings, a.Config.Width, a.Config.Height)); err != nil {
			a.Logger.Warnf("failed to update render style: %v", err)
		}
	}
}

// Frame runs one tick: upload the camera matrix, record the simulation step,
// draw into the current surface texture, submit and present. When no texture
// is available the simulation work is still submitted and the returned error
// wraps ErrSurfaceUnavailable.
func (a *App) Frame(ctx context.Context) error {
	start := time.Now()
	defer a.stage.finish()

	if a.needsReconfigure {
		a.configureSurface()
	}

	a.Profiler.BeginScope("camera")
	vp := a.Camera.ViewProjection(a.Config.Width, a.Config.Height)
	err := a.Particles.WriteCamera(vp)
	a.Profiler.EndScope("camera")
	if err != nil {
		return fmt.Errorf("failed to upload camera: %w", err)
	}

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	a.stage.enter(StageComputing)
	a.Profiler.BeginScope("compute")
	err = a.simulate(ctx, encoder)
	a.Profiler.EndScope("compute")
	if err != nil {
		return err
	}

	a.Profiler.BeginScope("draw")
	texture, view, acquireErr := a.acquireTarget()
	if acquireErr == nil {
		defer texture.Release()
		defer view.Release()
		a.stage.enter(StageRendering)
		err = a.draw(encoder, view)
	}
	a.Profiler.EndScope("draw")
	if err != nil {
		return err
	}

	a.Profiler.BeginScope("submit")
	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Profiler.EndScope("submit")
		return fmt.Errorf("encoder finish failed: %w", err)
	}
	a.Queue.Submit(cmd)
	cmd.Release()
	if acquireErr == nil {
		a.Surface.Present()
	}
	a.Profiler.EndScope("submit")

	skipped := acquireErr != nil
	a.Metrics.ObserveFrame(time.Since(start), skipped)
	a.trackSkip(acquireErr)
	a.updateFPS()
	a.reportProfile()
	return acquireErr
}

func (a *App) simulate(ctx context.Context, encoder *wgpu.CommandEncoder) error {
	if a.Backend == BackendCPU {
		t := time.Now()
		if err := a.Stepper.Step(ctx, a.Store); err != nil {
			return fmt.Errorf("cpu step failed: %w", err)
		}
		visible := a.Store.VisibleCount()
		a.Metrics.ObserveCPUStep(time.Since(t), visible)
		a.Profiler.SetCount("visible", visible)
		if err := a.Particles.UploadParticles(a.Store); err != nil {
			return fmt.Errorf("failed to upload particles: %w", err)
		}
		return nil
	}
	return a.Particles.EncodeCompute(encoder)
}

func (a *App) acquireTarget() (*wgpu.Texture, *wgpu.TextureView, error) {
	if a.needsReconfigure || a.Config.Width == 0 || a.Config.Height == 0 {
		return nil, nil, fmt.Errorf("%w: zero-sized framebuffer", ErrSurfaceUnavailable)
	}
	texture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		// outdated or lost; rebuild before the next tick
		a.needsReconfigure = true
		return nil, nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, fmt.Errorf("%w: create view: %v", ErrSurfaceUnavailable, err)
	}
	return texture, view, nil
}

func (a *App) draw(encoder *wgpu.CommandEncoder, view *wgpu.TextureView) error {
	if a.Text != nil {
		a.updateHUD()
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	defer pass.Release()

	a.Particles.Draw(pass)
	a.Text.Draw(pass)

	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass end failed: %w", err)
	}
	return nil
}

func (a *App) DrawText(text string, x, y float32, scale float32, color [4]float32) {
	a.TextItems = append(a.TextItems, core.TextItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

func (a *App) updateHUD() {
	a.TextItems = a.TextItems[:0]
	for i, line := range a.hudLines() {
		y := 10 + float32(i)*a.TextRenderer.LineHeight(1)
		a.DrawText(line, 10, y, 1, [4]float32{1, 1, 0, 1})
	}
	vertices := a.TextRenderer.BuildVertices(a.TextItems, int(a.Config.Width), int(a.Config.Height))
	if err := a.Text.Update(a.Queue, vertices); err != nil {
		a.Logger.Warnf("HUD update failed: %v", err)
	}
}

func (a *App) hudLines() []string {
	return []string{
		fmt.Sprintf("FPS: %.1f", a.FPS),
		fmt.Sprintf("Particles: %d (%s)", a.Store.Len(), a.Backend),
		fmt.Sprintf("Zoom: %.2f", a.Camera.Zoom),
		fmt.Sprintf("Rotation: %.2f, %.2f", a.Camera.Rotation.X, a.Camera.Rotation.Y),
	}
}

func (a *App) trackSkip(err error) {
	if err == nil {
		if n := a.skips.recovered(); n > 0 {
			a.Logger.Infof("surface available again after %d skipped draws", n)
		}
		return
	}
	if a.skips.skip() {
		a.Logger.Warnf("draw skipped (%d consecutive): %v", a.skips.consecutive, err)
	}
	a.Profiler.SetCount("skipped", int(a.skips.total))
}

func (a *App) updateFPS() {
	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.LastRenderTime = now
}

func (a *App) reportProfile() {
	if !a.Logger.DebugEnabled() {
		return
	}
	now := time.Now()
	if a.lastProfile.IsZero() {
		a.lastProfile = now
		return
	}
	if now.Sub(a.lastProfile) < profileInterval {
		return
	}
	a.Logger.Debugf("fps=%.1f %s", a.FPS, a.Profiler)
	a.Profiler.Reset()
	a.lastProfile = now
}

// Release tears everything down in dependency order. It is safe to call more
// than once and after a failed Init.
func (a *App) Release() {
	if a == nil || a.released {
		return
	}
	a.released = true

	a.Particles.Release()
	a.Particles = nil
	a.Text.Release()
	a.Text = nil

	if a.Surface != nil {
		a.Surface.Release()
		a.Surface = nil
	}
	if a.Queue != nil {
		a.Queue.Release()
		a.Queue = nil
	}
	if a.Device != nil {
		a.Device.Release()
		a.Device = nil
	}
	if a.Adapter != nil {
		a.Adapter.Release()
		a.Adapter = nil
	}
	if a.Instance != nil {
		a.Instance.Release()
		a.Instance = nil
	}
}
