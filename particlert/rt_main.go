package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gekko3d/particles/particlert/rt/app"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/metrics"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "JSON config file; unset fields keep their defaults")
	count := flag.Int("count", 0, "Particle count, including the two anchors")
	compute := flag.String("compute", string(app.BackendGPU), "Simulation backend: gpu or cpu")
	seed := flag.Int64("seed", 0, "Random seed for the initial particles (0 picks one from the clock)")
	debug := flag.Bool("debug", false, "Show the HUD and debug logs")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 720, "Window height")
	flag.Parse()

	runID := uuid.NewString()
	logger := app.NewDefaultLogger(runID[:8], *debug)

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			logger.Errorf("%v", err)
			os.Exit(2)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "count":
			cfg.ParticleCount = *count
		case "seed":
			cfg.Seed = *seed
		}
	})
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	backend, err := app.ParseBackend(*compute)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, runID)

	application, err := app.NewApp(nil, cfg, app.Options{
		Backend: backend,
		Debug:   *debug,
		Logger:  logger,
		Metrics: m,
		RunID:   runID,
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}
	logger.Infof("run %s: seed=%d particles=%d backend=%s", runID, cfg.Seed, cfg.ParticleCount, backend)

	if err := glfw.Init(); err != nil {
		logger.Errorf("glfw init failed: %v", err)
		os.Exit(1)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "Particles", nil, nil)
	if err != nil {
		logger.Errorf("failed to create window: %v", err)
		os.Exit(1)
	}
	defer window.Destroy()

	application.Window = window
	if err := application.Init(); err != nil {
		application.Release()
		logger.Errorf("startup failed: %v", err)
		window.Destroy()
		glfw.Terminate()
		os.Exit(1)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	app.NewInputRouter(application.Camera).Attach(window)

	if *metricsAddr != "" {
		srv := metrics.NewServer(*metricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warnf("metrics server stopped: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Infof("metrics on %s/metrics", *metricsAddr)
	}

	ctx := context.Background()
	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := application.Frame(ctx); err != nil && !errors.Is(err, app.ErrSurfaceUnavailable) {
			logger.Warnf("frame failed: %v", err)
		}
	}
}
