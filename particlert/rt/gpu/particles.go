package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/shaders"
	"github.com/gekko3d/particles/particlert/rt/sim"
	"github.com/go-gl/mathgl/mgl32"
)

// ParticleResources owns every GPU object of the simulate/draw pipeline.
// All of it is created once; nothing is resized or rebuilt while running.
type ParticleResources struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Count  uint32

	ParticleBuf *wgpu.Buffer // storage (compute) + instance vertex source (draw)
	ParamsBuf   *wgpu.Buffer
	AccelBuf    *wgpu.Buffer
	CameraBuf   *wgpu.Buffer
	StyleBuf    *wgpu.Buffer

	ComputeLayout *wgpu.BindGroupLayout
	RenderLayout  *wgpu.BindGroupLayout

	AccumulatePipeline *wgpu.ComputePipeline
	IntegratePipeline  *wgpu.ComputePipeline
	RenderPipeline     *wgpu.RenderPipeline

	ComputeBindGroup *wgpu.BindGroup
	RenderBindGroup  *wgpu.BindGroup
}

func NewParticleResources(device *wgpu.Device, format wgpu.TextureFormat, store *core.ParticleStore, kernel sim.Kernel, style RenderStyle) (*ParticleResources, error) {
	r := &ParticleResources{
		Device: device,
		Queue:  device.GetQueue(),
		Count:  uint32(store.Len()),
	}

	if err := r.createBuffers(store, kernel, style); err != nil {
		r.Release()
		return nil, err
	}
	if err := r.createComputePipelines(); err != nil {
		r.Release()
		return nil, err
	}
	if err := r.createRenderPipeline(format); err != nil {
		r.Release()
		return nil, err
	}
	if err := r.createBindGroups(); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *ParticleResources) createBuffers(store *core.ParticleStore, kernel sim.Kernel, style RenderStyle) error {
	var err error
	r.ParticleBuf, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ParticleBuf",
		Contents: store.Bytes(),
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create particle buffer: %w", err)
	}

	r.ParamsBuf, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "SimParamsBuf",
		Contents: kernel.Params(store.Len()),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create params buffer: %w", err)
	}

	r.AccelBuf, err = r.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "AccelScratchBuf",
		Size:  AccelBufferSize(store.Len()),
		Usage: wgpu.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create acceleration buffer: %w", err)
	}

	r.CameraBuf, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "CameraBuf",
		Contents: CameraBytes(mgl32.Ident4()),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create camera buffer: %w", err)
	}

	r.StyleBuf, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "StyleBuf",
		Contents: style.Bytes(),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create style buffer: %w", err)
	}
	return nil
}

func (r *ParticleResources) createComputePipelines() error {
	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Simulate CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SimulateWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create simulate shader module: %w", err)
	}
	defer module.Release()

	// Explicit layout: both entry points must accept the same bind group.
	r.ComputeLayout, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SimulateBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeStorage,
					MinBindingSize: uint64(core.ParticleSize),
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: sim.ParamsSize,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeStorage,
					MinBindingSize: accelStride,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create simulate bind group layout: %w", err)
	}

	pipelineLayout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "SimulatePL",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.ComputeLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create simulate pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	r.AccumulatePipeline, err = r.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Accumulate Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "accumulate",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create accumulate pipeline: %w", err)
	}

	r.IntegratePipeline, err = r.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Integrate Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "integrate",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create integrate pipeline: %w", err)
	}
	return nil
}

func (r *ParticleResources) createRenderPipeline(format wgpu.TextureFormat) error {
	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Billboard VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BillboardWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create billboard shader module: %w", err)
	}
	defer module.Release()

	r.RenderLayout, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BillboardBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: CameraUniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: StyleUniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create billboard bind group layout: %w", err)
	}

	pipelineLayout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "BillboardPL",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.RenderLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create billboard pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	r.RenderPipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Billboard Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{ParticleVertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create billboard pipeline: %w", err)
	}
	return nil
}

func (r *ParticleResources) createBindGroups() error {
	var err error
	r.ComputeBindGroup, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SimulateBG",
		Layout: r.ComputeLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.ParticleBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: r.AccelBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create simulate bind group: %w", err)
	}

	r.RenderBindGroup, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BillboardBG",
		Layout: r.RenderLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.CameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.StyleBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create billboard bind group: %w", err)
	}
	return nil
}

// Release frees bind groups, then pipelines and layouts, then buffers.
// It is safe on a partially built value and on repeated calls.
func (r *ParticleResources) Release() {
	if r == nil {
		return
	}
	if r.ComputeBindGroup != nil {
		r.ComputeBindGroup.Release()
		r.ComputeBindGroup = nil
	}
	if r.RenderBindGroup != nil {
		r.RenderBindGroup.Release()
		r.RenderBindGroup = nil
	}
	if r.AccumulatePipeline != nil {
		r.AccumulatePipeline.Release()
		r.AccumulatePipeline = nil
	}
	if r.IntegratePipeline != nil {
		r.IntegratePipeline.Release()
		r.IntegratePipeline = nil
	}
	if r.RenderPipeline != nil {
		r.RenderPipeline.Release()
		r.RenderPipeline = nil
	}
	if r.ComputeLayout != nil {
		r.ComputeLayout.Release()
		r.ComputeLayout = nil
	}
	if r.RenderLayout != nil {
		r.RenderLayout.Release()
		r.RenderLayout = nil
	}
	for _, buf := range []**wgpu.Buffer{&r.ParticleBuf, &r.ParamsBuf, &r.AccelBuf, &r.CameraBuf, &r.StyleBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}
