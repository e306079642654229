// Package gputest provides a recording HAL device built on the noop backend.
//
// The recorder counts every create/destroy pair by resource kind, captures
// render pass commands and queue writes, and can inject a failure into the
// next creation of a given kind. It is meant for tests that need to verify
// GPU resource lifecycles without hardware.
package gputest

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Resource kinds counted by Device.
const (
	KindBuffer          = "buffer"
	KindTexture         = "texture"
	KindTextureView     = "texture_view"
	KindShaderModule    = "shader_module"
	KindBindGroupLayout = "bind_group_layout"
	KindBindGroup       = "bind_group"
	KindPipelineLayout  = "pipeline_layout"
	KindRenderPipeline  = "render_pipeline"
	KindCommandEncoder  = "command_encoder"
	KindCommandBuffer   = "command_buffer"
)

// Encoding steps that FailNext can also arm.
const (
	StepBeginEncoding = "begin_encoding"
	StepEndEncoding   = "end_encoding"
)

// ErrInjected is returned by a creation call armed with FailNext.
var ErrInjected = errors.New("gputest: injected failure")

// DrawCall is one recorded Draw.
type DrawCall struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// Viewport is one recorded SetViewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Pass records the commands of one render pass.
type Pass struct {
	hal.RenderPassEncoder

	Desc          hal.RenderPassDescriptor
	Draws         []DrawCall
	Viewports     []Viewport
	Pipelines     []hal.RenderPipeline
	BindGroups    int
	VertexBuffers map[uint32]hal.Buffer
	Ended         bool
}

func (p *Pass) SetPipeline(pipeline hal.RenderPipeline) {
	p.Pipelines = append(p.Pipelines, pipeline)
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *Pass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.BindGroups++
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *Pass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.VertexBuffers[slot] = buffer
	p.RenderPassEncoder.SetVertexBuffer(slot, buffer, offset)
}

func (p *Pass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.Viewports = append(p.Viewports, Viewport{x, y, width, height, minDepth, maxDepth})
	p.RenderPassEncoder.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Draws = append(p.Draws, DrawCall{vertexCount, instanceCount, firstVertex, firstInstance})
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *Pass) End() {
	p.Ended = true
	p.RenderPassEncoder.End()
}

type encoder struct {
	hal.CommandEncoder
	dev *Device
}

func (e *encoder) BeginEncoding(label string) error {
	if e.dev.armed(StepBeginEncoding) {
		return ErrInjected
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *encoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.dev.armed(StepEndEncoding) {
		return nil, ErrInjected
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *encoder) DiscardEncoding() {
	e.dev.mu.Lock()
	e.dev.discards++
	e.dev.mu.Unlock()
	e.CommandEncoder.DiscardEncoding()
}

func (e *encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &Pass{
		RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc),
		Desc:              *desc,
		VertexBuffers:     make(map[uint32]hal.Buffer),
	}
	e.dev.mu.Lock()
	e.dev.passes = append(e.dev.passes, p)
	e.dev.mu.Unlock()
	return p
}

// Device wraps a noop hal.Device and records resource lifecycles.
type Device struct {
	hal.Device

	mu        sync.Mutex
	created   map[string]int
	destroyed map[string]int
	failNext  map[string]bool
	passes    []*Pass
	pipelines []hal.RenderPipelineDescriptor
	textures  []hal.TextureDescriptor
	buffers   []hal.BufferDescriptor
	discards  int
}

// NewDevice wraps device.
func NewDevice(device hal.Device) *Device {
	return &Device{
		Device:    device,
		created:   make(map[string]int),
		destroyed: make(map[string]int),
		failNext:  make(map[string]bool),
	}
}

// Created returns how many resources of kind were created.
func (d *Device) Created(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many resources of kind were destroyed.
func (d *Device) Destroyed(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Live returns created minus destroyed for kind.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind] - d.destroyed[kind]
}

// LiveTotal returns the number of live resources across every kind except
// command encoders, which the HAL does not require callers to destroy.
func (d *Device) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for kind, c := range d.created {
		if kind == KindCommandEncoder {
			continue
		}
		n += c - d.destroyed[kind]
	}
	return n
}

// FailNext makes the next creation of kind, or the next encoding step, return
// ErrInjected.
func (d *Device) FailNext(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[kind] = true
}

// Passes returns the render passes recorded so far.
func (d *Device) Passes() []*Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Pass(nil), d.passes...)
}

// Draws returns every draw call across every recorded pass.
func (d *Device) Draws() []DrawCall {
	var draws []DrawCall
	for _, p := range d.Passes() {
		draws = append(draws, p.Draws...)
	}
	return draws
}

// Pipelines returns the descriptors of every render pipeline created.
func (d *Device) Pipelines() []hal.RenderPipelineDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]hal.RenderPipelineDescriptor(nil), d.pipelines...)
}

// Textures returns the descriptors of every texture created.
func (d *Device) Textures() []hal.TextureDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]hal.TextureDescriptor(nil), d.textures...)
}

// Buffers returns the descriptors of every buffer created, in order.
func (d *Device) Buffers() []hal.BufferDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]hal.BufferDescriptor(nil), d.buffers...)
}

// Discards returns how many command encoders were discarded.
func (d *Device) Discards() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.discards
}

// armed consumes an armed failure for step.
func (d *Device) armed(step string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.failNext[step] {
		return false
	}
	delete(d.failNext, step)
	return true
}

// create counts a creation of kind, or reports an armed failure.
func (d *Device) create(kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext[kind] {
		delete(d.failNext, kind)
		return ErrInjected
	}
	d.created[kind]++
	return nil
}

func (d *Device) destroy(kind string) {
	d.mu.Lock()
	d.destroyed[kind]++
	d.mu.Unlock()
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.create(KindBuffer); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.buffers = append(d.buffers, *desc)
	d.mu.Unlock()
	return d.Device.CreateBuffer(desc)
}

func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	d.destroy(KindBuffer)
	d.Device.DestroyBuffer(buffer)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if err := d.create(KindTexture); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.textures = append(d.textures, *desc)
	d.mu.Unlock()
	return d.Device.CreateTexture(desc)
}

func (d *Device) DestroyTexture(texture hal.Texture) {
	d.destroy(KindTexture)
	d.Device.DestroyTexture(texture)
}

func (d *Device) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if err := d.create(KindTextureView); err != nil {
		return nil, err
	}
	return d.Device.CreateTextureView(texture, desc)
}

func (d *Device) DestroyTextureView(view hal.TextureView) {
	d.destroy(KindTextureView)
	d.Device.DestroyTextureView(view)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.create(KindShaderModule); err != nil {
		return nil, err
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	d.destroy(KindShaderModule)
	d.Device.DestroyShaderModule(module)
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.create(KindBindGroupLayout); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *Device) DestroyBindGroupLayout(layout hal.BindGroupLayout) {
	d.destroy(KindBindGroupLayout)
	d.Device.DestroyBindGroupLayout(layout)
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.create(KindBindGroup); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroup(desc)
}

func (d *Device) DestroyBindGroup(group hal.BindGroup) {
	d.destroy(KindBindGroup)
	d.Device.DestroyBindGroup(group)
}

func (d *Device) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if err := d.create(KindPipelineLayout); err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *Device) DestroyPipelineLayout(layout hal.PipelineLayout) {
	d.destroy(KindPipelineLayout)
	d.Device.DestroyPipelineLayout(layout)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.create(KindRenderPipeline); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.pipelines = append(d.pipelines, *desc)
	d.mu.Unlock()
	return d.Device.CreateRenderPipeline(desc)
}

func (d *Device) DestroyRenderPipeline(pipeline hal.RenderPipeline) {
	d.destroy(KindRenderPipeline)
	d.Device.DestroyRenderPipeline(pipeline)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if err := d.create(KindCommandEncoder); err != nil {
		return nil, err
	}
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &encoder{CommandEncoder: enc, dev: d}, nil
}

func (d *Device) FreeCommandBuffer(cmdBuffer hal.CommandBuffer) {
	d.destroy(KindCommandBuffer)
	d.Device.FreeCommandBuffer(cmdBuffer)
}

// Write is one recorded Queue.WriteBuffer.
type Write struct {
	Buffer hal.Buffer
	Offset uint64
	Data   []byte
}

// Queue wraps a noop hal.Queue and records writes, submissions and
// presents.
type Queue struct {
	hal.Queue

	dev      *Device
	mu       sync.Mutex
	writes   []Write
	submits  int
	presents int
}

// NewQueue wraps queue. Submitted command buffers are counted as created on
// dev so that Live(KindCommandBuffer) tracks unfreed buffers.
func NewQueue(queue hal.Queue, dev *Device) *Queue {
	return &Queue{Queue: queue, dev: dev}
}

func (q *Queue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.mu.Lock()
	q.writes = append(q.writes, Write{Buffer: buffer, Offset: offset, Data: append([]byte(nil), data...)})
	q.mu.Unlock()
	return q.Queue.WriteBuffer(buffer, offset, data)
}

func (q *Queue) Submit(commandBuffers []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	q.submits++
	q.mu.Unlock()
	if q.dev != nil {
		q.dev.mu.Lock()
		q.dev.created[KindCommandBuffer] += len(commandBuffers)
		q.dev.mu.Unlock()
	}
	return q.Queue.Submit(commandBuffers)
}

func (q *Queue) Present(surface hal.Surface, texture hal.SurfaceTexture, damageRects []image.Rectangle) error {
	q.mu.Lock()
	q.presents++
	q.mu.Unlock()
	return q.Queue.Present(surface, texture, damageRects)
}

// Writes returns the recorded buffer writes.
func (q *Queue) Writes() []Write {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Write(nil), q.writes...)
}

// WritesTo returns the recorded writes that targeted buffer.
func (q *Queue) WritesTo(buffer hal.Buffer) []Write {
	var out []Write
	for _, w := range q.Writes() {
		if w.Buffer == buffer {
			out = append(out, w)
		}
	}
	return out
}

// Submits returns the number of Submit calls.
func (q *Queue) Submits() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submits
}

// Presents returns the number of Present calls.
func (q *Queue) Presents() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.presents
}

// Surface wraps a hal.Surface and counts configuration changes.
type Surface struct {
	hal.Surface

	mu           sync.Mutex
	configs      []hal.SurfaceConfiguration
	unconfigures int
	acquires     int
	acquireErr   error
}

// NewSurface wraps surface.
func NewSurface(surface hal.Surface) *Surface {
	return &Surface{Surface: surface}
}

func (s *Surface) Configure(device hal.Device, config *hal.SurfaceConfiguration) error {
	s.mu.Lock()
	s.configs = append(s.configs, *config)
	s.acquireErr = nil
	s.mu.Unlock()
	return s.Surface.Configure(device, config)
}

func (s *Surface) Unconfigure(device hal.Device) {
	s.mu.Lock()
	s.unconfigures++
	s.mu.Unlock()
	s.Surface.Unconfigure(device)
}

func (s *Surface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.mu.Lock()
	s.acquires++
	err := s.acquireErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Surface.AcquireTexture(fence)
}

// FailAcquire makes every AcquireTexture return err until the surface is
// configured again, the way a real swapchain reports hal.ErrSurfaceOutdated.
func (s *Surface) FailAcquire(err error) {
	s.mu.Lock()
	s.acquireErr = err
	s.mu.Unlock()
}

// Configs returns every configuration applied, in order.
func (s *Surface) Configs() []hal.SurfaceConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hal.SurfaceConfiguration(nil), s.configs...)
}

// Unconfigures returns the number of Unconfigure calls.
func (s *Surface) Unconfigures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unconfigures
}

// Acquires returns the number of AcquireTexture calls.
func (s *Surface) Acquires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

// Env bundles a recording device, queue and surface over one noop device.
type Env struct {
	Device  *Device
	Queue   *Queue
	Surface *Surface
}

// NewNoop opens a noop device, wraps it for recording and registers cleanup
// with t.
func NewNoop(t testing.TB) *Env {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no noop adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		t.Fatalf("CreateSurface failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})

	dev := NewDevice(openDev.Device)
	return &Env{
		Device:  dev,
		Queue:   NewQueue(openDev.Queue, dev),
		Surface: NewSurface(surface),
	}
}
