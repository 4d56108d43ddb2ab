/*
Headless demo that brings up the compute backend, builds the full
kernel set and recycles descriptor sets once, then tears everything
down in order.
*/
package main

import (
	"errors"
	"os"

	"github.com/spaghettifunk/astra/engine/assets"
	"github.com/spaghettifunk/astra/engine/config"
	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/platform"
	"github.com/spaghettifunk/astra/engine/renderer/compute"
	"github.com/spaghettifunk/astra/engine/renderer/vulkan"
)

func main() {
	cfg, err := config.Load("astra.toml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			core.LogWarn("falling back to default configuration: %s", err)
		}
		cfg = config.Default()
	}
	core.SetLogLevel(cfg.Application.LogLevel)

	p, err := platform.New()
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := p.Startup(cfg.Application.Name); err != nil {
		core.LogFatal(err.Error())
	}
	defer p.Shutdown()

	backend := vulkan.New(p, cfg.Renderer)
	if err := backend.Initialize(cfg.Application.Name); err != nil {
		core.LogFatal(err.Error())
	}
	defer backend.Shutdown()

	builder := &compute.Builder{
		Device:      backend,
		MaxDescSets: cfg.Renderer.MaxDescSets,
	}

	if cfg.Renderer.ShaderOverrideDir != "" {
		overrides, err := assets.NewShaderOverrides()
		if err != nil {
			core.LogFatal(err.Error())
		}
		if err := overrides.Initialize(cfg.Renderer.ShaderOverrideDir); err != nil {
			core.LogFatal(err.Error())
		}
		defer overrides.Close()
		builder.Override = overrides.Override
	}

	kernels, err := builder.All()
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer func() {
		for _, k := range kernels {
			k.Destroy()
		}
	}()

	for _, k := range kernels {
		core.LogInfo("kernel %q ready with %d descriptor sets", k.Label(), k.MaxDescSets())
	}

	// One frame's worth of descriptor recycling.
	for _, k := range kernels {
		if err := k.Reset(); err != nil {
			core.LogFatal(err.Error())
		}
		core.LogDebug("kernel %q recycled, first set %v", k.Label(), k.DescSet(0))
	}
}
