//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "engine/renderer/compute/spirv/shaders"

var kernelSources = []string{
	"calc_vertex_attrs_u16.comp",
	"calc_vertex_attrs_u16_skin.comp",
	"calc_vertex_attrs_u32.comp",
	"calc_vertex_attrs_u32_skin.comp",
	"decode_rgb_rgba.comp",
}

// Compiles every compute kernel to SPIR-V. Requires glslc on PATH.
func (Build) Shaders() error {
	for _, src := range kernelSources {
		in := filepath.Join(shaderDir, src)
		out := in + ".spv"
		if _, err := executeCmd("glslc", withArgs("-fshader-stage=compute", in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}
