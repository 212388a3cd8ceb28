// Package shaders holds the embedded WGSL stage templates the effect
// compiler bakes modifier fragments into. The {{PLACEHOLDER}} slots are
// replaced with generated code; a template is not valid WGSL until baked.
package shaders

import (
	_ "embed"
)

//go:embed particles_init.wgsl
var ParticlesInitWGSL string

//go:embed particles_update.wgsl
var ParticlesUpdateWGSL string

//go:embed particles_render.wgsl
var ParticlesRenderWGSL string
