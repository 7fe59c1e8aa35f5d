// Package scene turns parsed ZPL instructions into a renderable label scene
// and encodes it for preview as JSON, SVG, or PNG.
//
// Render is a pure function: one primitive per instruction, in order. The
// encoders are where failures can happen, so Preview wraps the whole
// parse/render/encode path and falls back to the raw, line-broken command
// text whenever anything goes wrong. A broken preview never hides the payload.
package scene
