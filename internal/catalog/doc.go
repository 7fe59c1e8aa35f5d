// Package catalog loads the production catalog: production numbers, their
// serialized units and each unit's label markup.
//
// The file is JSON (the data.json layout) or YAML, chosen by extension.
// Production numbers match case-insensitively using Unicode case folding.
package catalog
