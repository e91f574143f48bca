package shaders

import (
	_ "embed"
)

//go:embed simulate.wgsl
var SimulateWGSL string

//go:embed billboard.wgsl
var BillboardWGSL string

//go:embed text.wgsl
var TextWGSL string
