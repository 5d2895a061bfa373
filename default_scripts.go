package cscbridge

import _ "embed"

// DefaultRideScript is the built-in Lua sensor simulator.
//
//go:embed scripts/ride.lua
var DefaultRideScript string
