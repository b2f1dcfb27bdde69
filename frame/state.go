// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"gviegas/neo3/driver"
)

// ResourceState is the mode in which the GPU is currently
// allowed to access a resource.
// It is the scheduler's own abstraction over driver.Layout:
// tasks and UsageRecords are expressed in terms of
// ResourceState, never driver.Layout directly, so that the
// barrier-injection logic stays independent of however the
// driver package happens to name its image layouts.
type ResourceState int

// Resource states.
// Two states are compatible iff equal - read-only states
// (e.g. StateShaderResource and StateDepthRead) do not
// combine automatically in this model.
const (
	StateCommon ResourceState = iota
	StateCopySrc
	StateCopyDst
	StateRenderTarget
	StateDepthRead
	StateDepthWrite
	StateShaderResource
	StateUnorderedAccess
	StatePresent

	nstate
)

// String returns a human-readable name for s, mainly for
// use in error messages and test failure output.
func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "common"
	case StateCopySrc:
		return "copy-source"
	case StateCopyDst:
		return "copy-dest"
	case StateRenderTarget:
		return "render-target"
	case StateDepthRead:
		return "depth-read"
	case StateDepthWrite:
		return "depth-write"
	case StateShaderResource:
		return "shader-resource"
	case StateUnorderedAccess:
		return "unordered-access"
	case StatePresent:
		return "present"
	default:
		return "invalid-state"
	}
}

// layout maps a ResourceState onto the driver.Layout value
// that CmdBuffer.Transition expects.
func (s ResourceState) layout() driver.Layout {
	switch s {
	case StateCommon:
		return driver.LCommon
	case StateCopySrc:
		return driver.LCopySrc
	case StateCopyDst:
		return driver.LCopyDst
	case StateRenderTarget:
		return driver.LColorTarget
	case StateDepthRead:
		return driver.LDSRead
	case StateDepthWrite:
		return driver.LDSTarget
	case StateShaderResource:
		return driver.LShaderRead
	case StateUnorderedAccess:
		return driver.LUnorderedAccess
	case StatePresent:
		return driver.LPresent
	default:
		return driver.LUndefined
	}
}

// syncAccess returns the driver.Sync/driver.Access scopes
// that apply when a resource is used in state s.
// These are conservative (whole-scope) values - the driver
// backend is free to narrow them, but the scheduler does
// not attempt to track which pipeline stage actually reads
// or writes a resource, only which state it must be in.
func (s ResourceState) syncAccess() (driver.Sync, driver.Access) {
	switch s {
	case StateCommon:
		return driver.SNone, driver.ANone
	case StateCopySrc:
		return driver.SCopy, driver.ACopyRead
	case StateCopyDst:
		return driver.SCopy, driver.ACopyWrite
	case StateRenderTarget:
		return driver.SColorOutput, driver.AColorRead | driver.AColorWrite
	case StateDepthRead:
		return driver.SDSOutput, driver.ADSRead
	case StateDepthWrite:
		return driver.SDSOutput, driver.ADSRead | driver.ADSWrite
	case StateShaderResource:
		return driver.SFragmentShading | driver.SVertexShading | driver.SComputeShading, driver.AShaderRead
	case StateUnorderedAccess:
		return driver.SComputeShading, driver.AShaderRead | driver.AShaderWrite
	case StatePresent:
		return driver.SNone, driver.ANone
	default:
		return driver.SNone, driver.ANone
	}
}
