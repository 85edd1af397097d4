package gpu

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComputeShader(t *testing.T) {
	src := `
// @compute fn commented_out() {}
/* @group(0) @binding(9) var<uniform> ghost: f32; */
@group(0) @binding(2) var<storage, read_write> out: array<u32>;
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<f32>;

@compute @workgroup_size(8, 4)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {}
`
	cs, err := ParseComputeShader("test", src)
	require.NoError(t, err)

	assert.Equal(t, "main", cs.EntryPoint)
	assert.Equal(t, [3]uint32{8, 4, 1}, cs.WorkgroupSize)
	require.Len(t, cs.Bindings, 3)
	assert.Equal(t, Binding{Group: 0, Binding: 0, Name: "params", Type: wgpu.BufferBindingTypeUniform}, cs.Bindings[0])
	assert.Equal(t, Binding{Group: 0, Binding: 1, Name: "src", Type: wgpu.BufferBindingTypeReadOnlyStorage}, cs.Bindings[1])
	assert.Equal(t, Binding{Group: 0, Binding: 2, Name: "out", Type: wgpu.BufferBindingTypeStorage}, cs.Bindings[2])

	layout := cs.LayoutDescriptor()
	require.Len(t, layout.Entries, 3)
	for i, e := range layout.Entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}
}

func TestParseComputeShaderRequiresEntryPoint(t *testing.T) {
	_, err := ParseComputeShader("frag", "@fragment fn main() {}")
	assert.Error(t, err)
}

func TestEmbeddedShadersParse(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		bindings []string
	}{
		{name: shaderClearGrid, entry: "clear_grid", bindings: []string{"params", "accum", "velocity"}},
		{name: shaderP2G, entry: "p2g", bindings: []string{"params", "particles", "accum"}},
		{name: shaderUpdateGrid, entry: "update_grid", bindings: []string{"params", "accum", "velocity"}},
		{name: shaderG2P, entry: "g2p", bindings: []string{"params", "particles", "velocity"}},
		{name: shaderCopyPosition, entry: "copy_position", bindings: []string{"params", "particles", "posvel"}},
		{name: shaderCull, entry: "cull_particles", bindings: []string{"cull", "particles", "mask"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := LoadComputeShader(tt.name)
			require.NoError(t, err)

			assert.Equal(t, tt.entry, cs.EntryPoint)
			assert.Equal(t, [3]uint32{workgroupSize, 1, 1}, cs.WorkgroupSize)
			assert.NotContains(t, cs.Source, "@oxy:include")
			assert.True(t, strings.Contains(cs.Source, "struct Particle"))

			names := make([]string, len(cs.Bindings))
			for i, b := range cs.Bindings {
				names[i] = b.Name
				assert.Equal(t, i, b.Binding)
			}
			assert.Equal(t, tt.bindings, names)
		})
	}
}

func TestExpandIncludesReportsMissingFile(t *testing.T) {
	_, err := expandIncludes("@oxy:include does_not_exist\n", map[string]bool{})
	assert.Error(t, err)
}

func TestExpandIncludesRejectsCycle(t *testing.T) {
	_, err := expandIncludes("@oxy:include sim_types\n", map[string]bool{"sim_types": true})
	assert.Error(t, err)
}

func TestWorkgroupsSplitsLargeDispatches(t *testing.T) {
	assert.Equal(t, [3]uint32{0, 0, 0}, workgroups(0))
	assert.Equal(t, [3]uint32{1, 1, 1}, workgroups(1))
	assert.Equal(t, [3]uint32{2, 1, 1}, workgroups(65))

	g := workgroups(maxWorkgroupsPerDim*workgroupSize + 1)
	assert.Equal(t, uint32(maxWorkgroupsPerDim), g[0])
	assert.Equal(t, uint32(2), g[1])
}
