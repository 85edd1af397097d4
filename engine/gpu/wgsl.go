package gpu

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// Embedded shader names, without the .wgsl suffix.
const (
	shaderClearGrid    = "clear_grid"
	shaderP2G          = "p2g"
	shaderUpdateGrid   = "update_grid"
	shaderG2P          = "g2p"
	shaderCopyPosition = "copy_position"
	shaderCull         = "cull"
)

var (
	// includeRegex matches @oxy:include <name> lines that pull in another embedded shader file.
	includeRegex = regexp.MustCompile(`(?m)^[ \t]*@oxy:include[ \t]+(\w+)[ \t]*$`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, address space, variable name and type from
	// declarations like: @group(0) @binding(1) var<storage, read> particles: array<Particle>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Binding is one buffer resource declared by a compute shader.
type Binding struct {
	Group   int
	Binding int
	Name    string
	Type    wgpu.BufferBindingType
}

// ComputeShader is a preprocessed WGSL compute module with the metadata needed to build
// its pipeline.
type ComputeShader struct {
	Label         string
	Source        string
	EntryPoint    string
	WorkgroupSize [3]uint32
	Bindings      []Binding
}

// LoadComputeShader reads an embedded shader by name, resolves its includes and parses it.
//
// Parameters:
//   - name: file name without the .wgsl extension
//
// Returns:
//   - *ComputeShader: the parsed shader
//   - error: if the file is missing or the source has no compute entry point
func LoadComputeShader(name string) (*ComputeShader, error) {
	source, err := readShader(name)
	if err != nil {
		return nil, err
	}
	expanded, err := expandIncludes(source, map[string]bool{name: true})
	if err != nil {
		return nil, err
	}
	return ParseComputeShader(name, expanded)
}

func readShader(name string) (string, error) {
	data, err := shaderFS.ReadFile(path.Join("shaders", name+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("gpu: shader %q: %w", name, err)
	}
	return string(data), nil
}

// expandIncludes replaces every @oxy:include line with the named shader file, recursively.
func expandIncludes(source string, seen map[string]bool) (string, error) {
	var firstErr error
	out := includeRegex.ReplaceAllStringFunc(source, func(line string) string {
		name := includeRegex.FindStringSubmatch(line)[1]
		if seen[name] {
			if firstErr == nil {
				firstErr = fmt.Errorf("gpu: include cycle through %q", name)
			}
			return ""
		}
		body, err := readShader(name)
		if err == nil {
			seen[name] = true
			body, err = expandIncludes(body, seen)
			delete(seen, name)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ""
		}
		return body
	})
	return out, firstErr
}

// ParseComputeShader extracts the entry point, workgroup size and buffer bindings from WGSL.
//
// Parameters:
//   - label: debug label for the shader
//   - source: WGSL source with includes already expanded
//
// Returns:
//   - *ComputeShader: the parsed shader, bindings sorted by group then binding
//   - error: if no @compute entry point is present
func ParseComputeShader(label, source string) (*ComputeShader, error) {
	cleaned := stripComments(source)

	m := computeEntryRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, fmt.Errorf("gpu: shader %q has no @compute entry point", label)
	}

	cs := &ComputeShader{
		Label:         label,
		Source:        source,
		EntryPoint:    m[1],
		WorkgroupSize: parseWorkgroupSize(cleaned),
	}

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		cs.Bindings = append(cs.Bindings, Binding{
			Group:   group,
			Binding: binding,
			Name:    strings.TrimSpace(match[4]),
			Type:    classifyBuffer(strings.TrimSpace(match[3])),
		})
	}
	sort.Slice(cs.Bindings, func(i, j int) bool {
		a, b := cs.Bindings[i], cs.Bindings[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})
	return cs, nil
}

// LayoutDescriptor builds the bind group layout of group 0.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: entries visible to the compute stage
func (cs *ComputeShader) LayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(cs.Bindings))
	for _, b := range cs.Bindings {
		if b.Group != 0 {
			continue
		}
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(b.Binding),
			Visibility: wgpu.ShaderStageCompute,
		}
		entry.Buffer.Type = b.Type
		entries = append(entries, entry)
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   cs.Label,
		Entries: entries,
	}
}

// classifyBuffer maps a WGSL address space qualifier to a buffer binding type.
func classifyBuffer(addressSpace string) wgpu.BufferBindingType {
	switch {
	case addressSpace == "uniform":
		return wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		return wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
	return wgpu.BufferBindingTypeUndefined
}

// parseWorkgroupSize extracts @workgroup_size(x, y, z). Omitted dimensions default to 1.
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(source)
	if match == nil {
		return result
	}
	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// stripComments removes // and (nested) /* */ comments from WGSL source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if depth > 0 && source[i] == '*' && source[i+1] == '/' {
				depth--
				i++
				continue
			}
			if depth == 0 && source[i] == '/' && source[i+1] == '/' {
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
