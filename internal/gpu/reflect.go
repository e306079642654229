package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

// ioVar is one @location value crossing a stage boundary.
type ioVar struct {
	name     string
	location uint32
}

// uniformVar is one var<uniform> declaration.
type uniformVar struct {
	name    string
	group   uint32
	binding uint32
	size    uint32
	mat4    bool
}

func (s *Shader) entryPoint() *ir.EntryPoint {
	for i := range s.ir.EntryPoints {
		ep := &s.ir.EntryPoints[i]
		if ep.Name == s.entry {
			return ep
		}
	}
	return nil
}

// inputs returns the @location arguments of the shader's entry point,
// expanding struct arguments into their members.
func (s *Shader) inputs() []ioVar {
	ep := s.entryPoint()
	if ep == nil {
		return nil
	}
	var vars []ioVar
	for _, arg := range ep.Function.Arguments {
		vars = appendLocations(vars, s.ir, arg.Name, arg.Type, arg.Binding)
	}
	return vars
}

// outputs returns the @location results of the shader's entry point.
func (s *Shader) outputs() []ioVar {
	ep := s.entryPoint()
	if ep == nil || ep.Function.Result == nil {
		return nil
	}
	res := ep.Function.Result
	return appendLocations(nil, s.ir, "", res.Type, res.Binding)
}

func appendLocations(dst []ioVar, m *ir.Module, name string, th ir.TypeHandle, binding *ir.Binding) []ioVar {
	if binding != nil {
		if loc, ok := (*binding).(ir.LocationBinding); ok {
			dst = append(dst, ioVar{name: name, location: loc.Location})
		}
		return dst
	}
	if int(th) >= len(m.Types) {
		return dst
	}
	st, ok := m.Types[th].Inner.(ir.StructType)
	if !ok {
		return dst
	}
	for _, member := range st.Members {
		if member.Binding == nil {
			continue
		}
		if loc, ok := (*member.Binding).(ir.LocationBinding); ok {
			dst = append(dst, ioVar{name: member.Name, location: loc.Location})
		}
	}
	return dst
}

// uniforms returns the var<uniform> globals declared by the shader module.
func (s *Shader) uniforms() []uniformVar {
	var vars []uniformVar
	for _, gv := range s.ir.GlobalVariables {
		if gv.Space != ir.SpaceUniform || gv.Binding == nil {
			continue
		}
		vars = append(vars, uniformVar{
			name:    gv.Name,
			group:   gv.Binding.Group,
			binding: gv.Binding.Binding,
			size:    ir.TypeSize(s.ir, gv.Type),
			mat4:    isMat4(s.ir, gv.Type),
		})
	}
	return vars
}

func isMat4(m *ir.Module, th ir.TypeHandle) bool {
	if int(th) >= len(m.Types) {
		return false
	}
	mt, ok := m.Types[th].Inner.(ir.MatrixType)
	return ok && mt.Columns == ir.Vec4 && mt.Rows == ir.Vec4 && mt.Scalar.Kind == ir.ScalarFloat && mt.Scalar.Width == 4
}

// matchInterface checks that every fragment input location is written by
// the vertex stage.
func matchInterface(vs, fs *Shader) []string {
	produced := make(map[uint32]bool)
	for _, out := range vs.outputs() {
		produced[out.location] = true
	}
	var problems []string
	for _, in := range fs.inputs() {
		if !produced[in.location] {
			problems = append(problems, fmt.Sprintf("fragment input %q at location %d has no matching vertex output", in.name, in.location))
		}
	}
	return problems
}

// mergeUniforms collects the uniforms of both stages keyed by name. A name
// declared twice must agree on its binding.
func mergeUniforms(vs, fs *Shader) (map[string]uniformVar, []string) {
	merged := make(map[string]uniformVar)
	var problems []string
	for _, sh := range []*Shader{vs, fs} {
		for _, u := range sh.uniforms() {
			if u.group != 0 {
				problems = append(problems, fmt.Sprintf("uniform %q is in group %d, only group 0 is bound", u.name, u.group))
				continue
			}
			if prev, ok := merged[u.name]; ok {
				if prev.binding != u.binding {
					problems = append(problems, fmt.Sprintf("uniform %q bound at %d in vertex stage and %d in fragment stage", u.name, prev.binding, u.binding))
				}
				continue
			}
			merged[u.name] = u
		}
	}
	return merged, problems
}

// sortedUniforms returns the uniforms ordered by binding index.
func sortedUniforms(m map[string]uniformVar) []uniformVar {
	out := make([]uniformVar, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].binding < out[j].binding })
	return out
}
