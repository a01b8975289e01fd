package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga/ir"
)

// Phase is the compilation step that failed.
type Phase string

const (
	PhaseInclude    Phase = "include"
	PhaseParse      Phase = "parse"
	PhaseLower      Phase = "lower"
	PhaseValidate   Phase = "validate"
	PhaseEntryPoint Phase = "entry point"
	PhaseSPIRV      Phase = "spirv"
)

// CompilationError reports a shader that failed to compile or to match
// the pipeline's expected entry points. Diagnostic carries the compiler
// text unchanged.
type CompilationError struct {
	Label      string
	Phase      Phase
	EntryPoint string
	Stage      Stage
	Diagnostic string
}

func (e *CompilationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shader %s: %s failed", e.Label, e.Phase)
	if e.EntryPoint != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Stage, e.EntryPoint)
	}
	if e.Diagnostic != "" {
		b.WriteString(": ")
		b.WriteString(e.Diagnostic)
	}
	return b.String()
}

func newCompilationError(label string, phase Phase, required []EntryPoint, diag string) *CompilationError {
	e := &CompilationError{Label: label, Phase: phase, Diagnostic: diag}
	if len(required) == 1 {
		e.EntryPoint = required[0].Name
		e.Stage = required[0].Stage
	}
	return e
}

func joinValidation(verrs []ir.ValidationError) string {
	msgs := make([]string, 0, len(verrs))
	for i := range verrs {
		msgs = append(msgs, verrs[i].Error())
	}
	return strings.Join(msgs, "; ")
}
