// Package optimizer derives the in-process LTO-style pass sequence run over a
// closed-world module. Executing the plan against LLVM is done by llvmutil.
package optimizer

import (
	"github.com/timmyyuan/native-backend/profile"
	"github.com/timmyyuan/native-backend/target"
)

// InlineThreshold is the inliner threshold used in optimize mode.
const InlineThreshold = 100

// StepKind identifies one entry of a Plan.
type StepKind int

const (
	// TargetAnalysis adds the target machine's analysis passes.
	TargetAnalysis StepKind = iota
	// Internalize makes every symbol outside Plan.Exported internal.
	Internalize
	// GlobalDCE deletes unreachable internal globals.
	GlobalDCE
	// Inliner enables the inliner with Plan.InlineThreshold.
	Inliner
	// PopulateLTO fills the pass manager like llvm-lto does.
	PopulateLTO
)

func (k StepKind) String() string {
	switch k {
	case TargetAnalysis:
		return "target-analysis"
	case Internalize:
		return "internalize"
	case GlobalDCE:
		return "globaldce"
	case Inliner:
		return "inliner"
	case PopulateLTO:
		return "populate-lto"
	}
	return "unknown"
}

// CodeGenLevel mirrors LLVM's code generation optimization levels.
type CodeGenLevel int

const (
	CodeGenNone CodeGenLevel = iota
	CodeGenLess
	CodeGenDefault
	CodeGenAggressive
)

// Config is what a session knows about the module it is optimizing.
type Config struct {
	Target target.Target
	Mode   profile.Mode
	// Exported survive internalization. The set must be closed: anything not
	// listed may be removed.
	Exported []string
	// Coverage enables the late coverage pass manager.
	Coverage bool
}

// Plan is the fully resolved pipeline.
type Plan struct {
	Triple          string
	CPU             string
	Features        string
	CodeGenLevel    CodeGenLevel
	OptLevel        int
	SizeLevel       int
	InlineThreshold int
	Exported        []string
	Steps           []StepKind
	LateCoverage    bool
}

// NewPlan resolves cfg into a Plan. An unmapped target fails here, before any
// LLVM state is touched.
func NewPlan(cfg Config) (*Plan, error) {
	cpu, err := target.CPU(cfg.Target)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Triple:       cfg.Target.Triple,
		CPU:          cpu,
		OptLevel:     optLevel(cfg.Mode),
		CodeGenLevel: codeGenLevel(cfg.Mode),
		Exported:     append([]string(nil), cfg.Exported...),
		LateCoverage: cfg.Coverage,
	}

	p.Steps = []StepKind{TargetAnalysis, Internalize, GlobalDCE}
	if cfg.Mode == profile.Optimize {
		p.InlineThreshold = InlineThreshold
		p.Steps = append(p.Steps, Inliner)
	}
	p.Steps = append(p.Steps, PopulateLTO)

	return p, nil
}

// Has reports whether the plan contains step k.
func (p *Plan) Has(k StepKind) bool {
	for _, s := range p.Steps {
		if s == k {
			return true
		}
	}
	return false
}

func optLevel(m profile.Mode) int {
	switch m {
	case profile.Optimize:
		return 3
	case profile.Debug:
		return 0
	}
	return 1
}

func codeGenLevel(m profile.Mode) CodeGenLevel {
	switch m {
	case profile.Optimize:
		return CodeGenAggressive
	case profile.Debug:
		return CodeGenNone
	}
	return CodeGenDefault
}
