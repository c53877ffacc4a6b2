package llvmutil

/*
#include <stdlib.h>
#include <string.h>

#include "llvm-c/Core.h"
#include "llvm-c/Initialization.h"
#include "llvm-c/Transforms/IPO.h"
#include "llvm-c/Transforms/PassManagerBuilder.h"
#include "passes.h"

static void initialize_pass_registry(void) {
	LLVMPassRegistryRef registry = LLVMGetGlobalPassRegistry();
	LLVMInitializeCore(registry);
	LLVMInitializeTransformUtils(registry);
	LLVMInitializeScalarOpts(registry);
	LLVMInitializeObjCARCOpts(registry);
	LLVMInitializeVectorization(registry);
	LLVMInitializeInstCombine(registry);
	LLVMInitializeIPO(registry);
	LLVMInitializeInstrumentation(registry);
	LLVMInitializeAnalysis(registry);
	LLVMInitializeIPA(registry);
	LLVMInitializeCodeGen(registry);
	LLVMInitializeTarget(registry);
}

typedef struct {
	char **names;
	size_t count;
} preserved_set;

static LLVMBool must_preserve(LLVMValueRef global, void *ctx) {
	preserved_set *set = (preserved_set *)ctx;
	size_t len = 0;
	const char *name = LLVMGetValueName2(global, &len);
	for (size_t i = 0; i < set->count; i++) {
		if (strlen(set->names[i]) == len && strncmp(set->names[i], name, len) == 0) {
			return 1;
		}
	}
	return 0;
}

static void add_internalize_pass(LLVMPassManagerRef pm, preserved_set *set) {
	LLVMAddInternalizePassWithMustPreservePredicate(pm, set, must_preserve);
}
*/
import "C"

import (
	"unsafe"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"github.com/timmyyuan/native-backend/optimizer"
)

// CoveragePasses adds the instrumentation passes that must run after the
// main pipeline.
type CoveragePasses interface {
	AddLatePasses(pm llvm.PassManager)
}

// preservedSet is a C copy of the exported symbol names. It must outlive
// every run of the pass manager it was registered with.
type preservedSet struct {
	c *C.preserved_set
}

func newPreservedSet(names []string) *preservedSet {
	set := (*C.preserved_set)(C.calloc(1, C.sizeof_preserved_set))
	if len(names) > 0 {
		set.names = (**C.char)(C.calloc(C.size_t(len(names)), C.size_t(unsafe.Sizeof((*C.char)(nil)))))
		slots := unsafe.Slice(set.names, len(names))
		for i, name := range names {
			slots[i] = C.CString(name)
		}
	}
	set.count = C.size_t(len(names))
	return &preservedSet{c: set}
}

func (s *preservedSet) free() {
	if s.c.count > 0 {
		for _, name := range unsafe.Slice(s.c.names, int(s.c.count)) {
			C.free(unsafe.Pointer(name))
		}
		C.free(unsafe.Pointer(s.c.names))
	}
	C.free(unsafe.Pointer(s.c))
}

func initializePassRegistry() {
	C.initialize_pass_registry()
}

func addTargetLibraryInfo(pm llvm.PassManager, triple string) {
	ctriple := C.CString(triple)
	defer C.free(unsafe.Pointer(ctriple))
	C.nbackend_add_target_library_info(C.LLVMPassManagerRef(unsafe.Pointer(pm.C)), ctriple)
}

func addInternalizePass(pm llvm.PassManager, set *preservedSet) {
	C.add_internalize_pass(C.LLVMPassManagerRef(unsafe.Pointer(pm.C)), set.c)
}

func populateLTOPassManager(pmb llvm.PassManagerBuilder, pm llvm.PassManager, runInliner bool) {
	inline := C.LLVMBool(0)
	if runInliner {
		inline = 1
	}
	// internalization is done by our own pass with the exported set
	C.LLVMPassManagerBuilderPopulateLTOPassManager(
		C.LLVMPassManagerBuilderRef(unsafe.Pointer(pmb.C)),
		C.LLVMPassManagerRef(unsafe.Pointer(pm.C)),
		0, inline)
}

func codeGenLevel(l optimizer.CodeGenLevel) llvm.CodeGenOptLevel {
	switch l {
	case optimizer.CodeGenNone:
		return llvm.CodeGenLevelNone
	case optimizer.CodeGenLess:
		return llvm.CodeGenLevelLess
	case optimizer.CodeGenAggressive:
		return llvm.CodeGenLevelAggressive
	}
	return llvm.CodeGenLevelDefault
}

func withTargetMachine(plan *optimizer.Plan, fn func(tm llvm.TargetMachine) error) error {
	t, err := llvm.GetTargetFromTriple(plan.Triple)
	if err != nil {
		return errors.Wrapf(err, "looking up target %s", plan.Triple)
	}
	tm := t.CreateTargetMachine(plan.Triple, plan.CPU, plan.Features,
		codeGenLevel(plan.CodeGenLevel), llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()
	return fn(tm)
}

func withPassManager(fn func(pm llvm.PassManager) error) error {
	pm := llvm.NewPassManager()
	defer pm.Dispose()
	return fn(pm)
}

// Optimize runs plan over m in place, followed by the coverage passes when
// the plan asks for them.
func (m *Module) Optimize(plan *optimizer.Plan) error {
	Initialize()

	err := withTargetMachine(plan, func(tm llvm.TargetMachine) error {
		td := tm.CreateTargetData()
		defer td.Dispose()
		m.mod.SetTarget(plan.Triple)
		m.mod.SetDataLayout(td.String())

		return withPassManager(func(pm llvm.PassManager) error {
			preserved := newPreservedSet(plan.Exported)
			defer preserved.free()

			pmb := llvm.NewPassManagerBuilder()
			defer pmb.Dispose()
			pmb.SetOptLevel(plan.OptLevel)
			pmb.SetSizeLevel(plan.SizeLevel)

			for _, step := range plan.Steps {
				glog.V(5).Infof("optimizer: adding %s", step)
				switch step {
				case optimizer.TargetAnalysis:
					tm.AddAnalysisPasses(pm)
				case optimizer.Internalize:
					addInternalizePass(pm, preserved)
				case optimizer.GlobalDCE:
					pm.AddGlobalDCEPass()
				case optimizer.Inliner:
					pmb.UseInlinerWithThreshold(uint(plan.InlineThreshold))
				case optimizer.PopulateLTO:
					populateLTOPassManager(pmb, pm, plan.Has(optimizer.Inliner))
				}
			}

			pm.Run(m.mod)
			return nil
		})
	})
	if err != nil {
		return err
	}

	if plan.LateCoverage {
		return m.RunLatePasses()
	}
	return nil
}

// RunLatePasses runs only the coverage passes over m, with the library info
// of the module's target available to them.
func (m *Module) RunLatePasses() error {
	if m.Coverage == nil {
		return errors.New("coverage requested without coverage passes")
	}
	return withPassManager(func(pm llvm.PassManager) error {
		addTargetLibraryInfo(pm, m.mod.Target())
		m.Coverage.AddLatePasses(pm)
		pm.Run(m.mod)
		return nil
	})
}

// LatePassesOnFile re-opens an already optimized bitcode file, runs the
// coverage passes over it and writes it back. External-opt pipelines use it
// for their late stage.
func LatePassesOnFile(path string, coverage CoveragePasses) error {
	m, err := ParseBitcodeFile(path)
	if err != nil {
		return err
	}
	defer m.Dispose()

	m.Coverage = coverage
	if err := m.RunLatePasses(); err != nil {
		return err
	}
	return m.WriteBitcodeToFile(path)
}
