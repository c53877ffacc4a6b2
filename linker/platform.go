package linker

import (
	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/profile"
)

// zeroArDate keeps archive member timestamps out of Apple archives and
// objects.
const zeroArDate = "ZERO_AR_DATE=1"

// builder renders the link commands of each platform. An empty result means
// the input is already the final artifact.
type builder struct {
	job *job
}

func (b *builder) Apple(p *profile.Apple) ([]*command.Command, error) {
	j := b.job
	env := []string{zeroArDate}

	if j.kind == StaticLibraryOutput {
		args := profile.NonEmpty(p.Linker.StaticLibFlags, []string{"-o", j.output}, j.objects, j.binaries)
		libtool := command.New(p.TargetTool(p.Linker.Archiver), args...)
		libtool.Env = env
		return []*command.Command{libtool}, nil
	}

	var dynamic []string
	if j.kind == DynamicLibraryOutput {
		dynamic = p.Linker.DynamicFlags
	}
	args := profile.NonEmpty(
		p.Linker.Flags.Compose(j.mode),
		[]string{"-arch", p.Arch},
		[]string{p.MinVersionFlag, p.MinVersion},
		syslibroot(p.Sysroot),
		dynamic,
		[]string{"-o", j.output},
		j.objects,
		j.args,
		j.libraries,
	)
	ld := command.New(p.TargetTool(p.Linker.Tool), args...)
	ld.Env = env
	commands := []*command.Command{ld}

	if j.mode == profile.Debug {
		dsymutil := command.New(p.TargetTool("dsymutil"), j.output, "-o", j.dsym)
		dsymutil.Env = env
		commands = append(commands, dsymutil)
	}
	return commands, nil
}

func syslibroot(sysroot string) []string {
	if sysroot == "" {
		return nil
	}
	return []string{"-syslibroot", sysroot}
}

func sysrootFlag(sysroot string) []string {
	if sysroot == "" {
		return nil
	}
	return []string{"--sysroot=" + sysroot}
}

// archive builds a deterministic static library from the objects alone.
func archive(p *profile.Common, j *job) []*command.Command {
	args := append([]string{"rcsD", j.output}, j.objects...)
	return []*command.Command{command.New(p.TargetTool(p.Linker.Archiver), args...)}
}

func (b *builder) GenericLto(p *profile.GenericLto) ([]*command.Command, error) {
	j := b.job
	if j.kind == StaticLibraryOutput {
		return archive(&p.Common, j), nil
	}

	var dynamic []string
	if j.kind == DynamicLibraryOutput {
		dynamic = p.Linker.DynamicFlags
	}
	args := profile.NonEmpty(
		AsLinkerArgs(p.Linker.Flags.Compose(j.mode), p.Linker.CompilerDriver),
		sysrootFlag(p.Sysroot),
		dynamic,
		[]string{"-o", j.output},
		j.objects,
		j.args,
		j.libraries,
	)
	return []*command.Command{command.New(p.TargetTool(p.Linker.Tool), args...)}, nil
}

func (b *builder) Zephyr(p *profile.Zephyr) ([]*command.Command, error) {
	j := b.job
	if j.kind == StaticLibraryOutput {
		return archive(&p.Common, j), nil
	}

	args := profile.NonEmpty(
		p.Linker.Flags.Compose(j.mode),
		[]string{"-o", j.output},
		j.objects,
		j.args,
		j.libraries,
	)
	return []*command.Command{command.New(p.TargetTool(p.Linker.Tool), args...)}, nil
}

// Wasm output is linked by the backend already.
func (b *builder) Wasm(p *profile.Wasm) ([]*command.Command, error) {
	return nil, nil
}
