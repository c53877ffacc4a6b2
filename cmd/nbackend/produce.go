package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/llvmutil"
	"github.com/timmyyuan/native-backend/producer"
	"github.com/timmyyuan/native-backend/tempfiles"
)

func newProduceCmd() *cobra.Command {
	var sessionPath string
	var profiles string
	var progress bool

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Build the artifact described by a session file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := LoadSession(sessionPath)
			if err != nil {
				return err
			}
			file, err := loadProfiles(profiles)
			if err != nil {
				return err
			}
			cfg, err := session.Config(file)
			if err != nil {
				return err
			}
			cfg.Verbose = progress
			return produce(session, cfg)
		},
	}

	cmd.Flags().StringVar(&sessionPath, "session", "", "Session file describing the build")
	cmd.Flags().StringVar(&profiles, "profiles", "", "Profiles file layered over the built-in profiles")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print the stages of the build")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func produce(session *Session, cfg producer.Config) (err error) {
	var temps *tempfiles.Files
	if session.WorkDir != "" {
		temps, err = tempfiles.Keep(session.path(session.WorkDir))
	} else {
		temps, err = tempfiles.New("nbackend")
	}
	if err != nil {
		return err
	}
	defer func() {
		if derr := temps.Dispose(); derr != nil {
			glog.Warningf("cleaning up %s: %v", temps.Dir(), derr)
		}
	}()

	module, err := llvmutil.ParseBitcodeFile(session.path(session.Module))
	if err != nil {
		return err
	}
	defer module.Dispose()

	deps := producer.Deps{
		Runner:   command.NewExecRunner(),
		Temps:    temps,
		Module:   module,
		Packager: dirPackager{},
	}
	if session.CAdapter != "" {
		deps.CAdapter = fileAdapter(session.path(session.CAdapter))
	}

	result, err := producer.New(cfg, deps).Produce()
	if err != nil {
		return err
	}

	size := "directory"
	if info, err := os.Stat(result.Path); err == nil && !info.IsDir() {
		size = humanize.Bytes(uint64(info.Size()))
	}
	color.Green("produced %s (%s, %s)", result.Path, result.Produce, size)
	return nil
}

// fileAdapter supplies a C adapter source written ahead of time by the front
// end.
type fileAdapter string

func (a fileAdapter) WriteSource(path string) error {
	return copyInto(string(a), path)
}
