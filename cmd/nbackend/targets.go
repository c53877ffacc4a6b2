package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmyyuan/native-backend/profile"
	"github.com/timmyyuan/native-backend/target"
)

func newTargetsCmd() *cobra.Command {
	var profiles string
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List known targets and their profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadProfiles(profiles)
			if err != nil {
				return err
			}

			fmt.Printf("%-24s %-8s %-10s %s\n", "TARGET", "FAMILY", "PROFILE", "TRIPLE")
			for _, name := range target.Names() {
				t, _ := target.Lookup(name)
				kind := "-"
				if p, err := file.Select(t, "."); err == nil {
					kind = p.Kind().String()
				}
				fmt.Printf("%-24s %-8s %-10s %s\n", t.Name, t.Family, kind, t.Triple)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profiles, "profiles", "", "Profiles file layered over the built-in profiles")
	return cmd
}

func loadProfiles(path string) (*profile.File, error) {
	if path == "" {
		return profile.Defaults(), nil
	}
	return profile.LoadFile(path)
}
