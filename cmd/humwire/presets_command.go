package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/domain"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the known color presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.registry()
			if err != nil {
				return err
			}
			var list []domain.Preset
			for _, name := range r.Names() {
				p, err := r.Preset(name)
				if err != nil {
					return err
				}
				list = append(list, p)
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				s := p.Scheme
				rows = append(rows, []string{
					p.Name,
					s.Manufacturer,
					fmt.Sprintf("%s/%s", s.NorthStart, s.NorthFinish),
					fmt.Sprintf("%s/%s", s.SouthStart, s.SouthFinish),
					p.Neck.String(),
					p.Bridge.String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Manufacturer", "North", "South", "Neck", "Bridge"}, rows, nil))
			return nil
		},
	}
	cmd.AddCommand(newPresetShowCommand(ctx))
	return cmd
}

func newPresetShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the eight-lead color mapping of a preset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.registry()
			if err != nil {
				return err
			}
			a, err := r.Lookup(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, a)
			}
			rows := make([][]string, 0, 8)
			for _, e := range a.Entries() {
				coil := a.Pickup(e.Lead.Position).Coil(e.Lead.Slot)
				rows = append(rows, []string{
					string(e.Lead.Position), string(e.Lead.Slot), coil.Polarity.Title(), string(e.Lead.Role), e.Color,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Pickup", "Coil", "Polarity", "End", "Color"}, rows, nil))
			return nil
		},
	}
}
