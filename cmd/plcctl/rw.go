package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type readFlags struct {
	typ   string
	count int
}

func newReadCmd(target *targetFlags) *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "read <address|point>",
		Short: "Read values from a device",
		Example: `  plcctl read --vendor fatek --host 192.168.1.10 R100 --count 4
  plcctl read --vendor modbus --host 10.0.0.5 "s=2;x=4;30" --type int32
  plcctl read --config plant.yaml --device press speed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseType(flags.typ)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			t, err := target.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer t.dev.Close()

			address, typ, count := t.resolve(args[0], typ, flags.count)
			values, err := readValues(ctx, t.dev, address, typ, count)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(values, " "))

			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.typ, "type", "t", "", "Value type: bool, uint16, int16, uint32, int32, float32, words or tag")
	cmd.Flags().IntVarP(&flags.count, "count", "n", 0, "Number of values to read")

	return cmd
}

type writeFlags struct {
	typ string
}

func newWriteCmd(target *targetFlags) *cobra.Command {
	flags := &writeFlags{}

	cmd := &cobra.Command{
		Use:   "write <address|point> <value>...",
		Short: "Write values to a device",
		Example: `  plcctl write --vendor panasonic --host 192.168.1.11 D100 1 2 3
  plcctl write --vendor fatek --host 192.168.1.10 Y0 true false --type bool
  plcctl write --vendor ab --host 192.168.1.20 Counter 1000 --type int32`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseType(flags.typ)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			t, err := target.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer t.dev.Close()

			address, typ, _ := t.resolve(args[0], typ, 0)

			return writeValues(ctx, t.dev, address, typ, args[1:])
		},
	}

	cmd.Flags().StringVarP(&flags.typ, "type", "t", "", "Value type: bool, uint16, int16, uint32, int32, float32 or words")

	return cmd
}
