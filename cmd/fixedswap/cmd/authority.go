package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-fixedswap/internal/authority"
)

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Pool authority derivation",
	Long:  `Derive and check the program-derived authority that controls a pool's reserve.`,
}

var authorityFindCmd = &cobra.Command{
	Use:   "find [pool]",
	Short: "Derive the authority of a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := parseKey("pool", args[0])
		if err != nil {
			return err
		}
		program, err := programID()
		if err != nil {
			return err
		}

		key, bump, err := authority.Find(program, pool)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Program:   %s\n", program)
		fmt.Fprintf(out, "Pool:      %s\n", pool)
		fmt.Fprintf(out, "Authority: %s\n", key)
		fmt.Fprintf(out, "Bump:      %d\n", bump)
		return nil
	},
}

var authorityVerifyCmd = &cobra.Command{
	Use:   "verify [pool] [authority] [bump]",
	Short: "Check a claimed pool authority",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := parseKey("pool", args[0])
		if err != nil {
			return err
		}
		claimed, err := parseKey("authority", args[1])
		if err != nil {
			return err
		}
		bump, err := strconv.ParseUint(args[2], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid bump: %w", err)
		}
		program, err := programID()
		if err != nil {
			return err
		}

		if err := authority.Verify(program, pool, uint8(bump), claimed); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s is the authority of pool %s\n", claimed, pool)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorityCmd)
	authorityCmd.AddCommand(authorityFindCmd)
	authorityCmd.AddCommand(authorityVerifyCmd)
}
