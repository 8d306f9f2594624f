package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/armkit/go-irc5/internal/config"
	"github.com/armkit/go-irc5/pkg/rapid"
)

// rapidFromFlags builds a RAPID client from --robot, falling back to the
// configured controller address.
func rapidFromFlags() (*rapid.Client, error) {
	if robotURL != "" {
		return rapid.NewClient(robotURL), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return rapid.NewClient(cfg.RapidBaseURL()), nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show RAPID execution and controller state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		status, err := rc.Status()
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var startResetPP bool

var startCmd = &cobra.Command{
	Use:   "start [cycle]",
	Short: "Start RAPID program execution",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		cycle := ""
		if len(args) == 1 {
			cycle = args[0]
		}
		return rc.Start(cycle, startResetPP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop RAPID program execution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		return rc.Stop()
	},
}

var ioCmd = &cobra.Command{
	Use:   "io",
	Short: "Read or write digital IO signals",
}

var ioGetCmd = &cobra.Command{
	Use:   "get <signal>",
	Short: "Read a digital signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		value, err := rc.GetDigitalIO(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var ioSetCmd = &cobra.Command{
	Use:   "set <signal> <value>",
	Short: "Write a digital signal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}
		return rc.SetDigitalIO(args[0], value)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read the controller event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rapidFromFlags()
		if err != nil {
			return err
		}
		msgs, err := rc.ReadEventLog()
		if err != nil {
			return err
		}
		return printJSON(msgs)
	},
}

func init() {
	startCmd.Flags().BoolVar(&startResetPP, "reset-pp", false, "reset the program pointer to main before starting")
	ioCmd.AddCommand(ioGetCmd)
	ioCmd.AddCommand(ioSetCmd)
}
