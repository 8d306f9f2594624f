package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/armkit/go-irc5/pkg/client"
	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

var (
	goalWait    bool
	goalTimeout time.Duration
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Submit or cancel trajectory goals",
}

var goalSubmitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a trajectory goal from a JSON file (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 && args[0] != "-" {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		var goal trajectory.Goal
		if err := json.Unmarshal(data, &goal); err != nil {
			return fmt.Errorf("parse goal: %w", err)
		}

		c := client.New(apiURL)
		var info client.GoalInfo
		if goalWait {
			ctx, cancel := context.WithTimeout(context.Background(), goalTimeout)
			defer cancel()
			info, err = c.SubmitGoalAndWait(ctx, goal)
		} else {
			info, err = c.SubmitGoal(goal)
		}
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var goalCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client.New(apiURL).CancelGoal(args[0])
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var goalGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a goal's lifecycle state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client.New(apiURL).Goal(args[0])
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var (
	modeSpeedScalar float64
	modeFtThreshold []float64
)

var modeCmd = &cobra.Command{
	Use:   "mode <halt|joint_teleop|shared_trajectory|auto_trajectory>",
	Short: "Switch the controller mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode controller.Mode
		switch args[0] {
		case "halt":
			mode = controller.ModeHalt
		case "joint_teleop":
			mode = controller.ModeJointTeleop
		case "shared_trajectory":
			mode = controller.ModeSharedTrajectory
		case "auto_trajectory":
			mode = controller.ModeAutoTrajectory
		default:
			return fmt.Errorf("unknown mode %q", args[0])
		}
		return client.New(apiURL).SetMode(mode, modeSpeedScalar, modeFtThreshold)
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the latest controller state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := client.New(apiURL).State()
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

func init() {
	goalSubmitCmd.Flags().BoolVar(&goalWait, "wait", false, "wait for the goal to finish")
	goalSubmitCmd.Flags().DurationVar(&goalTimeout, "timeout", 5*time.Minute, "wait timeout")
	goalCmd.AddCommand(goalSubmitCmd)
	goalCmd.AddCommand(goalCancelCmd)
	goalCmd.AddCommand(goalGetCmd)

	modeCmd.Flags().Float64Var(&modeSpeedScalar, "speed", 1.0, "speed scalar")
	modeCmd.Flags().Float64SliceVar(&modeFtThreshold, "ft-threshold", nil, "force/torque stop threshold (6 values)")
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
