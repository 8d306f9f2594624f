package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/armkit/go-irc5/internal/config"
	"github.com/armkit/go-irc5/internal/log"
	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/rapid"
	"github.com/armkit/go-irc5/pkg/trajectory"
	"github.com/armkit/go-irc5/pkg/web"
)

var serveSim bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the arm controller daemon",
	Long: `Run the control loop and the REST/WebSocket API. With --sim the
feedback source is a loopback simulation of a perfectly tracking arm;
without it the daemon expects an external feedback feed.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSim, "sim", true, "use the loopback arm simulation as feedback source")
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional, ignore a missing file
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	adapter := trajectory.NewAdapter()

	var rapidClient *rapid.Client
	if cfg.RobotHost != "" {
		rapidClient = rapid.NewClient(cfg.RapidBaseURL())
	}

	period := time.Second / time.Duration(cfg.ControlHz)

	ctrlOpts := []controller.Option{
		controller.WithSpeedScalarMax(cfg.SpeedScalarMax),
	}
	if len(cfg.JointLimitLow) == trajectory.NumJoints {
		ctrlOpts = append(ctrlOpts, controller.WithJointLimits(cfg.JointLimitLow, cfg.JointLimitHigh))
	}

	ctrl := controller.New(adapter, period, nil, ctrlOpts...)
	server := web.NewServer(cfg.ListenPort, ctrl, rapidClient)
	ctrl.SetPublisher(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
		server.Shutdown()
	}()

	if serveSim {
		arm := controller.NewLoopbackArm(adapter.CurrentJointAngles(), period)
		go ctrl.Run(ctx, arm, arm)
		log.Info("control loop started", "hz", cfg.ControlHz, "source", "sim")
	} else {
		log.Warn("no feedback source configured, control loop idle")
	}

	log.Info("armctl listening", "port", cfg.ListenPort, "robot", cfg.RobotHost)
	return server.Start()
}
