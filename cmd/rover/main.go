// Command rover exercises the motion core from the command line: drive
// along an arc, run precision moves and spins, or play a scripted sequence,
// on real H-bridge hardware described by a YAML profile or on fake hardware
// for a dry run.
package main

import (
	"context"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.viam.com/utils"
	"periph.io/x/periph/host"

	"github.com/diffdrive/rover/base"
	"github.com/diffdrive/rover/components/encoder"
	encoderfake "github.com/diffdrive/rover/components/encoder/fake"
	"github.com/diffdrive/rover/components/encoder/pulse"
	"github.com/diffdrive/rover/components/motor"
	motorfake "github.com/diffdrive/rover/components/motor/fake"
	"github.com/diffdrive/rover/components/motor/l29x"
	"github.com/diffdrive/rover/components/motor/mx1508"
	"github.com/diffdrive/rover/config"
)

const tickInterval = 10 * time.Millisecond

var (
	logger = golog.NewDevelopmentLogger("rover")

	profilePath string
	fakeHW      bool

	vLinear  float64
	vAngular float64
	duration time.Duration

	angLeft  float64
	angRight float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "rover",
		Short:        "Drive a two-wheel differential rover",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "rover.yaml", "rover profile file")
	rootCmd.PersistentFlags().BoolVar(&fakeHW, "fake", false, "run on fake hardware")

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Drive at a linear speed and angular rate for a while",
		RunE:  runDrive,
	}
	driveCmd.Flags().Float64VarP(&vLinear, "linear", "v", 50, "linear velocity, percent of full speed")
	driveCmd.Flags().Float64VarP(&vAngular, "angular", "a", 0, "angular rate, degrees per second")
	driveCmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "how long to drive")

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Rotate each wheel through a precise angle",
		RunE:  runMove,
	}
	moveCmd.Flags().Float64VarP(&angLeft, "left", "l", 360, "left wheel angle, degrees")
	moveCmd.Flags().Float64VarP(&angRight, "right", "r", 360, "right wheel angle, degrees")

	spinCmd := &cobra.Command{
		Use:   "spin [fraction]",
		Short: "Spin in place by a signed fraction of a full turn, percent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSpin,
	}

	seqCmd := &cobra.Command{
		Use:   "seq",
		Short: "Run the built-in evade sequence",
		RunE:  runSeq,
	}

	rootCmd.AddCommand(driveCmd, moveCmd, spinCmd, seqCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildController() (*base.Controller, error) {
	var (
		motors   [2]motor.Motor
		encoders [2]encoder.Encoder
		store    config.Store
		params   base.VehicleParams
	)

	if fakeHW {
		for i := range motors {
			motors[i] = &motorfake.Motor{Logger: logger}
			enc := encoderfake.New(clock.New())
			enc.PulsesPerRead = 3 // pretend the wheels turn
			encoders[i] = enc
		}
		params = base.NewVehicleParams(0, 0, 0, 0)
	} else {
		prof, err := config.ReadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		if _, err := host.Init(); err != nil {
			return nil, errors.Wrap(err, "init gpio host")
		}
		for i, mp := range [2]config.MotorProfile{prof.Left, prof.Right} {
			m, err := buildMotor(mp)
			if err != nil {
				return nil, err
			}
			motors[i] = m
		}
		for i, pin := range [2]string{prof.LeftEncoderPin, prof.RightEncoderPin} {
			e, err := pulse.New(pin, clock.New(), logger)
			if err != nil {
				return nil, err
			}
			encoders[i] = e
		}
		params = base.NewVehicleParams(prof.PPR, prof.PPSMax, prof.WheelDiameterMM, prof.BaseLengthMM)
		if prof.TuningFile != "" {
			store = &config.FileStore{Path: prof.TuningFile}
		}
	}

	c := base.NewController(base.Config{
		LeftMotor:    motors[0],
		LeftEncoder:  encoders[0],
		RightMotor:   motors[1],
		RightEncoder: encoders[1],
		Params:       params,
		Store:        store,
	}, logger)
	if err := c.Begin(); err != nil {
		return nil, err
	}
	c.OnStateChange(func(sc base.StateChange) {
		logger.Debugw("wheel state", "wheel", sc.Wheel.String(), "from", sc.From.String(), "to", sc.To.String())
	})
	return c, nil
}

func buildMotor(mp config.MotorProfile) (motor.Motor, error) {
	switch mp.Driver {
	case "l29x":
		return l29x.New(l29x.Config{In1: mp.In1, In2: mp.In2, En: mp.En, PWMFreqHz: mp.PWMFreqHz}, logger)
	case "mx1508":
		return mx1508.New(mx1508.Config{Fwd: mp.Fwd, Rev: mp.Rev, PWMFreqHz: mp.PWMFreqHz}, logger)
	default:
		return nil, errors.Errorf("unknown motor driver %q", mp.Driver)
	}
}

// tickUntil runs the control loop until done reports true or the context
// ends, always leaving the vehicle stopped.
func tickUntil(ctx context.Context, c *base.Controller, done func() bool) error {
	defer c.Stop()
	for !done() {
		c.Tick()
		if !utils.SelectContextOrWait(ctx, tickInterval) {
			return ctx.Err()
		}
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runDrive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := buildController()
	if err != nil {
		return err
	}
	c.DriveDeg(vLinear, vAngular)
	deadline := time.Now().Add(duration)
	return tickUntil(ctx, c, func() bool { return time.Now().After(deadline) })
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := buildController()
	if err != nil {
		return err
	}
	c.MoveDeg(angLeft, angRight)
	return tickUntil(ctx, c, func() bool { return !c.IsRunning() })
}

func runSpin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	fraction := 25.0
	if len(args) == 1 {
		f, err := parseFloat(args[0])
		if err != nil {
			return err
		}
		fraction = f
	}

	c, err := buildController()
	if err != nil {
		return err
	}
	c.Spin(fraction)
	return tickUntil(ctx, c, func() bool { return !c.IsRunning() })
}

func runSeq(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := buildController()
	if err != nil {
		return err
	}
	// back away and spin out of trouble
	c.StartSequence([]base.Action{
		base.StopAction{},
		base.PauseAction{Duration: 300 * time.Millisecond},
		base.MoveAction{AngleL: -math.Pi, AngleR: -math.Pi},
		base.PauseAction{Duration: 300 * time.Millisecond},
		base.SpinAction{Fraction: -25},
		base.EndAction{},
	})
	return tickUntil(ctx, c, c.SequenceComplete)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("not a number: %q", s)
	}
	return f, nil
}
