package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"

	ppmac "github.com/iwtcode/ppmacAdapter"
	"github.com/iwtcode/ppmacAdapter/fly"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/gpascii/sim"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app = kingpin.New("ppmacctl", "Command line client for Power PMAC motion controllers.")

	endpoint = app.Flag("endpoint", "Controller address IP:PORT (defaults to PPMAC_ENDPOINT).").Short('e').String()
	user     = app.Flag("user", "Login name for the controller shell.").String()
	password = app.Flag("password", "Login password for the controller shell.").String()
	logLevel = app.Flag("log-level", "Log level.").Default("warn").Enum("debug", "info", "warn", "error", "off")

	getCmd   = app.Command("get", "Read one or more variables in a single request.")
	getNames = getCmd.Arg("name", "Variable names, e.g. Motor[1].ActPos.").Required().Strings()

	setCmd   = app.Command("set", "Write a variable.")
	setName  = setCmd.Arg("name", "Variable name.").Required().String()
	setValue = setCmd.Arg("value", "Numeric value.").Required().String()

	watchCmd      = app.Command("watch", "Poll variables and print them until interrupted.")
	watchNames    = watchCmd.Arg("name", "Variable names.").Required().Strings()
	watchInterval = watchCmd.Flag("interval", "Polling interval.").Default("500ms").Duration()

	statusCmd  = app.Command("status", "Show axis status.")
	statusAxis = statusCmd.Arg("motor", "Motor number.").Required().Int()

	flyCmd      = app.Command("fly", "Run a fly scan and print collected points as JSON lines.")
	flyAxes     = flyCmd.Flag("axis", "Scan axis name:motor:start:end (repeatable).").Required().Strings()
	flyPoints   = flyCmd.Flag("points", "Number of scan points.").Default("100").Int64()
	flyVelocity = flyCmd.Flag("velocity", "Axis velocity.").Default("1").Float64()
	flyAccel    = flyCmd.Flag("accel", "Axis acceleration.").Default("10").Float64()
	flyTimeout  = flyCmd.Flag("timeout", "Scan timeout, 0 for none.").Default("0s").Duration()
	flySettle   = flyCmd.Flag("settle", "Wait up to this long for axes to be in position before programming.").Default("5s").Duration()

	simCmd     = app.Command("sim", "Serve a simulated controller over TCP.")
	simListen  = simCmd.Flag("listen", "Listen address.").Default("127.0.0.1:1025").String()
	simMotors  = simCmd.Flag("motor", "Motor number to create in position (repeatable).").Default("1", "2").Ints()
	simPeriod  = simCmd.Flag("tick", "Scan tick period.").Default("1ms").Duration()
	simVersion = simCmd.Flag("version", "Firmware version reported at handshake.").Default("2.5.4.0").String()
)

func main() {
	kingpin.Version("0.1.0")
	command, err := app.Parse(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case simCmd.FullCommand():
		err = runSim(ctx)
	default:
		err = runClient(ctx, command)
	}
	if err != nil {
		kingpin.Fatalf("%s", err)
	}
}

func runClient(ctx context.Context, command string) error {
	cfg := ppmac.Load()
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *user != "" {
		cfg.Username, cfg.Password = *user, *password
	}
	cfg.LogLevel = *logLevel

	client, err := ppmac.New(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	switch command {
	case getCmd.FullCommand():
		values, err := client.GetVariables(ctx, *getNames...)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Printf("%s=%s\n", gpascii.Normalize((*getNames)[i]), v)
		}
		return nil

	case setCmd.FullCommand():
		v, err := gpascii.ParseValue(*setValue)
		if err != nil {
			return err
		}
		return client.SetVariable(ctx, *setName, v)

	case watchCmd.FullCommand():
		for r := range client.StartPolling(ctx, *watchInterval, *watchNames...) {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "poll failed: %v\n", r.Err)
				continue
			}
			if err := printJSON(r.Variables); err != nil {
				return err
			}
		}
		return nil

	case statusCmd.FullCommand():
		name := fmt.Sprintf("motor%d", *statusAxis)
		if err := client.Register(name, *statusAxis); err != nil {
			return err
		}
		st, err := client.AxisStatus(ctx, name)
		if err != nil {
			return err
		}
		return printJSON(st)

	case flyCmd.FullCommand():
		return runFly(ctx, client)
	}
	return fmt.Errorf("unknown command %q", command)
}

func runFly(ctx context.Context, client *ppmac.Client) error {
	specs := make([]axisSpec, 0, len(*flyAxes))
	for _, raw := range *flyAxes {
		spec, err := parseAxisSpec(raw)
		if err != nil {
			return err
		}
		if err := client.Register(spec.name, spec.motor); err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	for _, spec := range specs {
		ok, err := client.WaitUntilInPosition(ctx, spec.name, *flySettle)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("axis %s is not in position after %s", spec.name, *flySettle)
		}
	}

	opts := []fly.Option{
		fly.WithScanTimeout(*flyTimeout),
		fly.WithEventHandler(func(e fly.Event) {
			if e.Kind == fly.EventPoint {
				_ = printJSON(e.Point)
			}
		}),
	}

	res, err := client.FlyScan(ctx, trajectory(specs, *flyPoints, *flyVelocity, *flyAccel), opts...)
	fmt.Fprintf(os.Stderr, "scan %s: %d points\n", res.Status, len(res.Points))
	return err
}

func runSim(ctx context.Context) error {
	ctrl := sim.New(sim.WithVersion(*simVersion), sim.WithTickPeriod(*simPeriod))
	for _, motor := range *simMotors {
		ctrl.SetMotorStatus(motor, 0, 0, true, true)
	}

	l, err := net.Listen("tcp", *simListen)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	go ctrl.Run(ctx, *simPeriod)

	motors := make([]string, 0, len(*simMotors))
	for _, m := range *simMotors {
		motors = append(motors, fmt.Sprint(m))
	}
	fmt.Fprintf(os.Stderr, "simulated controller on %s, motors %s\n", l.Addr(), strings.Join(motors, ","))
	return ctrl.Serve(l)
}

func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
