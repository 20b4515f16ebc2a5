// Command blinky-bench runs the blinker firmware against a simulated
// ATmega328P and publishes the LED edges it produces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sweeney/ctc-blinky/internal/blink"
	"github.com/sweeney/ctc-blinky/internal/gpio"
	"github.com/sweeney/ctc-blinky/internal/hw"
	"github.com/sweeney/ctc-blinky/internal/monitor"
	"github.com/sweeney/ctc-blinky/internal/mqtt"
	"github.com/sweeney/ctc-blinky/internal/sim"
	"github.com/sweeney/ctc-blinky/internal/status"
	"github.com/sweeney/ctc-blinky/internal/web"
)

var errAckPolicy = errors.New("unknown ack policy")

type options struct {
	broker    string
	httpAddr  string
	gpioChip  string
	gpioLine  int
	heartbeat time.Duration
	step      time.Duration
	ack       string
}

func main() {
	var opts options
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.gpioChip, "gpio-chip", gpio.DefaultChip, "GPIO chip for the LED mirror")
	flag.IntVar(&opts.gpioLine, "gpio-line", gpio.DefaultLine, "GPIO line for the LED mirror (-1 to disable)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&opts.step, "step", 10*time.Millisecond, "Simulation step")
	flag.StringVar(&opts.ack, "ack", blink.AckHardware.String(), "Compare-match acknowledge policy (hardware|explicit)")

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(opts, logger.Sugar()); err != nil {
		logger.Sugar().Fatalw("fatal", "error", err)
	}
}

func run(opts options, logger *zap.SugaredLogger) (err error) {
	ack, ok := blink.ParseAckPolicy(opts.ack)
	if !ok {
		return fmt.Errorf("%w: %q", errAckPolicy, opts.ack)
	}
	if opts.step <= 0 {
		return fmt.Errorf("step must be positive, got %v", opts.step)
	}

	clk := clock.New()
	cfg := blink.DefaultConfig()
	cfg.Ack = ack

	tracker := status.NewTracker(clk.Now(), status.Config{
		ClockHz:     blink.ClockHz,
		Prescaler:   blink.Prescaler,
		Threshold:   cfg.Threshold,
		Ack:         ack.String(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		GPIOLine:    opts.gpioLine,
	})

	b := &bench{
		logger:    logger,
		tracker:   tracker,
		heartbeat: opts.heartbeat,
	}

	if opts.gpioLine >= 0 {
		w, gerr := gpio.NewRealWriter(opts.gpioChip, opts.gpioLine)
		if gerr != nil {
			return fmt.Errorf("init gpio: %w", gerr)
		}
		defer func() { err = multierr.Append(err, w.Close()) }()
		b.led = w
	}

	if opts.broker != "" {
		p, perr := mqtt.NewRealPublisher(opts.broker, logger)
		if perr != nil {
			return fmt.Errorf("init mqtt: %w", perr)
		}
		defer func() { err = multierr.Append(err, p.Close()) }()
		b.publisher = p
		b.mqttStatus = p
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warnw("http server error", "error", err)
			}
		}()
		defer func() { err = multierr.Append(err, srv.Shutdown(context.Background())) }()
		logger.Infow("http status server listening", "addr", opts.httpAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	reason := watchSignals(sigCh, cancel, logger)

	b.reset(clk.Now(), cfg)
	logger.Infow("started",
		"threshold", cfg.Threshold,
		"prescaler", blink.Prescaler,
		"period", blink.Period(blink.ClockHz, blink.Prescaler, cfg.Threshold),
		"ack", ack,
		"step", opts.step,
		"broker", opts.broker,
		"heartbeat", opts.heartbeat)

	b.runLoop(sim.NewRunner(ctx, b.m, clk, opts.step))

	r := "UNKNOWN"
	select {
	case r = <-reason:
	default:
	}
	b.shutdown(clk.Now(), r)
	return nil
}

// watchSignals cancels the run on the first signal and reports its name.
func watchSignals(sig <-chan os.Signal, cancel context.CancelFunc, logger *zap.SugaredLogger) <-chan string {
	reason := make(chan string, 1)
	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		logger.Infow("shutting down", "signal", s)
		reason <- signalName(s)
		cancel()
	}()
	return reason
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// bench wires the simulated part to the outputs. Everything except the
// tracker runs on the simulation goroutine.
type bench struct {
	logger     *zap.SugaredLogger
	tracker    *status.Tracker
	led        gpio.Writer           // nil = mirror disabled
	publisher  mqtt.Publisher        // nil = MQTT disabled
	mqttStatus mqtt.ConnectionStatus // nil = MQTT disabled
	heartbeat  time.Duration

	m     *sim.Machine
	ctrl  *blink.Controller
	mon   *monitor.Monitor
	start time.Time // wall time of the simulated reset
}

// reset powers up a fresh part, runs the firmware init sequence on it
// and publishes STARTUP. The LED going high during init is the
// monitor's baseline.
func (b *bench) reset(now time.Time, cfg blink.Config) {
	b.start = now
	b.mon = monitor.NewMonitor(now)
	b.m = sim.NewMachine(blink.ClockHz)
	b.ctrl = blink.NewController(b.m.Regs, b.m.IRQ, cfg)
	b.m.Attach(hw.VectorTimer1CompA, b.ctrl.HandleCompareMatch)
	b.m.OnPinChange(b.onEdge)

	b.ctrl.Init()
	b.refresh()

	b.publishSystem(now, "STARTUP", "", true)
}

// stepWaiter runs after once every time the wrapped waiter returns.
type stepWaiter struct {
	blink.Waiter
	after func()
}

func (w stepWaiter) Wait() bool {
	if !w.Waiter.Wait() {
		return false
	}
	w.after()
	return true
}

// runLoop idles the firmware on w until w stops.
func (b *bench) runLoop(w blink.Waiter) {
	blink.Idle(stepWaiter{Waiter: w, after: b.step})
}

// step runs between simulation slices.
func (b *bench) step() {
	now := b.simNow()
	if hb := b.mon.CheckHeartbeat(now, b.heartbeat); hb != nil {
		b.logger.Infow("heartbeat",
			"uptime", hb.Uptime,
			"rises", hb.Counts.Rises,
			"falls", hb.Counts.Falls,
			"last_half_period", hb.Stats.Last,
			"storms", b.m.Storms())
		b.refresh()
		b.publishSystem(hb.Timestamp, "HEARTBEAT", "", false)
	}
	b.refresh()
}

func (b *bench) simNow() time.Time {
	return b.start.Add(b.m.Elapsed())
}

func (b *bench) onEdge(e sim.Edge) {
	t := b.start.Add(e.Elapsed)

	if b.led != nil {
		if err := b.led.Set(e.Level); err != nil {
			b.logger.Warnw("gpio write error", "error", err)
		}
	}

	for _, ev := range b.mon.Process(monitor.Sample{Level: e.Level, Time: t}) {
		b.logger.Debugw("edge", "event", ev.Type, "seq", ev.Seq, "half_period", ev.HalfPeriod)
		if b.publisher == nil {
			continue
		}
		if err := b.publisher.Publish(ev); err != nil {
			// Don't crash on publish failure
			b.logger.Warnw("publish error", "error", err)
		}
	}
}

// refresh copies monitor and machine state into the tracker.
func (b *bench) refresh() {
	b.tracker.Update(b.mon.CurrentLevel(), b.mon.IsBaselined(), b.mon.CountsSnapshot(), b.mon.StatsSnapshot())
	b.tracker.SetTimer(status.Timer{
		Matches:  b.m.Matches(),
		Serviced: b.m.Serviced(),
		Storms:   b.m.Storms(),
		Elapsed:  b.m.Elapsed(),
	})
	if b.mqttStatus != nil {
		b.tracker.SetMQTTConnected(b.mqttStatus.IsConnected())
	}
}

func (b *bench) shutdown(now time.Time, reason string) {
	b.refresh()
	b.publishSystem(now, "SHUTDOWN", reason, true)
}

func (b *bench) publishSystem(now time.Time, event, reason string, retained bool) {
	if b.publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(b.tracker.Snapshot(), event, reason),
	}
	if err := b.publisher.PublishSystem(ev); err != nil {
		b.logger.Warnw("failed to publish system event", "event", event, "error", err)
		return
	}
	b.logger.Infow("published system event", "event", event)
}
