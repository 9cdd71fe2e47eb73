// Command demo drives two machines: a traffic light pumped by a ticker, and the
// pocket calculator fed from the command line.
//
// Configuration is read from the YAML file named by VERTEXFSM_CONFIG (optional)
// and VERTEXFSM_* environment overrides, including those in ./.env.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/comalice/vertexfsm"
	"github.com/comalice/vertexfsm/examples/calculator"
	"github.com/comalice/vertexfsm/internal/extensibility"
	"github.com/comalice/vertexfsm/internal/production"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
)

type timer struct{ At time.Time }

func (timer) EventType() vertexfsm.EventType { return "TIMER" }

func trafficLight(cfg vertexfsm.StateMachineConfig, logger *slog.Logger) (*vertexfsm.Definition[light, int, timer], error) {
	count := extensibility.LoggingAction[int, timer](logger, "count-cycle",
		func(_ context.Context, _ timer, store *vertexfsm.ExtendedStateStore[int]) (vertexfsm.ActionResult[int, timer], error) {
			return vertexfsm.ActionResult[int, timer]{ExtendedState: store.Read() + 1}, nil
		})
	return vertexfsm.NewBuilder[light, int, timer]().
		StartingState(red).
		StartingExtendedState(0).
		WithConfig(cfg).
		State(red).On("TIMER", green, nil).UponArrival(count).Done().
		State(green).On("TIMER", yellow, nil).Done().
		State(yellow).On("TIMER", red, nil).Done().
		Build()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func run() error {
	var dotenv []string
	if _, err := os.Stat(".env"); err == nil {
		dotenv = append(dotenv, ".env")
	}
	cfg, err := vertexfsm.LoadConfig(os.Getenv("VERTEXFSM_CONFIG"), dotenv...)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	vertexfsm.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		return calculate(ctx, cfg, strings.Join(os.Args[1:], " "))
	}
	return traffic(ctx, cfg, logger)
}

func calculate(ctx context.Context, cfg vertexfsm.StateMachineConfig, input string) error {
	def, err := calculator.Definition(cfg)
	if err != nil {
		return err
	}
	m, err := vertexfsm.New(def)
	if err != nil {
		return err
	}
	if err := m.ProcessEvent(ctx, calculator.OnC{}); err != nil {
		return err
	}
	if err := calculator.Press(ctx, m, input); err != nil {
		return err
	}
	d := m.CurrentExtendedState()
	fmt.Printf("%s = %s (state %s)\n", input, d.Operand1, m.CurrentState())
	return nil
}

func traffic(ctx context.Context, cfg vertexfsm.StateMachineConfig, logger *slog.Logger) error {
	def, err := trafficLight(cfg, logger)
	if err != nil {
		return err
	}

	records := make(chan vertexfsm.TransitionRecord, 100)
	channel := production.NewChannelPublisher(records)
	journal, err := production.NewFileRecordWriter(os.TempDir(), "traffic-light", production.FormatJSON)
	if err != nil {
		return err
	}
	defer journal.Close()

	m, err := vertexfsm.New(def,
		vertexfsm.WithLogger(logger),
		vertexfsm.WithMachineID("traffic-light"),
		vertexfsm.WithPublisher(production.MultiPublisher{channel, journal}),
	)
	if err != nil {
		return err
	}
	defer m.Stop()

	ticker := extensibility.NewTickerEventSource(500*time.Millisecond, func(now time.Time) timer { return timer{At: now} })
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- extensibility.Pump[timer](ctx, ticker, m, logger, nil) }()

	for cycles := 0; cycles < 12; {
		select {
		case rec := <-records:
			cycles++
			fmt.Printf("\n--- Transition %d ---\n", cycles)
			fmt.Printf("%s -> %s (%s), cycles completed: %d\n", rec.From, rec.To, rec.EventType, m.CurrentExtendedState())
			fmt.Print(production.ExportDOT(def, []light{m.CurrentState()}))
		case err := <-pumpErr:
			return err
		case <-ctx.Done():
			fmt.Println("\nShutting down gracefully...")
			return nil
		}
	}
	fmt.Println("Demo complete after 12 transitions.")
	return nil
}
