package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dukex/flowbuilder/pkg/cmd"
	"github.com/dukex/flowbuilder/pkg/eventbus"
	"github.com/dukex/flowbuilder/pkg/events"
	"github.com/dukex/flowbuilder/pkg/log"
	"github.com/urfave/cli/v3"
)

// ErrUnsupportedWatchBus is returned for buses other processes cannot publish to.
var ErrUnsupportedWatchBus = errors.New("watch needs a shared event bus")

func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Log flow lifecycle events as they are published",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type; only kafka is shared between processes",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := log.FromContext(ctx).With("action", "watch")

			provider := command.String("event-bus")
			if provider != "kafka" {
				return fmt.Errorf("%w: %q cannot reach other processes, use kafka", ErrUnsupportedWatchBus, provider)
			}

			bus, err := cmd.NewEventBus(provider, command.String("kafka-brokers"), "flowbuilder-watch", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			err = registerEventLoggers(bus)
			if err != nil {
				return err
			}

			err = bus.Subscribe(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Watching flow events", "topic", events.Topic)

			<-ctx.Done()

			return nil
		},
	}
}

// registerEventLoggers logs every flow lifecycle event through the context logger.
func registerEventLoggers(bus eventbus.EventSubscriber) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.FlowSavedEvent: func(ctx context.Context, event any) error {
			saved := event.(*events.FlowSaved)
			log.FromContext(ctx).InfoContext(ctx, "Flow saved",
				"flow_id", saved.FlowID, "name", saved.FlowName, "nodes", saved.NodeCount, "edges", saved.EdgeCount)

			return nil
		},
		events.FlowSaveRejectedEvent: func(ctx context.Context, event any) error {
			rejected := event.(*events.FlowSaveRejected)
			log.FromContext(ctx).WarnContext(ctx, "Flow save rejected",
				"flow_id", rejected.FlowID, "terminal_nodes", rejected.TerminalNodeIDs)

			return nil
		},
		events.FlowDeletedEvent: func(ctx context.Context, event any) error {
			deleted := event.(*events.FlowDeleted)
			log.FromContext(ctx).InfoContext(ctx, "Flow deleted", "flow_id", deleted.FlowID)

			return nil
		},
	}

	for eventType, handler := range handlers {
		err := bus.Handle(eventType, handler)
		if err != nil {
			return err
		}
	}

	return nil
}
