package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowbuilder/pkg/cmd"
	"github.com/dukex/flowbuilder/pkg/flow"
	"github.com/dukex/flowbuilder/pkg/log"
	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidFlow      = errors.New("flow is invalid")
	ErrNoFlowSource     = errors.New("either --file or --database-url with --id is required")
	ErrUnreachableNodes = errors.New("flow has unreachable nodes")
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Check that a flow can be saved",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Flow document to check (.json, .yaml or .yml)",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL to load the flow from",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Flow ID to load from --database-url",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Also fail when some nodes cannot be reached from a single start node",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.FromContext(ctx).With("action", "validate")

			f, err := loadFlow(ctx, command)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Validating flow", "flow_id", f.ID, "nodes", len(f.Nodes), "edges", len(f.Edges))

			err = checkFlow(command.Root().Writer, f, command.Bool("strict"))
			if err != nil {
				logger.WarnContext(ctx, "Flow failed validation", "flow_id", f.ID, "error", err)

				return err
			}

			return nil
		},
	}
}

func loadFlow(ctx context.Context, command *cli.Command) (*models.Flow, error) {
	if path := command.String("file"); path != "" {
		return loadFlowFile(path)
	}

	databaseURL := command.String("database-url")
	id := command.String("id")

	if databaseURL == "" || id == "" {
		return nil, ErrNoFlowSource
	}

	persistence, err := cmd.NewPersistence(ctx, log.FromContext(ctx), databaseURL)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = persistence.Close(ctx)
	}()

	return persistence.FlowRepository().GetByID(ctx, id)
}

// loadFlowFile reads a flow document. YAML documents are converted to JSON
// first so both formats share the node payload decoding.
func loadFlowFile(path string) (*models.Flow, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var document map[string]any

		err = yaml.Unmarshal(body, &document)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML flow file: %w", err)
		}

		body, err = json.Marshal(document)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML flow file: %w", err)
		}
	}

	var f models.Flow

	err = json.Unmarshal(body, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}

	if f.ID == "" {
		f.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if f.Name == "" {
		f.Name = f.ID
	}

	if f.Status == "" {
		f.Status = models.FlowStatusDraft
	}

	err = validator.New(validator.WithRequiredStructEnabled()).Struct(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	return &f, nil
}

// checkFlow prints the outcome of every flow check to w.
func checkFlow(w io.Writer, f *models.Flow, strict bool) error {
	_, _ = fmt.Fprintf(w, "Flow: %s (%s)\n", f.Name, f.ID)
	_, _ = fmt.Fprintf(w, "Nodes: %d, Edges: %d\n", len(f.Nodes), len(f.Edges))

	err := flow.CheckReferences(f.Nodes, f.Edges)
	if err != nil {
		_, _ = fmt.Fprintf(w, "References: FAIL\n%v\n", err)

		return fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	_, _ = fmt.Fprintln(w, "References: OK")

	result := flow.Validate(f.Nodes, f.Edges)
	if !result.Valid {
		_, _ = fmt.Fprintf(w, "Terminal nodes: FAIL %s\n%s\n", strings.Join(result.TerminalNodeIDs, ", "), result.Message)

		return ErrInvalidFlow
	}

	_, _ = fmt.Fprintf(w, "Terminal nodes: OK %s\n", strings.Join(result.TerminalNodeIDs, ", "))

	reachability := flow.CheckReachability(f.Nodes, f.Edges)
	if !reachability.Reachable {
		_, _ = fmt.Fprintf(w, "Reachability: WARN start=%s unreachable=%s\n",
			strings.Join(reachability.StartNodeIDs, ", "),
			strings.Join(reachability.UnreachableNodeIDs, ", "),
		)

		if strict {
			return ErrUnreachableNodes
		}

		return nil
	}

	_, _ = fmt.Fprintln(w, "Reachability: OK")

	return nil
}
