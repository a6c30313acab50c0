// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/reembed"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Embed and store passages read as JSON lines",
		ArgsUsage: "[FILE]",
		Description: `Each line is an object with "text", "origin" and "locator" fields and
optional "recency" (RFC 3339) and "quality" (0 to 1). Origin is one of
local_document, web_forum, web_documentation or web_tutorial. Reads
standard input when FILE is omitted or "-".`,
		Action: ingestAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of passages to embed per request",
				Value: ingestion.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent embedding batches",
				Value: 4,
			},
		},
	}
}

func ingestAction(c *cli.Context) error {
	var in io.Reader = c.App.Reader
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	drafts, err := readDrafts(in)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return errors.New("no passages to ingest")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Ingest(c.Context, drafts,
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("workers")))
	if report != nil {
		fmt.Fprintf(c.App.Writer, "Stored %d units, %d failed (%s)\n",
			report.Stored, report.Failed, report.Duration.Round(time.Millisecond))
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

// readDrafts decodes a stream of JSON objects, one per passage.
func readDrafts(r io.Reader) ([]ingestion.Draft, error) {
	dec := json.NewDecoder(r)
	var drafts []ingestion.Draft
	for {
		var draft ingestion.Draft
		err := dec.Decode(&draft)
		if errors.Is(err, io.EOF) {
			return drafts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", len(drafts)+1, err)
		}
		drafts = append(drafts, draft)
	}
}

func sessionFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Conversation session ID",
		Required: required,
	}
}

// sessionID returns the --session value, generating one when it is unset.
func sessionID(c *cli.Context) string {
	if id := c.String("session"); id != "" {
		return id
	}
	id := uuid.NewString()
	fmt.Fprintf(c.App.ErrWriter, "Session: %s\n", id)
	return id
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer one question",
		ArgsUsage: "QUESTION",
		Action:    askAction,
		Flags: []cli.Flag{
			sessionFlag(false),
			&cli.BoolFlag{
				Name:  "show-context",
				Usage: "Print the assembled context before the answer",
			},
		},
	}
}

func askAction(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	return ask(c, engine, sessionID(c), question)
}

func ask(c *cli.Context, engine *docent.Engine, session, question string) error {
	reply, err := engine.Ask(c.Context, session, question)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("show-context") {
		fmt.Fprintln(out, reply.Payload.Render())
	}
	fmt.Fprintln(out, reply.Text)
	if len(reply.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, source := range reply.Sources {
			fmt.Fprintf(out, "  - %s\n", source)
		}
	}
	return nil
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Ask questions interactively in one session",
		Action: chatAction,
		Flags: []cli.Flag{
			sessionFlag(false),
			&cli.BoolFlag{
				Name:  "show-context",
				Usage: "Print the assembled context before each answer",
			},
		},
	}
}

func chatAction(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	session := sessionID(c)
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(c.App.Writer, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.App.Writer)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := ask(c, engine, session, line); err != nil {
			if c.Context.Err() != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
		}
		fmt.Fprintln(c.App.Writer)
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "Print the stored turns of a session",
		Action: historyAction,
		Flags:  []cli.Flag{sessionFlag(true)},
	}
}

func historyAction(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	turns, err := engine.History(c.Context, c.String("session"))
	if err != nil {
		return err
	}
	for _, turn := range turns {
		fmt.Fprintf(c.App.Writer, "[%s] %s: %s\n", turn.Timestamp.Format(time.RFC3339), turn.Role, turn.Text)
		if len(turn.Citations) > 0 {
			ids := make([]string, len(turn.Citations))
			for i, id := range turn.Citations {
				ids[i] = id.String()
			}
			fmt.Fprintf(c.App.Writer, "    cites: %s\n", strings.Join(ids, ", "))
		}
	}
	return nil
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List stored sessions",
		Action: func(c *cli.Context) error {
			engine, err := openEngine(c)
			if err != nil {
				return err
			}
			defer engine.Close()

			ids, err := engine.SessionIDs(c.Context)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(c.App.Writer, id)
			}
			return nil
		},
	}
}

func poolFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "pool",
		Usage: "Limit to one pool (documents, web)",
	}
}

// pools parses --pool; an empty value selects every pool.
func pools(c *cli.Context) ([]core.Pool, error) {
	name := c.String("pool")
	if name == "" {
		return core.Pools, nil
	}
	pool, err := core.ParsePool(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	return []core.Pool{pool}, nil
}

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:   "rebuild",
		Usage:  "Rebuild pool indices from stored units",
		Action: rebuildAction,
		Flags:  []cli.Flag{poolFlag()},
	}
}

func rebuildAction(c *cli.Context) error {
	selected, err := pools(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	for _, pool := range selected {
		report, err := engine.Rebuild(c.Context, pool)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %d units, dimension %d (+%d -%d)\n",
			pool, report.Size, report.Dimension, len(report.Added), len(report.Removed))
	}
	return nil
}

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:   "reembed",
		Usage:  "Reembed all stored units with the configured embedding model",
		Action: reembedAction,
		Flags: []cli.Flag{
			poolFlag(),
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of units to process in each batch",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N units",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for failed operations",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "normalize",
				Usage: "Scale new vectors to unit length",
			},
		},
	}
}

func reembedAction(c *cli.Context) error {
	selected, err := pools(c)
	if err != nil {
		return err
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Normalize:      c.Bool("normalize"),
		Pools:          selected,
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	cfg := engine.Config()
	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.DatabasePath)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.Host)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	result, err := engine.Reembed(c.Context, reembedConfig, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	for _, pool := range selected {
		fmt.Fprintf(c.App.Writer, "%s: %d units reembedded\n", pool, result.Units[pool])
	}
	return nil
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of each pool index",
		Action: func(c *cli.Context) error {
			engine, err := openEngine(c)
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, status := range engine.Status() {
				state := "ok"
				if status.Faulted {
					state = "faulted, rebuild required"
				}
				fmt.Fprintf(c.App.Writer, "%-10s %6d units  dimension %-5d %s\n",
					status.Pool, status.Size, status.Dimension, state)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "write",
				Usage: "Also save the configuration to this path",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if path := c.String("write"); path != "" {
				if err := config.Save(path, cfg); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(c.App.Writer)
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
