/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/clerkwell/paperwork-hub/internal/config"
	"github.com/clerkwell/paperwork-hub/internal/extraction"
	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/pdf"
)

func main() {
	// A .env file is a development convenience; absence is not an error.
	godotenv.Load()

	var (
		action    = flag.String("action", "list", "Action to perform: list, show, fill, pdf")
		formType  = flag.String("type", "", "Form type for show, fill and pdf actions")
		notePath  = flag.String("note", "", "Path to a clinical note text file (requires OPENAI_API_KEY)")
		candsPath = flag.String("candidates", "", "Path to a JSON array of extraction candidates for offline filling")
		outPath   = flag.String("out", "", "Output path for the pdf action (default <type>.pdf)")
		format    = flag.String("format", "table", "Output format for list and show: table, json")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	cli, err := newFormsCLI(*format, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	switch *action {
	case "list":
		err := cli.listTemplates()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "show":
		if *formType == "" {
			fmt.Fprintf(os.Stderr, "Error: form type required for show action\n")
			os.Exit(1)
		}
		err := cli.showTemplate(*formType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "fill":
		if *formType == "" {
			fmt.Fprintf(os.Stderr, "Error: form type required for fill action\n")
			os.Exit(1)
		}
		err := cli.fillForm(*formType, *notePath, *candsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "pdf":
		if *formType == "" {
			fmt.Fprintf(os.Stderr, "Error: form type required for pdf action\n")
			os.Exit(1)
		}
		err := cli.renderPDF(*formType, *notePath, *candsPath, *outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %s\n", *action)
		fmt.Fprintf(os.Stderr, "Valid actions: list, show, fill, pdf\n")
		os.Exit(1)
	}
}

// FormsCLI runs the form engine in-process, no hub required.
type FormsCLI struct {
	cfg       *config.Config
	registry  *forms.Registry
	mapper    *forms.Mapper
	evaluator *forms.Evaluator
	builder   *forms.Builder
	format    string
	verbose   bool
}

func newFormsCLI(format string, verbose bool) (*FormsCLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logLevel := "warn"
	if verbose {
		logLevel = "debug"
	}
	if err := logging.InitializeWithConfig(logging.LogConfig{Level: logLevel, Format: "console"}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	registry := forms.NewRegistry()
	if err := forms.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("failed to register templates: %w", err)
	}

	return &FormsCLI{
		cfg:       cfg,
		registry:  registry,
		mapper:    forms.NewMapper(cfg.Mapping.FuzzyMatchThreshold),
		evaluator: forms.NewEvaluator(cfg.Mapping.AcceptanceConfidence),
		builder:   forms.NewBuilder(registry),
		format:    format,
		verbose:   verbose,
	}, nil
}

func (c *FormsCLI) listTemplates() error {
	types := c.registry.Types()

	if c.format == "json" {
		schemas := make([]*forms.FormSchema, 0, len(types))
		for _, formType := range types {
			schema, err := c.registry.Get(formType)
			if err != nil {
				continue
			}
			schemas = append(schemas, schema)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(schemas)
	}

	// Table format
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tVERSION\tFIELDS\tREQUIRED")
	fmt.Fprintln(w, "----\t----\t-------\t------\t--------")

	for _, formType := range types {
		schema, err := c.registry.Get(formType)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
			schema.FormType,
			schema.Name,
			schema.Version,
			len(schema.Fields),
			len(schema.RequiredFieldIDs()),
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	fmt.Printf("\nTotal: %d templates\n", len(types))
	return nil
}

func (c *FormsCLI) showTemplate(formType string) error {
	schema, err := c.registry.Get(formType)
	if err != nil {
		return err
	}

	if c.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(schema)
	}

	fmt.Printf("Template Information:\n")
	fmt.Printf("  Type:     %s\n", schema.FormType)
	fmt.Printf("  Name:     %s\n", schema.Name)
	fmt.Printf("  Version:  %d\n", schema.Version)
	fmt.Printf("  Fields:   %d (%d required)\n\n", len(schema.Fields), len(schema.RequiredFieldIDs()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTYPE\tREQUIRED\tSYNONYMS")
	fmt.Fprintln(w, "--\t-----\t----\t--------\t--------")

	for _, field := range schema.Fields {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			field.ID,
			field.Label,
			field.Type,
			formatBool(field.Required),
			strings.Join(field.Synonyms, ", "),
		)
	}

	return w.Flush()
}

// fillOutcome is the printed result of a fill or pdf run.
type fillOutcome struct {
	Instance  *forms.FormInstance `json:"instance"`
	Report    forms.Report        `json:"report"`
	FollowUps []string            `json:"follow_ups"`
}

func (c *FormsCLI) fillForm(formType, notePath, candsPath string) error {
	outcome, err := c.runFill(formType, notePath, candsPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(outcome)
}

func (c *FormsCLI) renderPDF(formType, notePath, candsPath, outPath string) error {
	outcome, err := c.runFill(formType, notePath, candsPath)
	if err != nil {
		return err
	}

	schema, err := c.registry.Get(formType)
	if err != nil {
		return err
	}

	data, err := pdf.NewRenderer().RenderForm(schema, outcome.Instance, pdf.Options{IncludeSignature: true})
	if err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}

	if outPath == "" {
		outPath = formType + ".pdf"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	fmt.Printf("PDF written to %s (%d bytes, completeness %.2f)\n",
		outPath, len(data), outcome.Report.Score)
	return nil
}

// runFill resolves candidates from a file or a note and pushes them through
// the map, evaluate, build pipeline.
func (c *FormsCLI) runFill(formType, notePath, candsPath string) (*fillOutcome, error) {
	schema, err := c.registry.Get(formType)
	if err != nil {
		return nil, err
	}

	candidates, err := c.resolveCandidates(schema, notePath, candsPath)
	if err != nil {
		return nil, err
	}

	mapped := c.mapper.Map(candidates, schema)
	report := c.evaluator.Evaluate(mapped, schema)
	followUps := c.evaluator.FollowUps(schema, report.MissingRequired, c.cfg.Mapping.MaxFollowUps)

	instance, err := c.builder.Build(formType, schema.Version, mapped, report)
	if err != nil {
		return nil, err
	}

	if c.verbose {
		fmt.Fprintf(os.Stderr, "Mapped %d candidates onto %s v%d: score %.2f, %d required missing\n",
			len(candidates), formType, schema.Version, report.Score, len(report.MissingRequired))
	}

	return &fillOutcome{Instance: instance, Report: report, FollowUps: followUps}, nil
}

func (c *FormsCLI) resolveCandidates(schema *forms.FormSchema, notePath, candsPath string) ([]forms.Candidate, error) {
	switch {
	case candsPath != "":
		data, err := os.ReadFile(candsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidates file: %w", err)
		}
		var candidates []forms.Candidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return nil, fmt.Errorf("failed to parse candidates file: %w", err)
		}
		return candidates, nil

	case notePath != "":
		if c.cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required to extract from a note; use -candidates for offline filling")
		}

		data, err := os.ReadFile(notePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read note file: %w", err)
		}

		client, err := extraction.NewClient(extraction.Config{
			APIKey:          c.cfg.OpenAI.APIKey,
			BaseURL:         c.cfg.OpenAI.BaseURL,
			Model:           c.cfg.OpenAI.ExtractionModel,
			Temperature:     c.cfg.OpenAI.Temperature,
			MaxOutputTokens: int64(c.cfg.OpenAI.MaxOutputTokens),
			Timeout:         c.cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create extraction client: %w", err)
		}

		labels := make([]string, 0, len(schema.Fields))
		for _, field := range schema.Fields {
			labels = append(labels, field.Label)
		}

		result, err := client.Extract(context.Background(), string(data), labels)
		if err != nil {
			return nil, fmt.Errorf("extraction failed: %w", err)
		}
		if c.verbose {
			fmt.Fprintf(os.Stderr, "Extracted %d candidates with %s\n", len(result.Candidates), result.Model)
		}
		return result.Candidates, nil

	default:
		return nil, fmt.Errorf("either -note or -candidates is required")
	}
}

func formatBool(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
