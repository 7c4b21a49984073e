/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-floodgate/config"
	"github.com/acronis/go-floodgate/floodgate"
	"github.com/acronis/go-floodgate/internal/bench"
)

type report struct {
	RunID    string         `yaml:"runId"`
	Settings reportSettings `yaml:"settings"`
	Results  []reportResult `yaml:"results"`
}

type reportSettings struct {
	BucketDuration     config.TimeDuration `yaml:"bucketDuration"`
	WindowSize         int                 `yaml:"windowSize"`
	BucketSendLimit    int64               `yaml:"bucketSendLimit"`
	SpilloverThreshold int64               `yaml:"spilloverThreshold"`
	AttritionLogBase   int                 `yaml:"attritionLogBase"`
}

type reportResult struct {
	Scenario        string              `yaml:"scenario"`
	Limiter         string              `yaml:"limiter"`
	Calls           int64               `yaml:"calls"`
	Allowed         int64               `yaml:"allowed"`
	Suppressed      int64               `yaml:"suppressed"`
	SuppressedRatio float64             `yaml:"suppressedRatio"`
	Elapsed         config.TimeDuration `yaml:"elapsed"`
}

func newReport(runID string, cfg *floodgate.Config, results []bench.Result) report {
	rep := report{
		RunID: runID,
		Settings: reportSettings{
			BucketDuration:     config.TimeDuration(cfg.BucketDuration),
			WindowSize:         cfg.WindowSize,
			BucketSendLimit:    cfg.BucketSendLimit,
			SpilloverThreshold: cfg.SpilloverThreshold,
			AttritionLogBase:   cfg.AttritionLogBase,
		},
		Results: make([]reportResult, 0, len(results)),
	}
	for _, res := range results {
		rep.Results = append(rep.Results, reportResult{
			Scenario:        res.Scenario,
			Limiter:         res.Limiter,
			Calls:           res.Calls,
			Allowed:         res.Allowed,
			Suppressed:      res.Suppressed,
			SuppressedRatio: res.SuppressedRatio(),
			Elapsed:         config.TimeDuration(res.Elapsed),
		})
	}
	return rep
}

func renderYAML(w io.Writer, rep report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

func renderTable(w io.Writer, results []bench.Result) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Scenario", "Limiter", "Calls", "Allowed", "Suppressed", "Suppressed %", "ns/call"})

	var calls, allowed, suppressed int64
	for _, res := range results {
		t.AppendRow(table.Row{
			res.Scenario,
			res.Limiter,
			res.Calls,
			res.Allowed,
			res.Suppressed,
			fmt.Sprintf("%.2f", res.SuppressedRatio()*100),
			res.NsPerCall(),
		})
		calls += res.Calls
		allowed += res.Allowed
		suppressed += res.Suppressed
	}
	t.AppendFooter(table.Row{"Total", "", calls, allowed, suppressed, "", ""})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderScenarios(w io.Writer, scenarios []bench.Scenario, bucketDuration time.Duration) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Scenario", "Actors", "Events/s", "Buckets", "Calls", "Virtual time"})
	for _, sc := range scenarios {
		t.AppendRow(table.Row{
			sc.Name,
			sc.Actors,
			sc.EventsPerSecond,
			sc.Buckets,
			sc.Calls(bucketDuration),
			time.Duration(sc.Buckets) * bucketDuration,
		})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
