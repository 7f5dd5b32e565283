// Package vignette loads decision scenarios from CSV datasets and
// samples working sets for simulation runs.
package vignette

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/agora-sim/agora/core"
)

// Column names recognized in a dataset header. The options column holds
// a JSON array of strings, matching the published ethics datasets.
var columnAliases = map[string]string{
	"id":                 "id",
	"vignette_id":        "id",
	"category":           "category",
	"subcategory":        "category",
	"scenario":           "scenario",
	"options":            "options",
	"ground_truth":       "ground_truth",
	"expected_reasoning": "ground_truth",
	"correct_answer":     "ground_truth",
}

// LoadFile reads every vignette from a CSV dataset on disk.
func LoadFile(path string) ([]core.Vignette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	vs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return vs, nil
}

// Load reads vignettes from CSV data. The first row is a header; column
// order is free as long as the recognized names are present. Rows that
// fail validation are rejected with their line number.
func Load(r io.Reader) ([]core.Vignette, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, name := range header {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"id", "scenario", "options", "ground_truth"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("dataset header missing %q column", required)
		}
	}

	var out []core.Vignette
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dataset contains no vignettes")
	}
	return out, nil
}

func parseRow(cols map[string]int, row []string) (core.Vignette, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	options, err := parseOptions(field("options"))
	if err != nil {
		return core.Vignette{}, err
	}
	return core.Vignette{
		ID:          field("id"),
		Category:    field("category"),
		Scenario:    field("scenario"),
		Options:     options,
		GroundTruth: field("ground_truth"),
	}, nil
}

// parseOptions accepts a JSON array of strings, or a pipe-separated
// list for hand-written datasets.
func parseOptions(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty options")
	}
	if strings.HasPrefix(raw, "[") {
		var opts []string
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return nil, fmt.Errorf("options not a JSON string array: %w", err)
		}
		return opts, nil
	}
	parts := strings.Split(raw, "|")
	opts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return opts, nil
}

// Sample draws n distinct vignettes using the given seed. If n is zero,
// negative, or larger than the pool, the whole pool is returned in its
// original order.
func Sample(vs []core.Vignette, n int, seed int64) []core.Vignette {
	if n <= 0 || n >= len(vs) {
		out := make([]core.Vignette, len(vs))
		copy(out, vs)
		return out
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(vs))[:n]
	out := make([]core.Vignette, n)
	for i, j := range idx {
		out[i] = vs[j]
	}
	return out
}
