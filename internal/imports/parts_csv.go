package imports

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

var partColumns = []string{
	"oem_part_number",
	"vendor_part_number",
	"description",
	"category",
	"unit_cost",
	"quantity",
	"reorder_threshold",
	"consumable",
}

var requiredColumns = []string{"oem_part_number", "description"}

// RowError describes why one input line was rejected.
type RowError struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}

// ParsedPart is a validated row ready to be inserted.
type ParsedPart struct {
	Line int
	Part models.Part
}

// Result reports the outcome of an import run.
type Result struct {
	Parsed   int        `json:"parsed"`
	Created  int        `json:"created"`
	Rejected []RowError `json:"rejected"`
	DryRun   bool       `json:"dry_run"`
}

// ParseParts reads a header row followed by data rows. Fields are split on
// every comma; quoted fields are not supported.
func ParseParts(r io.Reader) ([]ParsedPart, []RowError, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	var header map[string]int
	for header == nil {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("csv has no header row")
		}
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parsed, err := parseHeader(text)
		if err != nil {
			return nil, nil, err
		}
		header = parsed
	}

	parts := []ParsedPart{}
	rejected := []RowError{}
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		part, rowErrs := parseRow(lineNo, splitFields(text), header)
		if len(rowErrs) > 0 {
			rejected = append(rejected, rowErrs...)
			continue
		}
		parts = append(parts, ParsedPart{Line: lineNo, Part: part})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return parts, rejected, nil
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseHeader(line string) (map[string]int, error) {
	known := make(map[string]bool, len(partColumns))
	for _, c := range partColumns {
		known[c] = true
	}
	header := map[string]int{}
	for i, name := range splitFields(line) {
		name = strings.ToLower(name)
		if !known[name] {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		header[name] = i
	}
	for _, c := range requiredColumns {
		if _, ok := header[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}
	return header, nil
}

func parseRow(line int, fields []string, header map[string]int) (models.Part, []RowError) {
	get := func(col string) string {
		idx, ok := header[col]
		if !ok || idx >= len(fields) {
			return ""
		}
		return fields[idx]
	}
	var errs []RowError
	reject := func(field, reason string) {
		errs = append(errs, RowError{Line: line, Field: field, Reason: reason})
	}

	part := models.Part{
		OEMPartNumber: get("oem_part_number"),
		Description:   get("description"),
		Category:      get("category"),
		UnitCost:      decimal.Zero,
	}
	if part.OEMPartNumber == "" {
		reject("oem_part_number", "required")
	}
	if part.Description == "" {
		reject("description", "required")
	}
	if v := get("vendor_part_number"); v != "" {
		part.VendorPartNumber = &v
	}
	if v := get("unit_cost"); v != "" {
		cost, err := decimal.NewFromString(v)
		switch {
		case err != nil:
			reject("unit_cost", "not a decimal number")
		case cost.IsNegative():
			reject("unit_cost", "cannot be negative")
		default:
			part.UnitCost = cost
		}
	}
	part.Quantity = parseCount(get("quantity"), "quantity", reject)
	part.ReorderThreshold = parseCount(get("reorder_threshold"), "reorder_threshold", reject)
	if v := get("consumable"); v != "" {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			reject("consumable", "must be true or false")
		}
		part.Consumable = b
	}
	return part, errs
}

func parseCount(v, field string, reject func(field, reason string)) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		reject(field, "not an integer")
		return 0
	}
	if n < 0 {
		reject(field, "cannot be negative")
		return 0
	}
	return n
}

type partCreator interface {
	Create(ctx context.Context, part *models.Part) (*models.Part, error)
}

// ImportParts parses r and creates every valid row unless dryRun is set.
// A failed insert is reported against its line and does not stop the run.
func ImportParts(ctx context.Context, r io.Reader, repo partCreator, dryRun bool) (*Result, error) {
	parsed, rejected, err := ParseParts(r)
	if err != nil {
		return nil, err
	}
	result := &Result{Parsed: len(parsed), Rejected: rejected, DryRun: dryRun}
	if dryRun {
		return result, nil
	}
	for i := range parsed {
		part := parsed[i].Part
		if _, err := repo.Create(ctx, &part); err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: parsed[i].Line, Reason: err.Error()})
			continue
		}
		result.Created++
	}
	return result, nil
}
