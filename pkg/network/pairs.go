package network

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NormalizeDate converts a 6- or 8-digit date string to YYYYMMDD.
// Two-digit years above 30 are taken as 19xx, the rest as 20xx.
func NormalizeDate(d string) (string, error) {
	switch len(d) {
	case 8:
		return d, nil
	case 6:
		yy, err := strconv.Atoi(d[:2])
		if err != nil {
			return "", fmt.Errorf("malformed date %q", d)
		}
		if yy > 30 {
			return "19" + d, nil
		}
		return "20" + d, nil
	default:
		return "", fmt.Errorf("malformed date %q", d)
	}
}

// SplitPair splits a date12 key into its master and secondary dates.
func SplitPair(key string) (master, secondary string, err error) {
	m, s, ok := strings.Cut(key, "_")
	if !ok {
		return "", "", fmt.Errorf("malformed pair key %q", key)
	}
	return m, s, nil
}

// NormalizePair converts a pair token (master_secondary or
// master-secondary, 6- or 8-digit dates) to the canonical date12 key.
func NormalizePair(token string) (string, error) {
	sep := "_"
	if !strings.Contains(token, "_") {
		sep = "-"
	}
	parts := strings.Split(token, sep)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed pair token %q", token)
	}
	m, err := NormalizeDate(parts[0])
	if err != nil {
		return "", err
	}
	s, err := NormalizeDate(parts[1])
	if err != nil {
		return "", err
	}
	return m + "_" + s, nil
}

// ReadBaselineList parses a flat baseline-list file: one acquisition per
// line, whitespace columns, date first and perpendicular baseline second.
// Blank lines and # comments are skipped; order is file order.
func ReadBaselineList(path string) (dates []string, pbase []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("%s:%d: expected date and baseline columns", path, lineNo)
		}
		date, err := NormalizeDate(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		bp, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: baseline: %w", path, lineNo, err)
		}
		dates = append(dates, date)
		pbase = append(pbase, bp)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return dates, pbase, nil
}

// ReadPairList parses a flat pair-list file: one date12 token per line,
// first column only, blank lines and # comments skipped.
func ReadPairList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, err := NormalizePair(strings.Fields(line)[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		pairs = append(pairs, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// WritePairList writes pair keys to a text file, one per line, in the
// given order. Used as an optional side artifact of a load; it has no
// influence on the in-memory model.
func WritePairList(path string, pairs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range pairs {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return w.Flush()
}
