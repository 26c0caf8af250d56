// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// ipv4Pattern is a syntactic check only; octet ranges are not validated
var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// IsIPv4 reports whether s looks like a dotted-quad address
func IsIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// Read splits newline-delimited input into IP candidates and skipped
// lines. Blank lines are ignored; lines of any length are accepted.
func Read(r io.Reader) (ips, skipped []string, err error) {
	br := bufio.NewReader(r)
	for {
		line, rerr := br.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if IsIPv4(line) {
				ips = append(ips, line)
			} else {
				skipped = append(skipped, line)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, nil, fmt.Errorf("failed to read input: %w", rerr)
		}
	}
	return ips, skipped, nil
}

// ReadFile reads IP addresses from the file at path, logging every line
// that was skipped
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	ips, skipped, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, line := range skipped {
		log.Warn().Str("line", line).Msg("skipped line (not an IP address)")
	}
	log.Info().Int("ips", len(ips)).Int("skipped", len(skipped)).Str("file", path).Msg("input read")

	return ips, nil
}

// Dedup collapses duplicate addresses, keeping the first occurrence of each
func Dedup(ips []string) []string {
	seen := make(map[string]struct{}, len(ips))
	unique := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		unique = append(unique, ip)
	}
	return unique
}
