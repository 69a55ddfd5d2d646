package diagnostics

import (
	"slices"
	"strings"
)

// Class groups services by deployment health.
type Class string

const (
	ClassFailed    Class = "failed"
	ClassSuspended Class = "suspended"
	ClassActive    Class = "active"
	ClassOther     Class = "other"
)

// EffectiveStatus is the reported status, falling back to the suspension
// flag for services the API lists without a status.
func EffectiveStatus(s Service) string {
	status := strings.ToLower(strings.TrimSpace(s.Status))
	if status == "" && strings.EqualFold(s.Suspended, "suspended") {
		return "suspended"
	}
	if status == "" {
		return "unknown"
	}
	return status
}

// Classify maps a service to its health class.
func Classify(s Service) Class {
	switch EffectiveStatus(s) {
	case "failed", "build_failed", "deploy_failed":
		return ClassFailed
	case "suspended":
		return ClassSuspended
	case "available":
		return ClassActive
	default:
		return ClassOther
	}
}

// Groups are services partitioned by class, in listing order.
type Groups struct {
	Failed    []Service
	Suspended []Service
	Active    []Service
	Other     []Service
}

// Partition splits services by Classify.
func Partition(services []Service) Groups {
	var g Groups
	for _, s := range services {
		switch Classify(s) {
		case ClassFailed:
			g.Failed = append(g.Failed, s)
		case ClassSuspended:
			g.Suspended = append(g.Suspended, s)
		case ClassActive:
			g.Active = append(g.Active, s)
		default:
			g.Other = append(g.Other, s)
		}
	}
	return g
}

// Finding is a probable root cause spotted in service logs.
type Finding string

const (
	FindingBrowser     Finding = "Playwright/Browser dependency issue detected"
	FindingMissingFile Finding = "Missing file or module dependency"
	FindingPermission  Finding = "Permission error detected"
	FindingEnv         Finding = "Environment variable issue detected"
	FindingStartCmd    Finding = "Start command issue detected"
	FindingBuild       Finding = "Build failure detected"
)

type logRule struct {
	finding Finding
	match   func(text string) bool
}

func anyOf(subs ...string) func(string) bool {
	return func(text string) bool {
		return slices.ContainsFunc(subs, func(s string) bool { return strings.Contains(text, s) })
	}
}

var logRules = []logRule{
	{FindingBrowser, anyOf("playwright", "browser")},
	{FindingMissingFile, anyOf("enoent", "cannot find module")},
	{FindingPermission, anyOf("permission denied")},
	{FindingEnv, anyOf("environment", "env")},
	{FindingStartCmd, anyOf("start command", "command not found")},
	{FindingBuild, func(text string) bool {
		return strings.Contains(text, "build") && anyOf("fail", "error")(text)
	}},
}

// ScanLogs matches the joined log messages against known failure patterns.
// Matching is case-insensitive and findings keep rule order.
func ScanLogs(entries []LogEntry) []Finding {
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i] = e.Message
	}
	text := strings.ToLower(strings.Join(msgs, " "))

	var findings []Finding
	for _, r := range logRules {
		if r.match(text) {
			findings = append(findings, r.finding)
		}
	}
	return findings
}

// MissingEnv returns the required keys absent from present, in required order.
func MissingEnv(required, present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, k := range present {
		have[k] = struct{}{}
	}
	var missing []string
	for _, k := range required {
		if _, ok := have[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Tail returns the last n entries.
func Tail(entries []LogEntry, n int) []LogEntry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
