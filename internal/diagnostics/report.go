package diagnostics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// API is the subset of the platform client the reports need.
type API interface {
	ListServices(ctx context.Context) ([]Service, error)
	Logs(ctx context.Context, serviceID string, limit int) ([]LogEntry, error)
	EnvVarKeys(ctx context.Context, serviceID string) ([]string, error)
	ListPostgres(ctx context.Context) ([]Datastore, error)
	ListRedis(ctx context.Context) ([]Datastore, error)
}

// RunOptions tunes the full diagnostic sequence.
type RunOptions struct {
	LogLimit  int
	TailLines int
	// RequiredEnv is checked on every listed service when non-empty.
	RequiredEnv []string
}

// Result summarizes a diagnostic run.
type Result struct {
	Groups   Groups
	Findings map[string][]Finding
	Missing  map[string][]string
	Errors   []error
}

const ruleWidth = 80

func banner(w io.Writer, title string) {
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
}

// Run lists services, analyzes logs of failed ones, lists datastores and
// checks env vars. Failures in later steps are reported and collected and the
// sequence continues. Any error from the service listing aborts the run.
func Run(ctx context.Context, api API, w io.Writer, opts RunOptions) (*Result, error) {
	if opts.TailLines <= 0 {
		opts.TailLines = 50
	}
	res := &Result{Findings: map[string][]Finding{}, Missing: map[string][]string{}}

	banner(w, "STEP 1: LISTING SERVICES")
	services, err := api.ListServices(ctx)
	if err != nil {
		fmt.Fprintf(w, "failed to list services: %v\n", err)
		return res, fmt.Errorf("list services: %w", err)
	}
	res.Groups = PrintServices(w, services)

	if len(res.Groups.Failed) > 0 {
		banner(w, fmt.Sprintf("STEP 2: ANALYZING %d FAILED SERVICE(S)", len(res.Groups.Failed)))
		for _, svc := range res.Groups.Failed {
			entries, err := api.Logs(ctx, svc.ID, opts.LogLimit)
			if err != nil {
				fmt.Fprintf(w, "failed to fetch logs for %s: %v\n", svc.Name, err)
				res.Errors = append(res.Errors, fmt.Errorf("logs %s: %w", svc.ID, err))
				continue
			}
			res.Findings[svc.ID] = PrintLogs(w, svc.Name, entries, opts.TailLines)
		}
	}

	banner(w, "STEP 3: POSTGRES INSTANCES")
	if pg, err := api.ListPostgres(ctx); err != nil {
		fmt.Fprintf(w, "failed to list postgres instances: %v\n", err)
		res.Errors = append(res.Errors, fmt.Errorf("list postgres: %w", err))
	} else {
		PrintDatastores(w, "PostgreSQL", pg)
	}

	banner(w, "STEP 4: REDIS INSTANCES")
	if rd, err := api.ListRedis(ctx); err != nil {
		fmt.Fprintf(w, "failed to list redis instances: %v\n", err)
		res.Errors = append(res.Errors, fmt.Errorf("list redis: %w", err))
	} else {
		PrintDatastores(w, "Redis", rd)
	}

	banner(w, "STEP 5: ENVIRONMENT VARIABLES")
	if len(opts.RequiredEnv) == 0 {
		fmt.Fprintln(w, "no required variables given, skipping")
		return res, nil
	}
	for _, svc := range services {
		missing, err := CheckEnv(ctx, api, w, svc, opts.RequiredEnv)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if len(missing) > 0 {
			res.Missing[svc.ID] = missing
		}
	}
	return res, nil
}

// PrintServices writes the service table and class summary.
func PrintServices(w io.Writer, services []Service) Groups {
	fmt.Fprintf(w, "found %d services\n\n", len(services))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS\tID")
	for _, s := range services {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Type, EffectiveStatus(s), s.ID)
	}
	tw.Flush()

	g := Partition(services)
	fmt.Fprintf(w, "\nactive: %d  other: %d  suspended: %d  failed: %d\n",
		len(g.Active), len(g.Other), len(g.Suspended), len(g.Failed))
	return g
}

// PrintLogs writes the tail of a service's logs followed by the findings.
func PrintLogs(w io.Writer, name string, entries []LogEntry, tail int) []Finding {
	fmt.Fprintf(w, "\nlogs for %s (%d entries)\n\n", name, len(entries))
	for _, e := range Tail(entries, tail) {
		fmt.Fprintf(w, "[%s] %s\n", e.Timestamp, e.Message)
	}

	findings := ScanLogs(entries)
	fmt.Fprintln(w, "\nroot cause analysis:")
	if len(findings) == 0 {
		fmt.Fprintln(w, "  no specific patterns detected, review logs above")
	}
	for _, f := range findings {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	return findings
}

// PrintDatastores writes one line per managed instance.
func PrintDatastores(w io.Writer, label string, stores []Datastore) {
	fmt.Fprintf(w, "found %d %s instance(s)\n\n", len(stores), label)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range stores {
		fmt.Fprintf(tw, "%s\tplan: %s\tstatus: %s\n", d.Name, orNA(d.Plan), orNA(d.Status))
	}
	tw.Flush()
}

// CheckEnv fetches a service's env var keys and reports the required ones.
func CheckEnv(ctx context.Context, api API, w io.Writer, svc Service, required []string) ([]string, error) {
	keys, err := api.EnvVarKeys(ctx, svc.ID)
	if err != nil {
		fmt.Fprintf(w, "failed to fetch env vars for %s: %v\n", svc.Name, err)
		return nil, fmt.Errorf("env vars %s: %w", svc.ID, err)
	}
	missing := MissingEnv(required, keys)

	fmt.Fprintf(w, "\n%s: checking %d required variables\n", svc.Name, len(required))
	absent := make(map[string]bool, len(missing))
	for _, k := range missing {
		absent[k] = true
	}
	for _, k := range required {
		if absent[k] {
			fmt.Fprintf(w, "  [missing] %s\n", k)
		} else {
			fmt.Fprintf(w, "  [ok] %s\n", k)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "warning: %d required variables are missing\n", len(missing))
	} else {
		fmt.Fprintln(w, "all required variables are set")
	}
	return missing, nil
}

// PrintSnapshot writes a human-readable inventory of a saved snapshot.
func PrintSnapshot(w io.Writer, snap *Snapshot) {
	banner(w, "SERVICES SUMMARY")
	fmt.Fprintf(w, "total services:       %d\n", len(snap.Services))
	fmt.Fprintf(w, "postgres instances:   %d\n", len(snap.Postgres))
	fmt.Fprintf(w, "redis instances:      %d\n\n", len(snap.Redis))

	banner(w, "SERVICE DETAILS")
	for _, s := range snap.Services {
		fmt.Fprintf(w, "\n%s\n", s.Name)
		fmt.Fprintf(w, "  ID: %s\n", s.ID)
		fmt.Fprintf(w, "  Type: %s\n", s.Type)
		fmt.Fprintf(w, "  Suspended: %s\n", orNA(s.Suspended))
		fmt.Fprintf(w, "  Region: %s\n", orNA(s.Region))
		fmt.Fprintf(w, "  Build Command: %s\n", orNA(strings.TrimSpace(s.BuildCommand)))
		fmt.Fprintf(w, "  Start Command: %s\n", orNA(strings.TrimSpace(s.StartCommand)))
		fmt.Fprintf(w, "  Dashboard: %s\n", orNA(s.DashboardURL))
	}

	fmt.Fprintln(w)
	banner(w, "DATABASE SERVICES")
	for _, pg := range snap.Postgres {
		fmt.Fprintf(w, "\nPostgreSQL: %s\n", pg.Name)
		fmt.Fprintf(w, "  ID: %s\n", pg.ID)
		fmt.Fprintf(w, "  Status: %s\n", orNA(pg.Status))
		fmt.Fprintf(w, "  Version: %s\n", orNA(pg.Version))
		fmt.Fprintf(w, "  Plan: %s\n", orNA(pg.Plan))
		fmt.Fprintf(w, "  Database: %s\n", orNA(pg.DatabaseName))
		fmt.Fprintf(w, "  User: %s\n", orNA(pg.DatabaseUser))
	}
	for _, rd := range snap.Redis {
		fmt.Fprintf(w, "\nRedis: %s\n", rd.Name)
		fmt.Fprintf(w, "  ID: %s\n", rd.ID)
		fmt.Fprintf(w, "  Status: %s\n", orNA(rd.Status))
		fmt.Fprintf(w, "  Version: %s\n", orNA(rd.Version))
		fmt.Fprintf(w, "  Plan: %s\n", orNA(rd.Plan))
		fmt.Fprintf(w, "  Policy: %s\n", orNA(rd.MaxmemoryPolicy))
	}

	fmt.Fprintln(w)
	banner(w, "SERVICE IDS FOR LOG COLLECTION")
	for _, s := range snap.Services {
		fmt.Fprintf(w, "%-35s = %s\n", s.Name, s.ID)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
