package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/money"
	"github.com/vbonduro/mahrfyi/internal/stats"
	"github.com/vbonduro/mahrfyi/internal/store"
)

type submissionReader interface {
	Count(ctx context.Context) (int, error)
	DateRange(ctx context.Context) (oldest, newest time.Time, err error)
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Submission, error)
}

type auditor struct {
	submissions submissionReader
	resolver    *location.Resolver
	samples     int
	// since limits the relocation scan to newer rows; zero scans everything.
	since time.Time
}

// relocation is a stored location that the current tables map elsewhere.
type relocation struct {
	Stored  string
	Current string
}

func (a *auditor) run(ctx context.Context, w io.Writer) error {
	total, err := a.submissions.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Submissions: %s\n", humanize.Comma(int64(total)))
	if total == 0 {
		return nil
	}

	oldest, newest, err := a.submissions.DateRange(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Oldest:      %s (%s)\n", oldest.Format(time.RFC3339), humanize.Time(oldest))
	fmt.Fprintf(w, "Newest:      %s (%s)\n", newest.Format(time.RFC3339), humanize.Time(newest))

	if a.samples > 0 {
		latest, err := a.submissions.List(ctx, store.ListFilter{Limit: a.samples})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nLatest %d:\n", len(latest))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tASSET\tVALUE\tLOCATION\tCOUNTRY")
		for _, sub := range latest {
			value := "-"
			if v, ok := sub.Value(); ok {
				value = money.FormatAmount(v, sub.Currency())
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				sub.CreatedAt.Format(time.DateOnly), sub.AssetType, value, sub.Location, orDash(sub.CountryCode))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	subs, err := a.submissions.List(ctx, store.ListFilter{Since: a.since})
	if err != nil {
		return err
	}
	if !a.since.IsZero() {
		fmt.Fprintf(w, "\nChecking %s submissions since %s.\n", humanize.Comma(int64(len(subs))), a.since.Format(time.RFC3339))
	}

	moved := a.relocations(ctx, subs)
	if len(moved) == 0 {
		fmt.Fprintln(w, "\nAll stored locations match the current tables.")
		return nil
	}
	fmt.Fprintf(w, "\nLocations the current tables bucket differently (%d):\n", len(moved))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORED\tCURRENT\tROWS")
	for _, c := range moved {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Value.Stored, c.Value.Current, c.N)
	}
	return tw.Flush()
}

// relocations returns, per stored/current pair, how many rows would move.
// Inputs the tables still cannot place are left out.
func (a *auditor) relocations(ctx context.Context, subs []*domain.Submission) []stats.Count[relocation] {
	var moved []relocation
	for _, sub := range subs {
		raw := sub.RawLocation
		if raw == "" {
			raw = sub.Location
		}
		res := a.resolver.Resolve(ctx, raw)
		if !res.Resolved() || res.Canonical == sub.Location {
			continue
		}
		moved = append(moved, relocation{Stored: sub.Location, Current: res.Canonical})
	}
	counts := stats.Tally(moved)
	slices.SortStableFunc(counts, func(x, y stats.Count[relocation]) int {
		if c := cmp.Compare(y.N, x.N); c != 0 {
			return c
		}
		return cmp.Compare(x.Value.Stored, y.Value.Stored)
	})
	return counts
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
