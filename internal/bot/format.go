package bot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
	"github.com/alnkravchenko/tracking-bot/internal/workflow"
)

// mention renders a person as "@handle" or a plain id reference.
func mention(p *model.Person) string {
	if p.Handle != "" {
		return "@" + p.Handle
	}
	return fmt.Sprintf("%s [%d]", p.Name, p.ID)
}

// formatHeldEquipment lists items with the date each was picked up.
func formatHeldEquipment(ctx context.Context, db *sql.DB, items []model.Equipment) string {
	if len(items) == 0 {
		return "You are not holding any equipment."
	}

	var b strings.Builder
	for _, eq := range items {
		since, err := store.LatestHolderSince(ctx, db, eq.ID)
		if err == nil && since != nil {
			fmt.Fprintf(&b, "%s — since %s\n", eq.Name, since.Format("02.01.2006"))
		} else {
			fmt.Fprintf(&b, "%s\n", eq.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatHistory renders ledger entries, newest first.
func formatHistory(entries []model.HistoryEntry) string {
	var b strings.Builder
	for _, h := range entries {
		fmt.Fprintf(&b, "%s — %s — %s\n",
			h.RecordedAt.Format("02.01.2006"), h.EquipmentName, h.HolderName)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatReport renders a batch report for the requester or an admin,
// listing the resolved items and calling out any that failed.
func formatReport(header string, report *workflow.BatchReport) string {
	var b strings.Builder
	b.WriteString(header)
	for _, item := range report.Resolved {
		fmt.Fprintf(&b, "\n%s", item.EquipmentName)
	}
	if len(report.Failed) > 0 {
		b.WriteString("\n\nThese items could not be processed:")
		for _, item := range report.Failed {
			fmt.Fprintf(&b, "\n%s — %s", item.EquipmentName, item.Err)
		}
	}
	return b.String()
}

// parsePeriod extracts two inclusive dates from a message like
// "10.06.2024\n12.06.2024" (whitespace-separated, dd.mm.yyyy).
func parsePeriod(text string) (time.Time, time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected two dates, got %d values", len(fields))
	}

	from, err := time.Parse("02.01.2006", fields[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing start date: %w", err)
	}
	to, err := time.Parse("02.01.2006", fields[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing end date: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date is before start date")
	}
	return from, to, nil
}
