package perf

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Snapshot is a serializable export of a tracker's full state for external
// reporting.
type Snapshot struct {
	TakenAt time.Time             `json:"taken_at"`
	Total   time.Duration         `json:"total_ns"`
	Stats   map[string]StageStats `json:"stats"`
	Samples []Sample              `json:"samples"`
}

// Export captures all samples and aggregates at a consistent point in time.
func (t *Tracker) Export() Snapshot {
	samples := t.Samples()
	stats := breakdownOf(samples)
	var total time.Duration
	for _, st := range stats {
		total += st.Total
	}
	return Snapshot{
		TakenAt: time.Now(),
		Total:   total,
		Stats:   stats,
		Samples: samples,
	}
}

// breakdownOf mirrors Tracker.Breakdown over an already-copied sample set so
// Export aggregates exactly the samples it ships.
func breakdownOf(samples []Sample) map[string]StageStats {
	stats := make(map[string]StageStats)
	var windowTotal time.Duration
	for _, s := range samples {
		st := stats[s.Stage]
		if st.Count == 0 || s.Duration < st.Min {
			st.Min = s.Duration
		}
		if s.Duration > st.Max {
			st.Max = s.Duration
		}
		st.Count++
		st.Total += s.Duration
		stats[s.Stage] = st
		windowTotal += s.Duration
	}
	for name, st := range stats {
		st.Mean = st.Total / time.Duration(st.Count)
		if windowTotal > 0 {
			st.Percent = float64(st.Total) / float64(windowTotal) * 100
		}
		stats[name] = st
	}
	return stats
}

// WriteJSON writes the snapshot as indented JSON.
func (t *Tracker) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Export())
}

var (
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// Render produces a proportional text bar chart of the breakdown, one line
// per stage sorted by descending total time. Zero-duration stages render a
// zero-length bar. width is the maximum bar width in cells.
func Render(breakdown map[string]StageStats, width int) string {
	if width <= 0 {
		width = 40
	}
	if len(breakdown) == 0 {
		return "no stage samples recorded"
	}

	type row struct {
		name string
		st   StageStats
	}
	rows := make([]row, 0, len(breakdown))
	nameWidth := 0
	for name, st := range breakdown {
		rows = append(rows, row{name, st})
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].st.Total != rows[j].st.Total {
			return rows[i].st.Total > rows[j].st.Total
		}
		return rows[i].name < rows[j].name
	})

	var b strings.Builder
	b.WriteString(headerStyle.Render("stage timing breakdown"))
	b.WriteByte('\n')
	var total time.Duration
	for _, r := range rows {
		barLen := int(r.st.Percent / 100 * float64(width))
		bar := strings.Repeat("█", barLen)
		pad := strings.Repeat(" ", width-barLen)
		// Pad the plain name before styling so ANSI codes don't skew alignment.
		name := labelStyle.Render(fmt.Sprintf("%-*s", nameWidth, r.name))
		fmt.Fprintf(&b, "%s |%s%s| %9.2fms (%5.1f%%)\n",
			name, barStyle.Render(bar), pad,
			float64(r.st.Total)/float64(time.Millisecond), r.st.Percent)
		total += r.st.Total
	}
	fmt.Fprintf(&b, "%-*s  %s  %9.2fms\n",
		nameWidth, "TOTAL", strings.Repeat(" ", width), float64(total)/float64(time.Millisecond))
	return b.String()
}
