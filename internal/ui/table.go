package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/orchestrator"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	return t
}

// RenderInstances renders tracked instances. alive may be nil, in which case
// the running column is left out.
func RenderInstances(instances []orchestrator.Instance, alive func(pid uint32) bool) string {
	t := newTable()

	header := table.Row{"#", "PID", "Launched", "Mutex released", "Suspended"}
	if alive != nil {
		header = append(header, "Running")
	}

	header = append(header, "Last error")
	t.AppendHeader(header)

	for _, instance := range instances {
		suspended := boolToYesNo(instance.Suspended)
		if instance.Held {
			suspended = "held"
		}

		row := table.Row{
			instance.Index,
			instance.PID,
			instance.LaunchedAt.Local().Format(time.DateTime),
			boolToYesNo(instance.MutexReleased),
			suspended,
		}

		if alive != nil {
			row = append(row, boolToYesNo(alive(instance.PID)))
		}

		row = append(row, instance.LastError)
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d instances", len(instances))})

	return t.Render() + "\n"
}

// RenderHandles renders the resolved handles of one process. Unnamed handles
// are skipped unless all is set.
func RenderHandles(inspection *handles.Inspection, all bool) string {
	t := newTable()
	t.AppendHeader(table.Row{"Handle", "Type", "Access", "Handles", "Pointers", "Created", "Name"})

	shown := 0
	for _, info := range inspection.Resolved {
		if info.Name == nil && !all {
			continue
		}

		created := ""
		if !info.CreateTime.IsZero() {
			created = info.CreateTime.Local().Format(time.DateTime)
		}

		t.AppendRow(table.Row{
			fmt.Sprintf("0x%x", info.Record.HandleValue),
			info.Record.ObjectType,
			fmt.Sprintf("0x%08x", info.Record.GrantedAccess),
			info.HandleCount,
			info.PointerCount,
			created,
			info.NameOrEmpty(),
		})

		shown++
	}

	t.AppendFooter(table.Row{
		"",
		"",
		"",
		"",
		"",
		"",
		fmt.Sprintf("%d shown, %d resolved, %d owned by pid %d",
			shown, len(inspection.Resolved), inspection.Total, inspection.PID),
	})

	return t.Render() + "\n"
}

// RenderRelease lists every match of a release with its outcome.
func RenderRelease(release *handles.Release) string {
	t := newTable()
	t.AppendHeader(table.Row{"Handle", "Name", "Closed"})

	closed := make(map[uint64]bool, len(release.Closed))
	for _, info := range release.Closed {
		closed[info.Record.HandleValue] = true
	}

	for _, info := range release.Matches {
		t.AppendRow(table.Row{
			fmt.Sprintf("0x%x", info.Record.HandleValue),
			info.NameOrEmpty(),
			boolToYesNo(closed[info.Record.HandleValue]),
		})
	}

	return t.Render() + "\n"
}

// RenderProfiles renders name, mutex and executable of each profile.
func RenderProfiles(rows [][3]string) string {
	t := newTable()
	t.AppendHeader(table.Row{"Profile", "Mutex", "Executable"})

	for _, row := range rows {
		t.AppendRow(table.Row{row[0], row[1], row[2]})
	}

	return t.Render() + "\n"
}
