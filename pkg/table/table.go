package table

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

const (
	ModeWidth   = 10
	SizeWidth   = 12
	TimeWidth   = 16
	NameWidth   = 60
	HostWidth   = 30
	OutputWidth = 60
)

const timeLayout = "2006-01-02 15:04"

func newWriter(w io.Writer, header []string) *tablewriter.Table {
	if w == nil {
		w = os.Stdout
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

// FileTable renders a directory listing.
type FileTable struct {
	table *tablewriter.Table
	rows  int
}

func NewFileTable(w io.Writer) *FileTable {
	return &FileTable{table: newWriter(w, []string{"Mode", "Size", "Modified", "Name"})}
}

// AddEntry appends one row. Directories get a trailing slash.
func (ft *FileTable) AddEntry(info os.FileInfo) {
	ft.AddLink(info, "")
}

// AddLink appends one row, showing target after the name when it is set.
func (ft *FileTable) AddLink(info os.FileInfo, target string) {
	name := info.Name()
	switch {
	case target != "":
		name += " -> " + target
	case info.IsDir():
		name += "/"
	}
	ft.table.Append([]string{
		truncate(info.Mode().String(), ModeWidth),
		truncate(strconv.FormatInt(info.Size(), 10), SizeWidth),
		truncate(info.ModTime().Format(timeLayout), TimeWidth),
		truncate(name, NameWidth),
	})
	ft.rows++
}

func (ft *FileTable) Len() int {
	return ft.rows
}

func (ft *FileTable) Render() {
	ft.table.Render()
}

// ResultTable renders the outcome of a command run on several hosts.
type ResultTable struct {
	table *tablewriter.Table
}

func NewResultTable(w io.Writer) *ResultTable {
	return &ResultTable{table: newWriter(w, []string{"Host", "Exit", "Output"})}
}

// AddResult appends one row. Only the first line of output is shown.
func (rt *ResultTable) AddResult(host string, exitCode int, output string) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	rt.table.Append([]string{
		truncate(host, HostWidth),
		strconv.Itoa(exitCode),
		truncate(line, OutputWidth),
	})
}

func (rt *ResultTable) Render() {
	rt.table.Render()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
