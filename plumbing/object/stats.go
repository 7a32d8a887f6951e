package object

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	fdiff "github.com/vcsforge/gitcore/plumbing/format/diff"
)

// FileStat stores the status of changes to a file, as shown in a `git
// diff --stat` style summary.
type FileStat struct {
	Name     string
	Addition int
	Deletion int
}

// String returns the stat-bar rendering of a single file.
func (fs FileStat) String() string {
	var b strings.Builder
	statsWriteTo(&b, []FileStat{fs})
	return b.String()
}

// FileStats is a collection of FileStat, one per file changed.
type FileStats []FileStat

// String returns the stat-bar rendering of every file in the collection,
// with graph widths scaled relative to each other.
func (fs FileStats) String() string {
	var b strings.Builder
	statsWriteTo(&b, fs)
	return b.String()
}

// maxStatsGraphWidth is the maximum number of +/- characters rendered in a
// single file's graph column, matching the width `git diff --stat` uses.
const maxStatsGraphWidth = 53

// scaleStatLinear scales it proportionally to fit within width, given
// that max is the largest value being scaled across the whole stat table.
func scaleStatLinear(it, width, max uint) uint {
	if it == 0 || max == 0 {
		return 0
	}

	return 1 + (it * (width - 1) / max)
}

func statsWriteTo(w io.Writer, fileStats []FileStat) {
	maxNameLen := 0
	maxChangeLen := 0

	for _, fs := range fileStats {
		if len(fs.Name) > maxNameLen {
			maxNameLen = len(fs.Name)
		}

		changes := strconv.Itoa(fs.Addition + fs.Deletion)
		if len(changes) > maxChangeLen {
			maxChangeLen = len(changes)
		}
	}

	for _, fs := range fileStats {
		add := uint(fs.Addition)
		del := uint(fs.Deletion)

		namePad := strings.Repeat(" ", maxNameLen-len(fs.Name))
		total := add + del
		changePad := strings.Repeat(" ", maxChangeLen-len(strconv.Itoa(fs.Addition+fs.Deletion)))

		if total > maxStatsGraphWidth {
			add = scaleStatLinear(add, maxStatsGraphWidth, total)
			del = scaleStatLinear(del, maxStatsGraphWidth, total)
		}

		adds := strings.Repeat("+", int(add))
		dels := strings.Repeat("-", int(del))

		fmt.Fprintf(w, " %s%s | %s%d %s%s\n", fs.Name, namePad, changePad, total, adds, dels)
	}
}

// getFileStatsFromFilePatches builds the FileStats of a set of file
// patches, skipping binary or empty patches.
func getFileStatsFromFilePatches(filePatches []fdiff.FilePatch) FileStats {
	var fileStats FileStats

	for _, fp := range filePatches {
		if len(fp.Chunks()) == 0 {
			continue
		}

		cs := FileStat{}
		from, to := fp.Files()
		switch {
		case from == nil:
			cs.Name = to.Path()
		case to == nil:
			cs.Name = from.Path()
		case from.Path() != to.Path():
			cs.Name = fmt.Sprintf("%s => %s", from.Path(), to.Path())
		default:
			cs.Name = from.Path()
		}

		for _, chunk := range fp.Chunks() {
			s := chunk.Content()
			if len(s) == 0 {
				continue
			}

			switch chunk.Type() {
			case fdiff.Add:
				cs.Addition += strings.Count(s, "\n")
				if s[len(s)-1] != '\n' {
					cs.Addition++
				}
			case fdiff.Delete:
				cs.Deletion += strings.Count(s, "\n")
				if s[len(s)-1] != '\n' {
					cs.Deletion++
				}
			}
		}

		fileStats = append(fileStats, cs)
	}

	return fileStats
}
