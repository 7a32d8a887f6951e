package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	fdiff "github.com/vcsforge/gitcore/plumbing/format/diff"
)

var dmpLib = dmp.New()

// getPatch builds a Patch with an optional leading message from the
// given changes, running the underlying diff without a context.
func getPatch(message string, changes ...*Change) (*Patch, error) {
	return getPatchContext(context.Background(), message, changes...)
}

// getPatchContext is like getPatch but checks ctx for cancellation
// before processing each change.
func getPatchContext(ctx context.Context, message string, changes ...*Change) (*Patch, error) {
	var filePatches []fdiff.FilePatch
	for _, c := range changes {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		default:
		}

		fp, err := filePatchWithContext(ctx, c)
		if err != nil {
			return nil, err
		}

		filePatches = append(filePatches, fp)
	}

	return &Patch{message: message, filePatches: filePatches}, nil
}

func filePatchWithContext(ctx context.Context, c *Change) (fdiff.FilePatch, error) {
	from, to, err := c.Files()
	if err != nil {
		return nil, err
	}

	fromInfo, toInfo := fileInfoFromEntry(c.From), fileInfoFromEntry(c.To)

	isBinary, err := isEitherBinary(from, to)
	if err != nil {
		return nil, err
	}

	if isBinary {
		return &filePatch{isBinary: true, from: fromInfo, to: toInfo}, nil
	}

	var fromContent, toContent string
	if from != nil {
		if fromContent, err = from.Contents(); err != nil {
			return nil, err
		}
	}
	if to != nil {
		if toContent, err = to.Contents(); err != nil {
			return nil, err
		}
	}

	chunks, err := diffContent(ctx, fromContent, toContent)
	if err != nil {
		return nil, err
	}

	return &filePatch{from: fromInfo, to: toInfo, chunks: chunks}, nil
}

func isEitherBinary(from, to *File) (bool, error) {
	if from != nil {
		bin, err := from.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}

	if to != nil {
		bin, err := to.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}

	return false, nil
}

func fileInfoFromEntry(e ChangeEntry) fdiff.File {
	if e == empty {
		return nil
	}

	return &fileInfo{
		hash: e.TreeEntry.Hash,
		mode: e.TreeEntry.Mode,
		path: e.Name,
	}
}

// diffContent runs a line-based diff between a and b using
// diffmatchpatch's line-to-rune compression, which keeps the
// underlying Myers diff operating on whole lines instead of runes.
func diffContent(ctx context.Context, a, b string) ([]fdiff.Chunk, error) {
	aRunes, bRunes, lines := dmpLib.DiffLinesToRunes(a, b)
	diffs := dmpLib.DiffMainRunes(aRunes, bRunes, false)
	diffs = dmpLib.DiffCharsToLines(diffs, lines)

	var chunks []fdiff.Chunk
	for _, d := range diffs {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		default:
		}

		var op fdiff.Operation
		switch d.Type {
		case dmp.DiffEqual:
			op = fdiff.Equal
		case dmp.DiffDelete:
			op = fdiff.Delete
		case dmp.DiffInsert:
			op = fdiff.Add
		}

		chunks = append(chunks, &textChunk{content: d.Text, op: op})
	}

	return chunks, nil
}

// Patch is a collection of FilePatches, one per file changed, ready to
// be rendered as a unified diff.
type Patch struct {
	message     string
	filePatches []fdiff.FilePatch
}

// FilePatches returns the file patches that make up this Patch.
func (p *Patch) FilePatches() []fdiff.FilePatch {
	return p.filePatches
}

// Message returns the optional header message of this Patch.
func (p *Patch) Message() string {
	return p.message
}

// Encode writes a unified diff representation of the patch to w.
func (p *Patch) Encode(w io.Writer) error {
	if p.message != "" {
		if _, err := fmt.Fprintln(w, p.message); err != nil {
			return err
		}
	}

	for _, fp := range p.filePatches {
		if err := encodeFilePatch(w, fp); err != nil {
			return err
		}
	}

	return nil
}

// String returns the unified diff representation of the patch, or a
// message describing the encoding error if it could not be rendered.
func (p *Patch) String() string {
	buf := bytes.NewBuffer(nil)
	if err := p.Encode(buf); err != nil {
		return fmt.Sprintf("malformed patch: %s", err)
	}

	return buf.String()
}

func pathOrDevNull(f fdiff.File, prefix string) string {
	if f == nil {
		return "/dev/null"
	}

	return prefix + "/" + f.Path()
}

func encodeFilePatch(w io.Writer, fp fdiff.FilePatch) error {
	from, to := fp.Files()

	fromPath := pathOrDevNull(from, "a")
	toPath := pathOrDevNull(to, "b")
	if from != nil {
		fromPath = "a/" + from.Path()
	}
	if to != nil {
		toPath = "b/" + to.Path()
	}
	if from == nil && to != nil {
		fromPath = "a/" + to.Path()
	}
	if to == nil && from != nil {
		toPath = "b/" + from.Path()
	}

	if _, err := fmt.Fprintf(w, "diff --git %s %s\n", fromPath, toPath); err != nil {
		return err
	}

	if from == nil && to != nil {
		if _, err := fmt.Fprintf(w, "new file mode %o\n", to.Mode()); err != nil {
			return err
		}
	} else if to == nil && from != nil {
		if _, err := fmt.Fprintf(w, "deleted file mode %o\n", from.Mode()); err != nil {
			return err
		}
	} else if from != nil && to != nil && from.Mode() != to.Mode() {
		if _, err := fmt.Fprintf(w, "old mode %o\n", from.Mode()); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "new mode %o\n", to.Mode()); err != nil {
			return err
		}
	}

	fromHash, toHash := plumbing.ZeroHash.String(), plumbing.ZeroHash.String()
	if from != nil {
		fromHash = from.Hash().String()
	}
	if to != nil {
		toHash = to.Hash().String()
	}

	if from != nil && to != nil && from.Mode() == to.Mode() {
		if _, err := fmt.Fprintf(w, "index %s..%s %o\n", fromHash, toHash, from.Mode()); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "index %s..%s\n", fromHash, toHash); err != nil {
			return err
		}
	}

	if fp.IsBinary() {
		_, err := fmt.Fprintf(w, "Binary files %s and %s differ\n", fromPath, toPath)
		return err
	}

	if _, err := fmt.Fprintf(w, "--- %s\n", fromPath); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "+++ %s\n", toPath); err != nil {
		return err
	}

	chunks := fp.Chunks()

	var fromLines, toLines int
	for _, c := range chunks {
		n := countLines(c.Content())
		switch c.Type() {
		case fdiff.Equal:
			fromLines += n
			toLines += n
		case fdiff.Delete:
			fromLines += n
		case fdiff.Add:
			toLines += n
		}
	}

	if _, err := fmt.Fprintf(w, "@@ -%s +%s @@\n", formatRange(fromLines), formatRange(toLines)); err != nil {
		return err
	}

	return writeChunkLines(w, chunks)
}

func countLines(content string) int {
	if content == "" {
		return 0
	}

	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}

	return n
}

func formatRange(lines int) string {
	if lines == 0 {
		return "0,0"
	}

	if lines == 1 {
		return "1"
	}

	return fmt.Sprintf("1,%d", lines)
}

func writeChunkLines(w io.Writer, chunks []fdiff.Chunk) error {
	for _, c := range chunks {
		var prefix string
		switch c.Type() {
		case fdiff.Add:
			prefix = "+"
		case fdiff.Delete:
			prefix = "-"
		default:
			prefix = " "
		}

		content := c.Content()
		if content == "" {
			continue
		}

		lines := strings.Split(content, "\n")
		trailingNewline := true
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		} else {
			trailingNewline = false
		}

		for i, line := range lines {
			if _, err := fmt.Fprintf(w, "%s%s\n", prefix, line); err != nil {
				return err
			}

			if i == len(lines)-1 && !trailingNewline {
				if _, err := fmt.Fprintln(w, "\\ No newline at end of file"); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// fileInfo is the concrete implementation of fdiff.File.
type fileInfo struct {
	hash plumbing.Hash
	mode filemode.FileMode
	path string
}

func (f *fileInfo) Hash() plumbing.Hash      { return f.hash }
func (f *fileInfo) Mode() filemode.FileMode  { return f.mode }
func (f *fileInfo) Path() string             { return f.path }

// filePatch is the concrete implementation of fdiff.FilePatch.
type filePatch struct {
	isBinary bool
	from, to fdiff.File
	chunks   []fdiff.Chunk
}

func (f *filePatch) IsBinary() bool {
	return f.isBinary
}

func (f *filePatch) Files() (from, to fdiff.File) {
	return f.from, f.to
}

func (f *filePatch) Chunks() []fdiff.Chunk {
	return f.chunks
}

// textChunk is the concrete implementation of fdiff.Chunk.
type textChunk struct {
	content string
	op      fdiff.Operation
}

func (t *textChunk) Content() string     { return t.content }
func (t *textChunk) Type() fdiff.Operation { return t.op }
