// Package receivepack implements the server side of a push: parsing a
// pkt-line framed batch of ref updates and a packfile, running the
// pre-receive/update/post-receive hook sequence, and writing a pkt-line
// framed report back to the client.
package receivepack

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/vcsforge/gitcore/internal/repository"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/format/packfile"
	"github.com/vcsforge/gitcore/plumbing/format/pktline"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// RefUpdate is one `<old-oid> <new-oid> <ref>` line of the request,
// along with any capabilities advertised after its NUL byte.
type RefUpdate struct {
	Old, New     plumbing.Hash
	Name         plumbing.ReferenceName
	Capabilities []string
}

// RefReport is what the server decided about a single RefUpdate.
type RefReport struct {
	Name   plumbing.ReferenceName
	OK     bool
	Reason string
}

// Result is the outcome of a full receive-pack run.
type Result struct {
	UnpackOK bool
	UnpackErr string
	Refs     []RefReport
}

// ParseRequest reads ref-update lines from a pkt-line stream until the
// first flush packet, then returns the raw packfile bytes that follow.
// Malformed update lines are silently dropped, per the wire protocol's
// tolerance for unknown/garbled commands.
func ParseRequest(r io.Reader) ([]RefUpdate, []byte, error) {
	scanner := pktline.NewScanner(r)

	var updates []RefUpdate
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			break
		}

		if u, ok := parseUpdateLine(line); ok {
			updates = append(updates, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	pack, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	return updates, pack, nil
}

func parseUpdateLine(line []byte) (RefUpdate, bool) {
	line = bytes.TrimSuffix(line, []byte("\n"))

	body := line
	var caps []string
	if i := bytes.IndexByte(line, 0); i >= 0 {
		body = line[:i]
		caps = strings.Fields(string(line[i+1:]))
	}

	fields := strings.SplitN(string(body), " ", 3)
	if len(fields) != 3 {
		return RefUpdate{}, false
	}

	oldOid, ok := plumbing.FromHex(fields[0])
	if !ok {
		return RefUpdate{}, false
	}
	newOid, ok := plumbing.FromHex(fields[1])
	if !ok {
		return RefUpdate{}, false
	}

	return RefUpdate{
		Old:          oldOid,
		New:          newOid,
		Name:         plumbing.ReferenceName(fields[2]),
		Capabilities: caps,
	}, true
}

// Serve runs the full receive-pack sequence against repo: pre-receive,
// packfile unpacking, then for each ref the old-value check, update hook
// and ref write, and a fire-and-forget post-receive. The result is also
// written to w in pkt-line report format.
func Serve(repo *repository.Repository, updates []RefUpdate, pack []byte, w io.Writer) (*Result, error) {
	result := runReceive(repo, updates, pack)
	return result, writeReport(w, result)
}

func runReceive(repo *repository.Repository, updates []RefUpdate, pack []byte) *Result {
	result := &Result{}

	if ok, reason := runPreReceive(repo, updates); !ok {
		result.UnpackOK = false
		result.UnpackErr = reason
		for _, u := range updates {
			result.Refs = append(result.Refs, RefReport{Name: u.Name, OK: false, Reason: reason})
		}
		return result
	}

	if err := unpack(repo, pack); err != nil {
		result.UnpackOK = false
		result.UnpackErr = err.Error()
		for _, u := range updates {
			result.Refs = append(result.Refs, RefReport{Name: u.Name, OK: false, Reason: "unpacker error"})
		}
		return result
	}
	result.UnpackOK = true

	for _, u := range updates {
		report := applyUpdate(repo, u)
		result.Refs = append(result.Refs, report)
	}

	runPostReceive(repo, updates, result.Refs)

	return result
}

func unpack(repo *repository.Repository, pack []byte) error {
	if len(pack) == 0 {
		return nil
	}

	if pw, ok := repo.Storage.(storer.PackfileWriter); ok {
		w, err := pw.PackfileWriter()
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, bytes.NewReader(pack)); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}

	parser := packfile.NewParser(bytes.NewReader(pack), packfile.WithStorage(repo.Storage))
	_, err := parser.Parse()
	return err
}

func applyUpdate(repo *repository.Repository, u RefUpdate) RefReport {
	current, err := repo.Storage.Reference(u.Name)
	var currentOid plumbing.Hash
	if err == nil && current != nil {
		currentOid = current.Hash()
	}

	if !(u.Old.IsZero() && currentOid.IsZero()) && currentOid != u.Old {
		return RefReport{Name: u.Name, OK: false, Reason: "remote ref updated since checkout"}
	}

	res, found, err := repo.RunHook("update", []string{string(u.Name), u.Old.String(), u.New.String()}, nil, nil)
	if err != nil {
		return RefReport{Name: u.Name, OK: false, Reason: err.Error()}
	}
	if found && res != nil && res.ExitCode != 0 {
		return RefReport{Name: u.Name, OK: false, Reason: "hook declined"}
	}

	if u.New.IsZero() {
		return RefReport{Name: u.Name, OK: false, Reason: "ref deletion not supported"}
	}

	if err := repo.WriteRef(u.Name, u.New, "push", false); err != nil {
		return RefReport{Name: u.Name, OK: false, Reason: err.Error()}
	}

	return RefReport{Name: u.Name, OK: true}
}

func runPreReceive(repo *repository.Repository, updates []RefUpdate) (bool, string) {
	var stdin bytes.Buffer
	for _, u := range updates {
		fmt.Fprintf(&stdin, "%s %s %s\n", u.Old, u.New, u.Name)
	}

	res, found, err := repo.RunHook("pre-receive", nil, &stdin, nil)
	if err != nil {
		return false, err.Error()
	}
	if found && res != nil && res.ExitCode != 0 {
		return false, "pre-receive hook rejected the push"
	}

	return true, ""
}

func runPostReceive(repo *repository.Repository, updates []RefUpdate, reports []RefReport) {
	var stdin bytes.Buffer
	for i, u := range updates {
		if i < len(reports) && !reports[i].OK {
			continue
		}
		fmt.Fprintf(&stdin, "%s %s %s\n", u.Old, u.New, u.Name)
	}

	// post-receive is fire-and-forget: its outcome never changes the
	// report already sent for the push.
	_, _, _ = repo.RunHook("post-receive", nil, &stdin, nil)
}

func writeReport(w io.Writer, result *Result) error {
	pw := pktline.NewWriter(w)

	if result.UnpackOK {
		if _, err := pw.WritePacketString("unpack ok\n"); err != nil {
			return err
		}
	} else {
		if _, err := pw.WritePacketf("unpack %s\n", result.UnpackErr); err != nil {
			return err
		}
	}

	for _, r := range result.Refs {
		var err error
		if r.OK {
			_, err = pw.WritePacketf("ok %s\n", r.Name)
		} else {
			_, err = pw.WritePacketf("ng %s %s\n", r.Name, r.Reason)
		}
		if err != nil {
			return err
		}
	}

	return pw.WriteFlush()
}
