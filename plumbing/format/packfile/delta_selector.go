package packfile

import (
	"sort"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// maxDepth bounds how many deltas may be chained before a base object must
// be stored in full; it matches the depth git itself uses by default.
const maxDepth = 50

// deltaSelector picks, for each object being packed, whether it is worth
// storing as a delta against a nearby object already selected, trading pack
// size against the cost of walking delta chains back to their base.
type deltaSelector struct {
	storer storer.EncodedObjectStorer
}

func newDeltaSelector(s storer.EncodedObjectStorer) *deltaSelector {
	return &deltaSelector{s}
}

// ObjectsToPack resolves hashes to their objects and, when packWindow is
// non-zero, searches a sliding window of nearby same-type objects for delta
// bases.
func (dw *deltaSelector) ObjectsToPack(hashes []plumbing.Hash, packWindow uint) ([]*ObjectToPack, error) {
	otp, err := dw.objectsToPack(hashes, packWindow)
	if err != nil {
		return nil, err
	}

	if packWindow == 0 {
		return otp, nil
	}

	dw.sort(otp)

	if err := dw.walk(otp, packWindow); err != nil {
		return nil, err
	}

	return otp, nil
}

func (dw *deltaSelector) objectsToPack(hashes []plumbing.Hash, _ uint) ([]*ObjectToPack, error) {
	var objectsToPack []*ObjectToPack
	for _, h := range hashes {
		o, err := dw.storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}

		objectsToPack = append(objectsToPack, newObjectToPack(o))
	}

	return objectsToPack, nil
}

// sort orders objects so that similar ones (same type, close in size) end
// up adjacent, which is what makes a small sliding window effective at
// finding delta bases.
func (dw *deltaSelector) sort(objectsToPack []*ObjectToPack) {
	sort.Sort(byTypeAndSize(objectsToPack))
}

// walk considers, for every object in objectsToPack, the packWindow objects
// that precede it as candidate delta bases, keeping whichever produces the
// smallest delta.
func (dw *deltaSelector) walk(objectsToPack []*ObjectToPack, packWindow uint) error {
	for i, target := range objectsToPack {
		if target.Object.Type() == plumbing.CommitObject || target.Object.Type() == plumbing.TagObject {
			continue
		}

		for j := i - 1; j >= 0 && i-j <= int(packWindow); j-- {
			base := objectsToPack[j]
			if base.Object.Type() != target.Object.Type() {
				continue
			}

			if err := dw.tryToDeltify(objectsToPack, i, base); err != nil {
				return err
			}
		}
	}

	return nil
}

func (dw *deltaSelector) tryToDeltify(objectsToPack []*ObjectToPack, targetIdx int, base *ObjectToPack) error {
	target := objectsToPack[targetIdx]

	limit := dw.deltaSizeLimit(target.Original.Size(), base.Original.Size(), base.Depth, target.IsDelta())
	if limit <= 0 {
		return nil
	}

	delta, err := GetDelta(base.Original, target.Original)
	if err != nil {
		return err
	}

	if int64(len(delta)) >= limit {
		return nil
	}

	if target.IsDelta() && int64(len(delta)) >= target.Object.Size() {
		return nil
	}

	deltaObject := &plumbing.MemoryObject{}
	deltaObject.SetType(target.Original.Type())
	deltaObject.SetSize(int64(len(delta)))
	w, err := deltaObject.Writer()
	if err != nil {
		return err
	}
	if _, err := w.Write(delta); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	objectsToPack[targetIdx] = newDeltaObjectToPack(base, target.Original, deltaObject)
	return nil
}

// deltaSizeLimit returns the largest delta we are willing to accept for a
// target of the given size against a base of the given depth, so that
// neither the delta chain grows unbounded nor a delta ends up bigger than
// just storing the object whole.
func (dw *deltaSelector) deltaSizeLimit(targetSize, baseSize int64, depth int, hasDelta bool) int64 {
	if depth >= maxDepth {
		return 0
	}

	limit := targetSize / 2
	if baseSize < targetSize {
		limit = baseSize / 2
	}
	if hasDelta {
		limit -= limit >> 3
	}
	if limit < 0 {
		limit = 0
	}

	return limit
}

// byTypeAndSize groups objects by type (blobs, then trees, then commits,
// matching how rarely each benefits from delta compression) and, within a
// type, orders larger objects first so smaller objects have a chance of
// being deltified against them.
type byTypeAndSize []*ObjectToPack

func (s byTypeAndSize) Len() int      { return len(s) }
func (s byTypeAndSize) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byTypeAndSize) Less(i, j int) bool {
	if s[i].Object.Type() != s[j].Object.Type() {
		return s[i].Object.Type() > s[j].Object.Type()
	}

	return s[i].Object.Size() > s[j].Object.Size()
}
