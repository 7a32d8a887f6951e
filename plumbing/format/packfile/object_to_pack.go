package packfile

import "github.com/vcsforge/gitcore/plumbing"

// ObjectToPack is a wrapper over an object that is going to be written to a
// packfile. It carries the delta metadata needed to pick an encoding for the
// object: its original (undeltified) form, and, if a suitable base was
// found, the object it should be stored as a delta against.
type ObjectToPack struct {
	// Object is what actually gets written to the pack: either the
	// original object, or a delta-encoded one.
	Object plumbing.EncodedObject
	// Original is the real, undeltified object.
	Original plumbing.EncodedObject
	// Base is the object this one is deltified against, nil if Object
	// is not a delta.
	Base *ObjectToPack
	// Depth is how many deltas must be applied, in a chain, to
	// reconstruct Original from Base.
	Depth int
}

func newObjectToPack(o plumbing.EncodedObject) *ObjectToPack {
	return &ObjectToPack{Object: o, Original: o}
}

func newDeltaObjectToPack(base *ObjectToPack, original, delta plumbing.EncodedObject) *ObjectToPack {
	return &ObjectToPack{
		Base:     base,
		Original: original,
		Object:   delta,
		Depth:    base.Depth + 1,
	}
}

// IsDelta returns whether this object is going to be written as a delta
// against another object already in the pack.
func (o *ObjectToPack) IsDelta() bool {
	return o.Base != nil
}
