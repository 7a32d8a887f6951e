// Package git is a low level and highly extensible git library for reading
// and writing local repositories. It has no network transport code.  It is
// written in Go from scratch,
// without any C dependencies.
//
// We have been following the open/close principle in its design to facilitate
// extensions.
package git
