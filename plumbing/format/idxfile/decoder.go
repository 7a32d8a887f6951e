package idxfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/hash"
)

const plumbingHashSize = hash.SHA1Size

// Decoder reads and decodes idx files from an input stream into a
// MemoryIndex.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the whole idx file from the decoder's reader and stores it
// in idx.
func (d *Decoder) Decode(idx *MemoryIndex) error {
	flow := []func(*MemoryIndex) error{
		d.readHeader,
		d.readFanout,
		d.readObjectNames,
		d.readCRC32,
		d.readOffsets,
		d.readChecksums,
	}

	for _, f := range flow {
		if err := f(idx); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) readHeader(idx *MemoryIndex) error {
	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		return err
	}

	if header != [4]byte(idxHeader) {
		return ErrMalformedIdxFile
	}

	var version uint32
	if err := binary.Read(d.r, binary.BigEndian, &version); err != nil {
		return err
	}

	if version != VersionSupported {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	idx.Version = version
	return nil
}

func (d *Decoder) readFanout(idx *MemoryIndex) error {
	for i := 0; i < fanout; i++ {
		if err := binary.Read(d.r, binary.BigEndian, &idx.Fanout[i]); err != nil {
			return err
		}
	}

	bucket := 0
	last := uint32(0)
	for i, count := range idx.Fanout {
		if count > last {
			idx.FanoutMapping[i] = bucket
			bucket++
		} else {
			idx.FanoutMapping[i] = noMapping
		}

		last = count
	}

	return nil
}

func (d *Decoder) bucketSize(idx *MemoryIndex, fanoutIdx int) int {
	prev := uint32(0)
	if fanoutIdx > 0 {
		prev = idx.Fanout[fanoutIdx-1]
	}

	return int(idx.Fanout[fanoutIdx] - prev)
}

func (d *Decoder) readObjectNames(idx *MemoryIndex) error {
	for i := 0; i < fanout; i++ {
		if idx.FanoutMapping[i] == noMapping {
			continue
		}

		count := d.bucketSize(idx, i)
		buf := make([]byte, count*plumbingHashSize)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.Names = append(idx.Names, buf)
	}

	return nil
}

func (d *Decoder) readCRC32(idx *MemoryIndex) error {
	for i := 0; i < fanout; i++ {
		if idx.FanoutMapping[i] == noMapping {
			continue
		}

		count := d.bucketSize(idx, i)
		buf := make([]byte, count*4)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.CRC32 = append(idx.CRC32, buf)
	}

	return nil
}

func (d *Decoder) readOffsets(idx *MemoryIndex) error {
	var large []uint32

	for i := 0; i < fanout; i++ {
		if idx.FanoutMapping[i] == noMapping {
			continue
		}

		count := d.bucketSize(idx, i)
		buf := make([]byte, count*4)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.Offset32 = append(idx.Offset32, buf)

		for j := 0; j < count; j++ {
			v := beUint32(buf[j*4 : j*4+4])
			if v&0x80000000 != 0 {
				large = append(large, v&^0x80000000)
			}
		}
	}

	if len(large) > 0 {
		buf := make([]byte, len(large)*8)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.Offset64 = buf
	}

	return nil
}

func (d *Decoder) readChecksums(idx *MemoryIndex) error {
	buf := make([]byte, plumbingHashSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return err
	}

	h, ok := plumbing.FromBytes(buf)
	if !ok {
		return ErrMalformedIdxFile
	}
	idx.PackfileChecksum = h

	if _, err := io.ReadFull(d.r, buf); err != nil {
		return err
	}

	h, ok = plumbing.FromBytes(buf)
	if !ok {
		return ErrMalformedIdxFile
	}
	idx.IdxChecksum = h

	return nil
}
