package progress

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/nao1215/nodescan/internal/model"
)

// record is the text form shared by both checkpoint kinds.
type record struct {
	strategy  model.Strategy
	site      string
	startNode int
	endNode   int
	cursor    int
}

func (r record) String() string {
	return fmt.Sprintf("%d,%s,%d,%d,%d", r.strategy, r.site, r.startNode, r.endNode, r.cursor)
}

// parseRecord parses "speedFlag,site,start,end,cursor". The site may itself
// contain commas, so the numeric fields are taken from both ends.
func parseRecord(line string) (record, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return record{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedCheckpoint, len(fields))
	}

	n := len(fields)
	ints := make([]int, 0, 4)
	for _, f := range []string{fields[0], fields[n-3], fields[n-2], fields[n-1]} {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return record{}, fmt.Errorf("%w: %q is not a number", ErrMalformedCheckpoint, f)
		}
		ints = append(ints, v)
	}

	r := record{
		strategy:  model.Strategy(ints[0]),
		site:      strings.Join(fields[1:n-3], ","),
		startNode: ints[1],
		endNode:   ints[2],
		cursor:    ints[3],
	}

	if !r.strategy.Valid() {
		return record{}, fmt.Errorf("%w: unknown speed flag %d", ErrMalformedCheckpoint, ints[0])
	}
	if r.site == "" {
		return record{}, fmt.Errorf("%w: empty site", ErrMalformedCheckpoint)
	}
	if r.startNode < 0 || r.endNode <= r.startNode {
		return record{}, fmt.Errorf("%w: invalid range [%d, %d)", ErrMalformedCheckpoint, r.startNode, r.endNode)
	}
	return r, nil
}

// bitmapLen returns the encoded length of a bitmap covering size node ids.
func bitmapLen(size int) int {
	return (size + 7) / 8
}

// encodeBits packs the first size bits of bits, most significant bit first.
func encodeBits(bits *bitset.BitSet, size int) []byte {
	data := make([]byte, bitmapLen(size))
	for i, ok := bits.NextSet(0); ok && int(i) < size; i, ok = bits.NextSet(i + 1) { //nolint:gosec // bounded by size
		data[i/8] |= 0x80 >> (i % 8)
	}
	return data
}

// decodeBits is the inverse of encodeBits.
func decodeBits(data []byte, size int) (*bitset.BitSet, error) {
	if len(data) != bitmapLen(size) {
		return nil, fmt.Errorf("%w: bitmap has %d bytes, expected %d", ErrMalformedCheckpoint, len(data), bitmapLen(size))
	}
	bits := bitset.New(uint(size)) //nolint:gosec // size is positive
	for i := range size {
		if data[i/8]&(0x80>>(i%8)) != 0 {
			bits.Set(uint(i)) //nolint:gosec // i is non-negative
		}
	}
	return bits, nil
}
