package messages

import (
	"strconv"
	"strings"
)

// CompareIDs orders two "<ms>-<seq>" log IDs the way the store does:
// -1 when a sorts before b, 1 when after, 0 when equal.
func CompareIDs(a, b string) int {
	aMS, aSeq := splitID(a)
	bMS, bSeq := splitID(b)
	switch {
	case aMS != bMS:
		if aMS < bMS {
			return -1
		}
		return 1
	case aSeq < bSeq:
		return -1
	case aSeq > bSeq:
		return 1
	}
	return 0
}

func splitID(id string) (int64, int64) {
	msPart, seqPart, _ := strings.Cut(id, "-")
	ms, _ := strconv.ParseInt(msPart, 10, 64)
	seq, _ := strconv.ParseInt(seqPart, 10, 64)
	return ms, seq
}
