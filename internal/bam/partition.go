package bam

import "fmt"

// Partition is one output archive's worth of files: an ordered, non-empty set
// of staged files whose cumulative size stays under the configured ceiling,
// unless it holds a single file that alone exceeds the ceiling.
type Partition struct {
	Files []StagedFile
	Size  int64
}

// PartitionBySize groups files into ordered partitions, each under the byte
// ceiling. The scan is a greedy sequential pass in input order, not sorted by
// size: when adding the next file would exceed the ceiling and the current
// partition is non-empty, the partition is closed and a new one started. This
// keeps partition contents traceable to source order at the cost of optimal
// bin packing. A single file larger than the ceiling forms its own oversized
// partition; files are never split.
func PartitionBySize(files []StagedFile, ceiling int64) []Partition {
	var partitions []Partition
	var current Partition

	for _, f := range files {
		if current.Size+f.Size > ceiling && len(current.Files) > 0 {
			partitions = append(partitions, current)
			current = Partition{}
		}
		current.Files = append(current.Files, f)
		current.Size += f.Size
	}
	if len(current.Files) > 0 {
		partitions = append(partitions, current)
	}
	return partitions
}

// PartitionName returns the deterministic unit name for partition idx:
// partition 0 keeps the base output name, partition k (k >= 1) appends a
// "_Part{k+1}" suffix.
func PartitionName(base string, idx int) string {
	if idx == 0 {
		return base
	}
	return fmt.Sprintf("%s_Part%d", base, idx+1)
}
