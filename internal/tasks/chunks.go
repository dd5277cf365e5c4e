package tasks

// ChunkDescriptor names a contiguous, half-open element range [Start, End)
// of a task's flat grid data. Chunks returned for one task partition
// [0, data_length) contiguously: chunks[0].Start == 0, chunks[i].End ==
// chunks[i+1].Start, and chunks[last].End == data_length.
type ChunkDescriptor struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// ComputeChunks partitions [0, dataLength) into descriptors of at most
// chunkSize elements each: ceil(dataLength/chunkSize) chunks, every one
// but possibly the last exactly chunkSize elements wide.
func ComputeChunks(dataLength, chunkSize int) []ChunkDescriptor {
	if dataLength <= 0 || chunkSize <= 0 {
		return nil
	}

	count := (dataLength + chunkSize - 1) / chunkSize
	chunks := make([]ChunkDescriptor, count)
	for i := 0; i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > dataLength {
			end = dataLength
		}
		chunks[i] = ChunkDescriptor{Index: i, Start: start, End: end}
	}
	return chunks
}
