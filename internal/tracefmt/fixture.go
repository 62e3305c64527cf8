package tracefmt

import "io"

// WriteTrace encodes a complete trace file — header, file-state table, then
// operation records — to w. It exists for tests that need a trace fixture
// without hand-assembling the wire format (mirrors the teacher's own
// internal/trace.Writer, minus the streaming/truncation machinery this
// format doesn't need since every encode call here is a fixed-size write).
func WriteTrace(w io.Writer, states []FileState, ops []OpRecord) error {
	header := Header{
		NumFiles:      uint32(len(states)),
		NumOperations: uint64(len(ops)),
	}
	if err := header.Encode(w); err != nil {
		return err
	}
	for _, fs := range states {
		if err := fs.Encode(w); err != nil {
			return err
		}
	}
	for _, op := range ops {
		if err := op.Encode(w); err != nil {
			return err
		}
	}
	return nil
}
