package audio

// Framer accumulates captured audio and slices it into fixed-size frames.
//
// Capture devices deliver chunks of arbitrary length. The backend only accepts
// whole frames, so everything short of a frame stays buffered until more audio
// arrives. A Framer is not safe for concurrent use.
type Framer struct {
	size    int
	pending []byte
}

// NewFramer returns a framer emitting frames of size bytes. A non-positive
// size falls back to FrameSize.
func NewFramer(size int) *Framer {
	if size <= 0 {
		size = FrameSize
	}
	return &Framer{size: size, pending: make([]byte, 0, size)}
}

// Append adds chunk to the accumulator and returns every complete frame now
// available, in capture order. Each returned frame is an independent copy.
func (f *Framer) Append(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}

	f.pending = append(f.pending, chunk...)
	if len(f.pending) < f.size {
		return nil
	}

	frames := make([][]byte, 0, len(f.pending)/f.size)
	offset := 0
	for len(f.pending)-offset >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.pending[offset:offset+f.size])
		frames = append(frames, frame)
		offset += f.size
	}

	remainder := copy(f.pending, f.pending[offset:])
	f.pending = f.pending[:remainder]
	return frames
}

// Pending reports how many bytes are waiting for a frame to fill.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Size reports the frame size in bytes.
func (f *Framer) Size() int {
	return f.size
}

// Reset drops any buffered partial frame and returns how many bytes were
// discarded.
func (f *Framer) Reset() int {
	dropped := len(f.pending)
	f.pending = f.pending[:0]
	return dropped
}
