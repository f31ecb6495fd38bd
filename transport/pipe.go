package transport

import "io"

// Pipe is one in-memory duplex connection pair endpoint: writes on one
// side are readable on the other, with no network or filesystem involved.
// Used by this package's tests to drive a Machine
// against a scripted supervisor fixture without a real socket (spec.md §2
// component m).
type Pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewPipePair returns two connected Pipe endpoints: writes to a are
// readable from b and vice versa.
func NewPipePair() (a, b *Pipe) {
	var ar, bw = io.Pipe()
	var br, aw = io.Pipe()
	return &Pipe{r: ar, w: aw}, &Pipe{r: br, w: bw}
}

func (p *Pipe) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *Pipe) Write(b []byte) (int, error) { return p.w.Write(b) }

// Close closes both halves of this endpoint.
func (p *Pipe) Close() error {
	var rerr = p.r.Close()
	var werr = p.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// CloseWrite closes only the write half, signalling a clean end of
// frames to the peer's reads (they observe io.EOF) without disturbing
// this endpoint's own ability to keep reading.
func (p *Pipe) CloseWrite() error {
	return p.w.Close()
}
