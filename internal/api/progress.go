package api

import "io"

// ProgressFunc receives the bytes transferred so far and the total, which
// is 0 when unknown.
type ProgressFunc func(loaded, total int64)

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.fn != nil {
			p.fn(p.loaded, p.total)
		}
	}
	return n, err
}

type progressWriter struct {
	w      io.Writer
	total  int64
	loaded int64
	fn     ProgressFunc
	err    error // first write failure, to tell disk errors from network ones
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if err != nil && p.err == nil {
		p.err = err
	}
	if n > 0 {
		p.loaded += int64(n)
		if p.fn != nil {
			p.fn(p.loaded, p.total)
		}
	}
	return n, err
}
