package voice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotOgg is returned when the stream is not an Ogg bitstream
var ErrNotOgg = errors.New("not an ogg stream")

const (
	pageHeaderSize = 27
	maxLacing      = 255
)

var (
	capturePattern = []byte("OggS")
	opusHead       = []byte("OpusHead")
	opusTags       = []byte("OpusTags")
)

// PacketReader demuxes Opus packets from an Ogg stream. The identification and
// comment headers are skipped.
type PacketReader struct {
	r       *bufio.Reader
	header  [pageHeaderSize]byte
	lacing  [maxLacing]byte
	ready   [][]byte
	partial []byte
}

// NewPacketReader reads Ogg pages from r
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{r: bufio.NewReader(r)}
}

// Next returns the next audio packet, or io.EOF at the end of the stream
func (p *PacketReader) Next() ([]byte, error) {
	for {
		for len(p.ready) > 0 {
			pkt := p.ready[0]
			p.ready = p.ready[1:]
			if bytes.HasPrefix(pkt, opusHead) || bytes.HasPrefix(pkt, opusTags) {
				continue
			}
			return pkt, nil
		}

		if err := p.readPage(); err != nil {
			return nil, err
		}
	}
}

func (p *PacketReader) readPage() error {
	if _, err := io.ReadFull(p.r, p.header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("failed to read ogg page header: %w", err)
	}
	if !bytes.Equal(p.header[:4], capturePattern) {
		return ErrNotOgg
	}

	segments := int(p.header[26])
	if _, err := io.ReadFull(p.r, p.lacing[:segments]); err != nil {
		return fmt.Errorf("failed to read ogg segment table: %w", err)
	}

	for _, size := range p.lacing[:segments] {
		seg := make([]byte, size)
		if _, err := io.ReadFull(p.r, seg); err != nil {
			return fmt.Errorf("failed to read ogg segment: %w", err)
		}

		p.partial = append(p.partial, seg...)
		if size < maxLacing {
			p.ready = append(p.ready, p.partial)
			p.partial = nil
		}
	}

	return nil
}

// SendOpus copies every audio packet of the Ogg stream r to out until the stream
// ends or ctx is done
func SendOpus(ctx context.Context, r io.Reader, out chan<- []byte) error {
	packets := NewPacketReader(r)

	for {
		pkt, err := packets.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		select {
		case out <- pkt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
