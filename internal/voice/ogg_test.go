package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggPage builds one page holding the given segments. Checksums are not verified
// by the reader and are left zero.
func oggPage(lacing []byte, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("OggS")
	b.WriteByte(0)                 // version
	b.WriteByte(0)                 // header type
	b.Write(make([]byte, 8))       // granule position
	b.Write([]byte{1, 0, 0, 0})    // serial
	b.Write(make([]byte, 4))       // sequence
	b.Write(make([]byte, 4))       // crc
	b.WriteByte(byte(len(lacing))) // segment count
	b.Write(lacing)
	b.Write(body)
	return b.Bytes()
}

// oggStream builds a stream with the Opus headers followed by one page per packet
func oggStream(packets ...[]byte) []byte {
	var b bytes.Buffer
	head := append([]byte("OpusHead"), 1, 2, 0, 0, 0x80, 0xbb, 0, 0, 0, 0, 0)
	b.Write(oggPage([]byte{byte(len(head))}, head))
	tags := []byte("OpusTags\x00\x00\x00\x00\x00\x00\x00\x00")
	b.Write(oggPage([]byte{byte(len(tags))}, tags))

	for _, pkt := range packets {
		var lacing []byte
		n := len(pkt)
		for n >= maxLacing {
			lacing = append(lacing, maxLacing)
			n -= maxLacing
		}
		lacing = append(lacing, byte(n))
		b.Write(oggPage(lacing, pkt))
	}
	return b.Bytes()
}

func readAll(t *testing.T, r *PacketReader) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		pkt, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, pkt)
	}
}

func TestPacketReader_SkipsHeaders(t *testing.T) {
	stream := oggStream([]byte{0xfc, 1, 2}, []byte{0xfc, 3})

	packets := readAll(t, NewPacketReader(bytes.NewReader(stream)))

	require.Len(t, packets, 2)
	assert.Equal(t, []byte{0xfc, 1, 2}, packets[0])
	assert.Equal(t, []byte{0xfc, 3}, packets[1])
}

func TestPacketReader_MultiSegmentPacket(t *testing.T) {
	big := bytes.Repeat([]byte{7}, 600)

	packets := readAll(t, NewPacketReader(bytes.NewReader(oggStream(big))))

	require.Len(t, packets, 1)
	assert.Equal(t, big, packets[0])
}

func TestPacketReader_PacketSpanningPages(t *testing.T) {
	first := bytes.Repeat([]byte{1}, 255)
	rest := []byte{2, 2}

	var stream []byte
	stream = append(stream, oggPage([]byte{255}, first)...)
	stream = append(stream, oggPage([]byte{2, 1}, append(rest, 9))...)

	packets := readAll(t, NewPacketReader(bytes.NewReader(stream)))

	require.Len(t, packets, 2)
	assert.Equal(t, append(append([]byte{}, first...), rest...), packets[0])
	assert.Equal(t, []byte{9}, packets[1])
}

func TestPacketReader_SeveralPacketsPerPage(t *testing.T) {
	stream := oggPage([]byte{2, 3, 1}, []byte{1, 1, 2, 2, 2, 3})

	packets := readAll(t, NewPacketReader(bytes.NewReader(stream)))

	assert.Equal(t, [][]byte{{1, 1}, {2, 2, 2}, {3}}, packets)
}

func TestPacketReader_Errors(t *testing.T) {
	_, err := NewPacketReader(bytes.NewReader([]byte("RIFF....WAVEfmt unexpected data"))).Next()
	assert.ErrorIs(t, err, ErrNotOgg)

	truncated := oggStream([]byte{1, 2, 3})
	_, err = NewPacketReader(bytes.NewReader(truncated[:len(truncated)-2])).Next()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)

	_, err = NewPacketReader(bytes.NewReader(nil)).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendOpus(t *testing.T) {
	out := make(chan []byte, 10)

	err := SendOpus(context.Background(), bytes.NewReader(oggStream([]byte{1}, []byte{2})), out)
	require.NoError(t, err)
	close(out)

	var got [][]byte
	for pkt := range out {
		got = append(got, pkt)
	}
	assert.Equal(t, [][]byte{{1}, {2}}, got)
}

func TestSendOpus_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and never read
	out := make(chan []byte)

	err := SendOpus(ctx, bytes.NewReader(oggStream([]byte{1})), out)
	assert.ErrorIs(t, err, context.Canceled)
}
