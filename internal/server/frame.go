package server

import (
	"encoding/binary"
	"fmt"
)

// FrameMagic starts every binary frame message on /ws
const FrameMagic = "TSC1"

// FrameHeaderSize is the fixed header length of a frame message
const FrameHeaderSize = 16

// FrameHeader describes the pixels following it in a frame message.
// All fields are little-endian uint32 after the 4-byte magic.
type FrameHeader struct {
	Width    int
	Height   int
	Sequence uint32
}

// EncodeFrameMessage builds a binary frame message: header, then
// width*height little-endian uint16 pixels.
func EncodeFrameMessage(h FrameHeader, pix []uint16) ([]byte, error) {
	if len(pix) != h.Width*h.Height {
		return nil, fmt.Errorf("frame has %d pixels, header says %dx%d", len(pix), h.Width, h.Height)
	}

	msg := make([]byte, FrameHeaderSize+2*len(pix))
	copy(msg, FrameMagic)
	binary.LittleEndian.PutUint32(msg[4:], uint32(h.Width))
	binary.LittleEndian.PutUint32(msg[8:], uint32(h.Height))
	binary.LittleEndian.PutUint32(msg[12:], h.Sequence)

	body := msg[FrameHeaderSize:]
	for i, p := range pix {
		binary.LittleEndian.PutUint16(body[2*i:], p)
	}
	return msg, nil
}

// DecodeFrameHeader parses and checks the header of a frame message
func DecodeFrameHeader(msg []byte) (FrameHeader, error) {
	if len(msg) < FrameHeaderSize {
		return FrameHeader{}, fmt.Errorf("frame message too short: %d bytes", len(msg))
	}
	if string(msg[:4]) != FrameMagic {
		return FrameHeader{}, fmt.Errorf("bad frame magic %q", msg[:4])
	}

	h := FrameHeader{
		Width:    int(binary.LittleEndian.Uint32(msg[4:])),
		Height:   int(binary.LittleEndian.Uint32(msg[8:])),
		Sequence: binary.LittleEndian.Uint32(msg[12:]),
	}
	if want := FrameHeaderSize + 2*h.Width*h.Height; len(msg) != want {
		return h, fmt.Errorf("frame message is %d bytes, want %d for %dx%d", len(msg), want, h.Width, h.Height)
	}
	return h, nil
}
