package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"mediadup/internal/keypoint"
	"mediadup/internal/videofp"
)

// Blob layouts are fixed-width big-endian: a uint32 element count followed
// by the packed elements. Empty slices encode as NULL so unused columns
// cost nothing.

const maxBlobElements = 1 << 20

func encodeCounted(v any, count int) []byte {
	if count == 0 {
		return nil
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(count))
	_ = binary.Write(&buf, binary.BigEndian, v)
	return buf.Bytes()
}

func decodeCount(blob []byte, itemSize int) (int, []byte, error) {
	if len(blob) < 4 {
		return 0, nil, fmt.Errorf("blob shorter than header: %d bytes", len(blob))
	}
	count := int(binary.BigEndian.Uint32(blob))
	if count <= 0 || count > maxBlobElements {
		return 0, nil, fmt.Errorf("implausible element count %d", count)
	}
	payload := blob[4:]
	if len(payload) != count*itemSize {
		return 0, nil, fmt.Errorf("blob size %d does not match %d elements of %d bytes",
			len(payload), count, itemSize)
	}
	return count, payload, nil
}

func encodeFrameHashes(hashes []uint64) []byte {
	return encodeCounted(hashes, len(hashes))
}

func decodeFrameHashes(blob []byte) ([]uint64, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	count, payload, err := decodeCount(blob, 8)
	if err != nil {
		return nil, err
	}
	hashes := make([]uint64, count)
	if err := binary.Read(bytes.NewReader(payload), binary.BigEndian, hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// descriptorSize is X+Y as uint16 plus four 64-bit words.
const descriptorSize = 2 + 2 + 4*8

func encodeKeypoints(descriptors []keypoint.Descriptor) []byte {
	return encodeCounted(descriptors, len(descriptors))
}

func decodeKeypoints(blob []byte) ([]keypoint.Descriptor, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	count, payload, err := decodeCount(blob, descriptorSize)
	if err != nil {
		return nil, err
	}
	descriptors := make([]keypoint.Descriptor, count)
	if err := binary.Read(bytes.NewReader(payload), binary.BigEndian, descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// spectralFrameSize is BandCount band energies plus the cached norm.
const spectralFrameSize = (videofp.BandCount + 1) * 8

func encodeAudioFrames(frames []videofp.SpectralFrame) []byte {
	return encodeCounted(frames, len(frames))
}

func decodeAudioFrames(blob []byte) ([]videofp.SpectralFrame, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	count, payload, err := decodeCount(blob, spectralFrameSize)
	if err != nil {
		return nil, err
	}
	frames := make([]videofp.SpectralFrame, count)
	if err := binary.Read(bytes.NewReader(payload), binary.BigEndian, frames); err != nil {
		return nil, err
	}
	return frames, nil
}
