package archive

import (
	"encoding/binary"

	"github.com/segmentio/ksuid"
)

// Key prefixes. Capture IDs are KSUIDs, so capture keys sort by import time.
const (
	prefixCapture = 'c'
	prefixDigest  = 'd'
	prefixRecord  = 'r'
	prefixVersion = 'v'
	prefixRaw     = 'z'
)

func captureKey(id ksuid.KSUID) []byte {
	return append([]byte{prefixCapture, '/'}, id.Bytes()...)
}

// digestKey maps a stream fingerprint to the capture holding it
func digestKey(sum [32]byte) []byte {
	return append([]byte{prefixDigest, '/'}, sum[:]...)
}

func rawKey(id ksuid.KSUID) []byte {
	return append([]byte{prefixRaw, '/'}, id.Bytes()...)
}

func versionKey(version uint32) []byte {
	return binary.BigEndian.AppendUint32([]byte{prefixVersion, '/'}, version)
}

// recordKey orders measurements by version, then timestamp
func recordKey(version, timestamp uint32) []byte {
	key := binary.BigEndian.AppendUint32([]byte{prefixRecord, '/'}, version)
	return binary.BigEndian.AppendUint32(key, timestamp)
}

// prefixBounds returns [lower, upper) covering every key with prefix p
func prefixBounds(p byte) ([]byte, []byte) {
	return []byte{p, '/'}, []byte{p, '/' + 1}
}

// recordBounds covers timestamps from..to inclusive of one version
func recordBounds(version, from, to uint32) ([]byte, []byte) {
	lower := recordKey(version, from)
	if to == ^uint32(0) {
		if version == ^uint32(0) {
			_, upper := prefixBounds(prefixRecord)
			return lower, upper
		}
		return lower, recordKey(version+1, 0)
	}
	return lower, recordKey(version, to+1)
}

func timestampOf(key []byte) uint32 {
	return binary.BigEndian.Uint32(key[len(key)-4:])
}
