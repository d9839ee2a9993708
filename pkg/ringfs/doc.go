// Package ringfs reads RingFS flash images as written by the HowFar firmware.
//
// RingFS is a wear-leveling ring of 4096 byte sectors. Each sector starts with
// a header page carrying a status word and a format version; the remaining
// pages each hold one slot, a status word followed by fixed-size records.
// Exactly one sector is normally "free": it marks the wrap point, so the
// oldest data lives in the sector right after it.
//
// This package only reads. Open scans the sector headers once, checks that all
// in-use sectors agree on the format version, resolves that version through a
// Registry and computes how many records fit in a slot. Records then walks the
// ring from the oldest sector and yields every written record of every valid
// slot, decoded and interpreted by the version's Decoder.
//
//	fs, err := ringfs.Open(flash, registry)
//	if err != nil {
//	    return err
//	}
//	it := fs.Records()
//	defer it.Close()
//	for it.Next() {
//	    fmt.Println(it.Record().Values)
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
//
// Structural problems (mismatched versions, unknown version, truncated image)
// are reported as typed errors that match the package sentinels with
// errors.Is.
package ringfs
