package api

import (
	"errors"

	"github.com/ssargent/howfar/pkg/archive"
	"github.com/ssargent/howfar/pkg/codec"
	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/ringfs"
	"github.com/ssargent/howfar/pkg/uf2"
)

// Failure classes used as metric labels
const (
	classContainer  = "container"
	classSize       = "size"
	classFilesystem = "filesystem"
	classVersion    = "version"
	classRecord     = "record"
)

var decodeFailures = []struct {
	err   error
	class string
}{
	{uf2.ErrPayloadTooLarge, classContainer},
	{uf2.ErrOutOfOrder, classContainer},
	{uf2.ErrPaddingTooLarge, classContainer},
	{uf2.ErrMisalignedPadding, classContainer},
	{uf2.ErrFlagMismatch, classContainer},
	{howfar.ErrImageSizeMismatch, classSize},
	{ringfs.ErrTruncatedImage, classFilesystem},
	{ringfs.ErrCorrupted, classFilesystem},
	{ringfs.ErrEmptyFilesystem, classFilesystem},
	{ringfs.ErrNoRecordCapacity, classFilesystem},
	{ringfs.ErrUnsupportedVersion, classVersion},
	{codec.ErrSizeMismatch, classRecord},
	{archive.ErrNoTimestamp, classRecord},
}

// decodeFailureClass reports which stage rejected an upload, or "" when the
// error is not caused by the uploaded data
func decodeFailureClass(err error) string {
	for _, f := range decodeFailures {
		if errors.Is(err, f.err) {
			return f.class
		}
	}
	return ""
}
