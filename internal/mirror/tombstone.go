package mirror

import (
	"strings"
	"time"
)

// Tombstone naming convention. A superseded file is renamed, never deleted:
//
//	report.pdf[MODIFIED 202603151204]
//	report.pdf[DELETED 202603151204]
//	report.pdf[DELETED 202603151204].empty   (file was already absent)
//
// Names carrying either marker are excluded from all diff comparisons.
const (
	modifiedMarker = "[MODIFIED "
	deletedMarker  = "[DELETED "

	markerTimeLayout  = "200601021504"
	emptyMarkerSuffix = ".empty"
)

// IsTombstone reports whether a path or file name carries a tombstone marker
func IsTombstone(name string) bool {
	return strings.Contains(name, modifiedMarker) || strings.Contains(name, deletedMarker)
}

// ModifiedName returns the tombstone name for a superseded file. The
// timestamp is the remote object's last-modified time.
func ModifiedName(path string, at time.Time) string {
	return path + modifiedMarker + at.UTC().Format(markerTimeLayout) + "]"
}

// DeletedName returns the tombstone name for a remotely deleted file. The
// timestamp is the detection time.
func DeletedName(path string, at time.Time) string {
	return path + deletedMarker + at.UTC().Format(markerTimeLayout) + "]"
}

// DeletedMarkerName returns the name of the zero-byte marker written when a
// deletion is detected but the local file is already absent
func DeletedMarkerName(path string, at time.Time) string {
	return DeletedName(path, at) + emptyMarkerSuffix
}
