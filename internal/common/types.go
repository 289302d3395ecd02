package common

// EntryType enumerates the pending operations an overlay slot can hold.
type EntryType uint8

const (
	EntryTypePut EntryType = iota
	EntryTypeDelete
)

// String returns the short operation label used by dumps.
func (t EntryType) String() string {
	switch t {
	case EntryTypePut:
		return "PUT"
	case EntryTypeDelete:
		return "DEL"
	default:
		return "???"
	}
}
