// Package codec implements the on-disk record format shared by the entries
// file and the data file: the fixed-size Entry header/body, the variable
// length DataRecord, and the digest that binds them together.
package codec

import (
	"bytes"
	"fmt"

	"github.com/iamNilotpal/emberstore/pkg/errors"
	"github.com/iamNilotpal/emberstore/pkg/hasher"
)

// Magic is the fixed 4-byte prefix both files begin with.
var Magic = [4]byte{0xFA, 0xF2, 0xD6, 0x91}

// MagicSize is len(Magic), and doubles as the BlockDirectory/IntervalSet
// offset for both files.
const MagicSize = int64(len(Magic))

const (
	// EntryFormatVersion is the only legal value of an Entry's version byte.
	EntryFormatVersion byte = 0x00
	// DataRecordFormatVersion is the only legal value of a DataRecord's
	// format byte.
	DataRecordFormatVersion byte = 0x00

	// DataLocationSize is the packed width of a data_location field.
	DataLocationSize = 7
	// bodyFieldsSize is data_location || data_version || key_size || value_size.
	bodyFieldsSize = DataLocationSize + 4 + 4 + 4

	// HeaderSize is the entry_version byte plus the digest.
	HeaderSize = 1 + hasher.Size
	// BodySize is the 19-byte packed entry body hashed alongside the
	// DataRecord bytes.
	BodySize = bodyFieldsSize
	// EntrySize is the total fixed size of one on-disk Entry record.
	EntrySize = HeaderSize + BodySize

	// MaxDataLocation is the largest offset representable in 56 bits.
	MaxDataLocation = 1<<56 - 1
)

// EntryBody is the decoded 19-byte payload of an Entry, independent of its
// header's version byte and digest.
type EntryBody struct {
	DataLocation uint64
	DataVersion  uint32
	KeySize      uint32
	ValueSize    uint32
}

// packDataLocation renders loc as the on-disk 7-byte layout: a 6-byte
// big-endian value in bytes 0..5 and the 7th byte holding the high byte,
// together encoding a 56-bit unsigned offset.
func packDataLocation(loc uint64) [DataLocationSize]byte {
	if loc > MaxDataLocation {
		panic(fmt.Sprintf("codec: data_location %d exceeds 56 bits", loc))
	}
	var b [DataLocationSize]byte
	low48 := loc & 0xFFFFFFFFFFFF
	b[0] = byte(low48 >> 40)
	b[1] = byte(low48 >> 32)
	b[2] = byte(low48 >> 24)
	b[3] = byte(low48 >> 16)
	b[4] = byte(low48 >> 8)
	b[5] = byte(low48)
	b[6] = byte(loc >> 48)
	return b
}

func unpackDataLocation(b []byte) uint64 {
	low48 := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	high8 := uint64(b[6])
	return high8<<48 | low48
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// EncodeBody packs an EntryBody into its 19-byte on-disk layout.
func EncodeBody(body EntryBody) []byte {
	out := make([]byte, BodySize)
	loc := packDataLocation(body.DataLocation)
	copy(out[0:7], loc[:])
	putUint32(out[7:11], body.DataVersion)
	putUint32(out[11:15], body.KeySize)
	putUint32(out[15:19], body.ValueSize)
	return out
}

// DecodeBody unpacks a 19-byte on-disk body. Callers must ensure len(raw) ==
// BodySize before calling.
func DecodeBody(raw []byte) EntryBody {
	return EntryBody{
		DataLocation: unpackDataLocation(raw[0:7]),
		DataVersion:  getUint32(raw[7:11]),
		KeySize:      getUint32(raw[11:15]),
		ValueSize:    getUint32(raw[15:19]),
	}
}

// BuildDataRecord assembles a DataRecord: the format byte followed by the
// literal key and value bytes.
func BuildDataRecord(key, value []byte) []byte {
	out := make([]byte, 1+len(key)+len(value))
	out[0] = DataRecordFormatVersion
	copy(out[1:], key)
	copy(out[1+len(key):], value)
	return out
}

// SplitDataRecord validates and slices a DataRecord's format byte, key, and
// value given the sizes recorded in its Entry.
func SplitDataRecord(raw []byte, keySize, valueSize uint32) (key, value []byte, err error) {
	want := 1 + int64(keySize) + int64(valueSize)
	if int64(len(raw)) != want {
		return nil, nil, errors.NewCorruptionError(
			fmt.Errorf("codec: data record length %d, want %d", len(raw), want), 0, "data record length mismatch",
		)
	}
	if raw[0] != DataRecordFormatVersion {
		return nil, nil, errors.NewCorruptionError(
			fmt.Errorf("codec: data record format byte %#x", raw[0]), 0, "data record format mismatch",
		)
	}
	key = raw[1 : 1+keySize]
	value = raw[1+keySize:]
	return key, value, nil
}

// EncodeEntry produces the header and body bytes for a new Entry: the header
// is the format byte followed by the 16-byte digest over body||dataRecord,
// and the body is the packed EntryBody.
func EncodeEntry(h hasher.Hasher, body EntryBody, dataRecord []byte) (header, bodyBytes []byte) {
	bodyBytes = EncodeBody(body)
	digest := h.Sum16(bodyBytes, dataRecord)
	header = make([]byte, HeaderSize)
	header[0] = EntryFormatVersion
	copy(header[1:], digest[:])
	return header, bodyBytes
}

// DecodeEntry validates an Entry's version byte, the DataRecord's format
// byte, and the digest over body||dataRecord, returning the decoded body on
// success. Any failure is reported as a *errors.CorruptionError so load-time
// recovery can skip the offending entry and keep going.
func DecodeEntry(h hasher.Hasher, header, bodyBytes, dataRecord []byte, entryLocation int64) (EntryBody, error) {
	if len(header) != HeaderSize {
		return EntryBody{}, errors.NewCorruptionError(
			fmt.Errorf("codec: header length %d, want %d", len(header), HeaderSize), entryLocation, "entry header length mismatch",
		)
	}
	if header[0] != EntryFormatVersion {
		return EntryBody{}, errors.NewCorruptionError(
			fmt.Errorf("codec: entry_version %#x", header[0]), entryLocation, "entry version mismatch",
		)
	}
	if len(bodyBytes) != BodySize {
		return EntryBody{}, errors.NewCorruptionError(
			fmt.Errorf("codec: body length %d, want %d", len(bodyBytes), BodySize), entryLocation, "entry body length mismatch",
		)
	}
	if len(dataRecord) < 1 || dataRecord[0] != DataRecordFormatVersion {
		return EntryBody{}, errors.NewCorruptionError(
			fmt.Errorf("codec: data record format byte"), entryLocation, "data record format mismatch",
		)
	}

	want := h.Sum16(bodyBytes, dataRecord)
	got := header[1:HeaderSize]
	if !bytes.Equal(want[:], got) {
		return EntryBody{}, errors.NewCorruptionError(
			fmt.Errorf("codec: digest mismatch"), entryLocation, "entry digest mismatch",
		)
	}

	return DecodeBody(bodyBytes), nil
}
