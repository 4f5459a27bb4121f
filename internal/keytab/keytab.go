// Package keytab implements the MIT keytab binary file format (version 0x0502).
//
// gokrb5/v8/keytab's public API can only add an entry derived from a principal's
// default salt; the enrollment core's salt auto-discovery (spec.md §4.6) needs to
// write entries keyed by whichever salt candidate it found to work, including the
// Windows-2003 computer salt and the null salt, neither of which is a principal's
// default. This package owns serialization only — every key it writes comes from
// gokrb5/v8/crypto's key derivation, so the cryptography itself still runs through
// the same third-party stack the rest of the module uses.
package keytab

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// FileFormatVersion is the MIT keytab file format this codec reads and writes.
const FileFormatVersion uint16 = 0x0502

// Key is a single derived encryption key for one enctype.
type Key struct {
	EncType  int32
	KeyValue []byte
}

// Entry is one (principal, enctype, kvno) keytab record.
type Entry struct {
	Principal []string // name components, e.g. ["host", "srv01.example.com"]
	Realm     string
	NameType  int32 // krb5 KRB5_NT_* constant; KRB5_NT_PRINCIPAL (1) for ordinary principals
	Timestamp time.Time
	KVNO      uint8
	Key       Key
}

// PrincipalString renders the entry's principal in "primary/instance@REALM" form.
func (e Entry) PrincipalString() string {
	name := ""
	for i, c := range e.Principal {
		if i > 0 {
			name += "/"
		}
		name += c
	}
	return name + "@" + e.Realm
}

// Keytab is an in-memory MIT keytab file.
type Keytab struct {
	Version uint16
	Entries []Entry
}

// New returns an empty keytab at the standard file format version.
func New() *Keytab {
	return &Keytab{Version: FileFormatVersion}
}

// AddEntry appends one entry to the keytab. It does not deduplicate; callers that
// need replace-on-write semantics should Prune first.
func (kt *Keytab) AddEntry(e Entry) {
	kt.Entries = append(kt.Entries, e)
}

// Prune removes every entry matching principal/realm whose kvno is not keepKVNO.
// It returns the number of entries removed. Keeping the immediately previous
// version (kvno-1) while writing the new one preserves in-flight sessions that
// authenticated with the old key, per spec.md §4.6's prune step.
func (kt *Keytab) Prune(principal []string, realm string, keepKVNO uint8) int {
	kept := kt.Entries[:0]
	removed := 0
	for _, e := range kt.Entries {
		if matchesPrincipal(e, principal, realm) && e.KVNO != keepKVNO {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	kt.Entries = kept
	return removed
}

func matchesPrincipal(e Entry, principal []string, realm string) bool {
	if e.Realm != realm || len(e.Principal) != len(principal) {
		return false
	}
	for i := range principal {
		if e.Principal[i] != principal[i] {
			return false
		}
	}
	return true
}

// Marshal serializes the keytab to its on-disk binary representation.
func (kt *Keytab) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, kt.Version); err != nil {
		return nil, fmt.Errorf("keytab: write version: %w", err)
	}

	for i, e := range kt.Entries {
		body, err := marshalEntry(e)
		if err != nil {
			return nil, fmt.Errorf("keytab: marshal entry %d (%s): %w", i, e.PrincipalString(), err)
		}
		if err := binary.Write(&buf, binary.BigEndian, int32(len(body))); err != nil {
			return nil, fmt.Errorf("keytab: write entry length: %w", err)
		}
		buf.Write(body)
	}

	return buf.Bytes(), nil
}

func marshalEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(e.Principal))); err != nil {
		return nil, err
	}
	if err := writeCountedString(&buf, e.Realm); err != nil {
		return nil, err
	}
	for _, component := range e.Principal {
		if err := writeCountedString(&buf, component); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, e.NameType); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(e.Timestamp.Unix())); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(e.KVNO); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(e.Key.EncType)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(e.Key.KeyValue))); err != nil {
		return nil, err
	}
	buf.Write(e.Key.KeyValue)
	// 32-bit kvno extension: always written, carrying the same value as the 8-bit field.
	if err := binary.Write(&buf, binary.BigEndian, uint32(e.KVNO)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeCountedString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

// Unmarshal parses an MIT keytab file's binary content.
func Unmarshal(data []byte) (*Keytab, error) {
	r := bytes.NewReader(data)

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("keytab: read version: %w", err)
	}
	if version != FileFormatVersion {
		return nil, fmt.Errorf("keytab: unsupported file format version %#04x", version)
	}

	kt := &Keytab{Version: version}

	for r.Len() > 0 {
		var size int32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("keytab: read entry size: %w", err)
		}
		if size < 0 {
			// Hole left by a deleted entry: skip abs(size) bytes.
			if _, err := r.Seek(int64(-size), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("keytab: skip deleted entry: %w", err)
			}
			continue
		}

		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("keytab: read entry body: %w", err)
		}
		entry, err := unmarshalEntry(body)
		if err != nil {
			return nil, fmt.Errorf("keytab: unmarshal entry: %w", err)
		}
		kt.Entries = append(kt.Entries, entry)
	}

	return kt, nil
}

func unmarshalEntry(body []byte) (Entry, error) {
	r := bytes.NewReader(body)
	var e Entry

	var numComponents uint16
	if err := binary.Read(r, binary.BigEndian, &numComponents); err != nil {
		return e, err
	}

	realm, err := readCountedString(r)
	if err != nil {
		return e, err
	}
	e.Realm = realm

	e.Principal = make([]string, numComponents)
	for i := range e.Principal {
		component, err := readCountedString(r)
		if err != nil {
			return e, err
		}
		e.Principal[i] = component
	}

	if err := binary.Read(r, binary.BigEndian, &e.NameType); err != nil {
		return e, err
	}

	var ts uint32
	if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
		return e, err
	}
	e.Timestamp = time.Unix(int64(ts), 0).UTC()

	vno8, err := r.ReadByte()
	if err != nil {
		return e, err
	}
	e.KVNO = vno8

	var encType uint16
	if err := binary.Read(r, binary.BigEndian, &encType); err != nil {
		return e, err
	}
	e.Key.EncType = int32(encType)

	var keyLen uint16
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return e, err
	}
	e.Key.KeyValue = make([]byte, keyLen)
	if _, err := io.ReadFull(r, e.Key.KeyValue); err != nil {
		return e, err
	}

	// Optional 32-bit kvno, present only if the entry has trailing bytes left.
	if r.Len() >= 4 {
		var vno32 uint32
		if err := binary.Read(r, binary.BigEndian, &vno32); err == nil && vno32 != 0 {
			e.KVNO = uint8(vno32)
		}
	}

	return e, nil
}

func readCountedString(r *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Load reads a keytab file from disk.
func Load(path string) (*Keytab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keytab: read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Save writes the keytab to disk with 0600 permissions, since it contains key
// material equivalent to a plaintext password.
func (kt *Keytab) Save(path string) error {
	data, err := kt.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keytab: write %s: %w", path, err)
	}
	return nil
}
