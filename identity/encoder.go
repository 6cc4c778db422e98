package identity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	profileFormatVersionCurrent = 2
	profileFormatVersionV1      = 1
)

const (
	flagVerified byte = 1 << iota
	flagLocked
)

const maxEncodedRoles = 255

// ErrCorruptProfile is returned by Decode for unknown versions and truncated blobs.
var ErrCorruptProfile = errors.New("corrupt identity profile")

// Encode serializes the profile fields of id. savedAt is stored as unix seconds.
func Encode(id *Identity, savedAt int64) ([]byte, error) {
	if id == nil {
		return nil, errors.New("identity is nil")
	}

	var buf bytes.Buffer
	buf.WriteByte(profileFormatVersionCurrent)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"id", id.ID},
		{"email", id.Email},
		{"name", id.Name},
	} {
		if err := writeString(&buf, field.name, field.value); err != nil {
			return nil, err
		}
	}

	if len(id.Roles) > maxEncodedRoles {
		return nil, errors.New("too many roles")
	}
	buf.WriteByte(byte(len(id.Roles)))
	for _, r := range id.Roles {
		if err := writeString(&buf, "role", r); err != nil {
			return nil, err
		}
	}

	var flags byte
	if id.IsVerified {
		flags |= flagVerified
	}
	if id.IsLocked {
		flags |= flagLocked
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, savedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob written by Encode. v1 blobs carry no saved-at timestamp and
// decode with savedAt 0.
func Decode(data []byte) (*Identity, int64, error) {
	id, savedAt, err := decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptProfile, err)
	}
	return id, savedAt, nil
}

func decode(data []byte) (*Identity, int64, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	if version != profileFormatVersionCurrent && version != profileFormatVersionV1 {
		return nil, 0, fmt.Errorf("invalid profile version %d", version)
	}

	id := &Identity{}
	if id.ID, err = readString(reader); err != nil {
		return nil, 0, err
	}
	if id.ID == "" {
		return nil, 0, errors.New("empty identity id")
	}
	if id.Email, err = readString(reader); err != nil {
		return nil, 0, err
	}
	if id.Name, err = readString(reader); err != nil {
		return nil, 0, err
	}

	roleCount, err := reader.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	id.Roles = make([]string, 0, roleCount)
	for range int(roleCount) {
		r, err := readString(reader)
		if err != nil {
			return nil, 0, err
		}
		id.Roles = append(id.Roles, r)
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	id.IsVerified = flags&flagVerified != 0
	id.IsLocked = flags&flagLocked != 0

	var savedAt int64
	if version == profileFormatVersionCurrent {
		if err := binary.Read(reader, binary.BigEndian, &savedAt); err != nil {
			return nil, 0, err
		}
	}

	if reader.Len() != 0 {
		return nil, 0, errors.New("trailing bytes")
	}

	return id, savedAt, nil
}

func writeString(buf *bytes.Buffer, name, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("%s too long", name)
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
