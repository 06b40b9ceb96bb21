package ir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/hyperion-engine/hyperion/version"
)

// ---------------------------------------------------------------------------
// Compiled module storage: magic + version requirement + canonical CBOR
// ---------------------------------------------------------------------------

// Magic identifies compiled module storage.
var Magic = []byte{0x7F, 'H', 'Y', 'M', 'O', 'D', 'I', 'R'}

// Storage wraps a module with the diagnostic filenames it was compiled
// from. This is the unit written to disk or handed to the backend.
type Storage struct {
	Filenames []string `cbor:"filenames"`
	Module    Module   `cbor:"module"`
}

// cborEncMode uses canonical encoding so identical modules always encode
// to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes the storage: the magic bytes, a NUL-terminated exact
// version requirement for the producing engine, then the canonical CBOR
// body. Encoding is deterministic for a given storage and version.
func (s *Storage) Encode(engine version.Version) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic)
	buf.WriteString("=" + engine.String())
	buf.WriteByte(0)

	body, err := cborEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("ir: marshal module storage: %w", err)
	}
	buf.Write(body)

	return buf.Bytes(), nil
}

// moduleNamespace is the UUID namespace under which module identities are
// derived.
var moduleNamespace = uuid.MustParse("8b5aa996-d0fb-4735-9ed8-d44b85d1a074")

// ContentUUID derives the module's identity from its content: the module
// is encoded with a zeroed UUID and hashed into a name-based UUID. Equal
// modules therefore share an identity.
func ContentUUID(m *Module) uuid.UUID {
	stripped := *m
	stripped.UUID = uuid.UUID{}
	body, err := cborEncMode.Marshal(&stripped)
	if err != nil {
		// Module structures contain no unmarshalable types.
		panic(fmt.Sprintf("ir: marshal for content UUID: %v", err))
	}
	return uuid.NewSHA1(moduleNamespace, body)
}

// DecodeStorage deserializes compiled module storage, verifying the magic
// bytes and that engine satisfies the recorded version requirement.
func DecodeStorage(data []byte, engine version.Version) (*Storage, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], Magic) {
		return nil, fmt.Errorf("ir: invalid magic bytes in module storage")
	}
	rest := data[len(Magic):]

	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return nil, fmt.Errorf("ir: unterminated version requirement in module storage")
	}
	req, err := parseRequirement(string(rest[:nul]))
	if err != nil {
		return nil, fmt.Errorf("ir: %w", err)
	}
	if !req.Contains(engine) {
		return nil, fmt.Errorf("ir: incompatible module storage: requires %s, engine is %s", req, engine)
	}

	var s Storage
	if err := cbor.Unmarshal(rest[nul+1:], &s); err != nil {
		return nil, fmt.Errorf("ir: unmarshal module storage: %w", err)
	}
	return &s, nil
}

// parseRequirement parses "=M.m.p" (exact) or ">=M.m.p" (minimum).
func parseRequirement(s string) (version.Range, error) {
	switch {
	case strings.HasPrefix(s, ">="):
		v, err := version.Parse(s[2:])
		if err != nil {
			return version.Range{}, fmt.Errorf("invalid version requirement %q: %w", s, err)
		}
		return version.AtLeast(v), nil
	case strings.HasPrefix(s, "="):
		v, err := version.Parse(s[1:])
		if err != nil {
			return version.Range{}, fmt.Errorf("invalid version requirement %q: %w", s, err)
		}
		return version.Exactly(v), nil
	default:
		return version.Range{}, fmt.Errorf("invalid version requirement %q", s)
	}
}
