// Package index models the registry's line-of-record for published package
// versions (C5): the JSON document shape shared by both index transports,
// and decoders for the binary private-index wire format and the JSON
// directory public-index format (§6).
package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/plow-dev/plow/internal/semver"
)

// IndexedDependencySpec is one dependency entry of a published version,
// serializing as "<full_name> <req>".
type IndexedDependencySpec struct {
	FullName    string
	Requirement string
}

// MarshalJSON renders the spec as its wire string form.
func (d IndexedDependencySpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%s %s", d.FullName, d.Requirement))
}

// UnmarshalJSON parses the "<full_name> <req>" wire string form.
func (d *IndexedDependencySpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	name, req, err := splitDependencySpec(s)
	if err != nil {
		return err
	}
	d.FullName = name
	d.Requirement = req
	return nil
}

func splitDependencySpec(s string) (name, req string, err error) {
	for i, r := range s {
		if r == ' ' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed dependency spec %q: expected \"<full_name> <req>\"", s)
}

// EntryKind distinguishes a public-index entry from a private one in the
// binary wire format.
type EntryKind uint8

const (
	// KindPublic marks an entry sourced from the public git index.
	KindPublic EntryKind = 0
	// KindPrivate marks an entry sourced from the private HTTP registry.
	KindPrivate EntryKind = 1
)

// IndexedPackageVersion is the registry's line-of-record for one published
// version of a package.
type IndexedPackageVersion struct {
	Name        string                  `json:"name"`
	Version     string                  `json:"version"`
	Cksum       string                  `json:"cksum"`
	OntologyIRI string                  `json:"ontology_iri,omitempty"`
	Deps        []IndexedDependencySpec `json:"deps"`
}

// ParsedVersion parses Version into a semver.Version, failing if it is not
// a complete, exact version.
func (v IndexedPackageVersion) ParsedVersion() (semver.Version, error) {
	parsed, completeness, err := semver.Parse(v.Version)
	if err != nil {
		return semver.Version{}, err
	}
	if completeness != semver.Complete {
		return semver.Version{}, fmt.Errorf("index entry version %q is not a complete version", v.Version)
	}
	return parsed, nil
}

// packageIndexDocument is the public/JSON index file shape: one file per
// package under "<namespace>/<name>.json".
type packageIndexDocument struct {
	Versions []IndexedPackageVersion `json:"versions"`
}

// DecodeJSONIndex decodes a single package's public index document.
func DecodeJSONIndex(r io.Reader) ([]IndexedPackageVersion, error) {
	var doc packageIndexDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding json index: %w", err)
	}
	return doc.Versions, nil
}

// BinaryIndexLine is one decoded private-index line: its kind and the
// package version entry it carries.
type BinaryIndexLine struct {
	Kind  EntryKind
	Entry IndexedPackageVersion
}

// BinaryIndex is the fully decoded contents of one private-index line
// format document (§6): "<index_name>\0<cache_version:u8><index_format:u32
// LE>\0<update_token>\0(<version>\0<kind:u8><entry_json>\0)*".
type BinaryIndex struct {
	Name         string
	CacheVersion uint8
	IndexFormat  uint32
	UpdateToken  string
	Lines        []BinaryIndexLine
}

// supportedCacheVersion and supportedIndexFormat are the only values the
// engine currently understands; anything else is rejected rather than
// guessed at.
const (
	supportedCacheVersion = uint8(1)
	supportedIndexFormat  = uint32(1)
)

// DecodeBinaryIndex decodes the private, binary, line-delimited index
// format.
func DecodeBinaryIndex(r io.Reader) (*BinaryIndex, error) {
	br := bufio.NewReader(r)

	name, err := readNulTerminated(br)
	if err != nil {
		return nil, fmt.Errorf("reading index name: %w", err)
	}

	header := make([]byte, 5)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	cacheVersion := header[0]
	indexFormat := binary.LittleEndian.Uint32(header[1:5])
	if cacheVersion != supportedCacheVersion {
		return nil, fmt.Errorf("unsupported index cache_version %d", cacheVersion)
	}
	if indexFormat != supportedIndexFormat {
		return nil, fmt.Errorf("unsupported index_format %d", indexFormat)
	}

	// The header's trailing NUL separates it from update_token.
	if b, err := br.ReadByte(); err != nil || b != 0 {
		return nil, fmt.Errorf("malformed index header: missing separator")
	}

	updateToken, err := readNulTerminated(br)
	if err != nil {
		return nil, fmt.Errorf("reading update token: %w", err)
	}

	idx := &BinaryIndex{
		Name:         name,
		CacheVersion: cacheVersion,
		IndexFormat:  indexFormat,
		UpdateToken:  updateToken,
	}

	for {
		version, err := readNulTerminated(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading version field: %w", err)
		}
		if version == "" && isAtEOF(br) {
			break
		}

		kindByte, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading entry kind: %w", err)
		}

		entryJSON, err := readNulTerminated(br)
		if err != nil {
			return nil, fmt.Errorf("reading entry json: %w", err)
		}

		var entry IndexedPackageVersion
		if err := json.Unmarshal([]byte(entryJSON), &entry); err != nil {
			return nil, fmt.Errorf("decoding entry json for version %s: %w", version, err)
		}

		idx.Lines = append(idx.Lines, BinaryIndexLine{
			Kind:  EntryKind(kindByte),
			Entry: entry,
		})
	}

	return idx, nil
}

func isAtEOF(br *bufio.Reader) bool {
	_, err := br.Peek(1)
	return err == io.EOF
}

func readNulTerminated(br *bufio.Reader) (string, error) {
	data, err := br.ReadBytes(0)
	if err != nil {
		if err == io.EOF && len(data) == 0 {
			return "", io.EOF
		}
		return "", err
	}
	return string(bytes.TrimSuffix(data, []byte{0})), nil
}

// EncodeBinaryIndex serializes idx back to the wire format, primarily for
// tests exercising DecodeBinaryIndex.
func EncodeBinaryIndex(w io.Writer, idx *BinaryIndex) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(idx.Name); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	if err := bw.WriteByte(idx.CacheVersion); err != nil {
		return err
	}
	var formatBytes [4]byte
	binary.LittleEndian.PutUint32(formatBytes[:], idx.IndexFormat)
	if _, err := bw.Write(formatBytes[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	if _, err := bw.WriteString(idx.UpdateToken); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	for _, line := range idx.Lines {
		if _, err := bw.WriteString(line.Entry.Version); err != nil {
			return err
		}
		if err := bw.WriteByte(0); err != nil {
			return err
		}
		if err := bw.WriteByte(byte(line.Kind)); err != nil {
			return err
		}
		entryJSON, err := json.Marshal(line.Entry)
		if err != nil {
			return err
		}
		if _, err := bw.Write(entryJSON); err != nil {
			return err
		}
		if err := bw.WriteByte(0); err != nil {
			return err
		}
	}
	return bw.Flush()
}
