// PLY (Polygon File Format) parser for scanned and exported meshes.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
	ErrMissingPLYVertex     = errors.New("PLY vertex element lacks x/y/z properties")
	ErrInvalidPLYHeader     = errors.New("invalid PLY header")
)

// PLYFormat is the body encoding declared in the header.
type PLYFormat int

const (
	PLYASCII PLYFormat = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// String returns the header keyword for the format.
func (f PLYFormat) String() string {
	switch f {
	case PLYASCII:
		return "ascii"
	case PLYBinaryLittleEndian:
		return "binary_little_endian"
	case PLYBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// PLY holds the geometry read from a PLY file.
type PLY struct {
	Format   PLYFormat
	Comments []string
	Vertices [][3]float32
	Faces    [][]uint32
}

type plyProperty struct {
	name     string
	typ      string // scalar type, or item type for lists
	list     bool
	countTyp string
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// LoadPLY reads and parses a PLY file from disk.
func LoadPLY(path string) (*PLY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	return ParsePLY(data)
}

// ParsePLY parses PLY data from a byte slice.
func ParsePLY(data []byte) (*PLY, error) {
	if !bytes.HasPrefix(data, []byte("ply\n")) && !bytes.HasPrefix(data, []byte("ply\r\n")) {
		return nil, ErrInvalidPLYMagic
	}

	const endHeader = "end_header"
	idx := bytes.Index(data, []byte(endHeader))
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing end_header", ErrInvalidPLYHeader)
	}
	bodyStart := idx + len(endHeader)
	if bodyStart < len(data) && data[bodyStart] == '\r' {
		bodyStart++
	}
	if bodyStart < len(data) && data[bodyStart] == '\n' {
		bodyStart++
	}

	ply := &PLY{}
	elements, err := parsePLYHeader(string(data[:idx]), ply)
	if err != nil {
		return nil, err
	}

	var src plyValueSource
	switch ply.Format {
	case PLYASCII:
		src = &plyASCIISource{fields: strings.Fields(string(data[bodyStart:]))}
	case PLYBinaryLittleEndian:
		src = &plyBinarySource{r: bytes.NewReader(data[bodyStart:]), order: binary.LittleEndian}
	case PLYBinaryBigEndian:
		src = &plyBinarySource{r: bytes.NewReader(data[bodyStart:]), order: binary.BigEndian}
	}

	for _, el := range elements {
		if err := readPLYElement(src, el, ply); err != nil {
			return nil, fmt.Errorf("reading element %q: %w", el.name, err)
		}
	}

	return ply, nil
}

func parsePLYHeader(header string, ply *PLY) ([]*plyElement, error) {
	var elements []*plyElement
	var current *plyElement
	formatSeen := false

	lines := strings.Split(strings.ReplaceAll(header, "\r\n", "\n"), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			switch fields[1] {
			case "ascii":
				ply.Format = PLYASCII
			case "binary_little_endian":
				ply.Format = PLYBinaryLittleEndian
			case "binary_big_endian":
				ply.Format = PLYBinaryBigEndian
			default:
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, fields[1])
			}
			if fields[2] != "1.0" {
				return nil, fmt.Errorf("%w: version %s", ErrUnsupportedPLYFormat, fields[2])
			}
			formatSeen = true
		case "comment", "obj_info":
			ply.Comments = append(ply.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: bad element count %q", ErrInvalidPLYHeader, fields[2])
			}
			current = &plyElement{name: fields[1], count: count}
			elements = append(elements, current)
		case "property":
			if current == nil {
				return nil, fmt.Errorf("%w: property before element", ErrInvalidPLYHeader)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return nil, err
			}
			current.props = append(current.props, prop)
		default:
			return nil, fmt.Errorf("%w: unknown keyword %q", ErrInvalidPLYHeader, fields[0])
		}
	}

	if !formatSeen {
		return nil, fmt.Errorf("%w: missing format line", ErrInvalidPLYHeader)
	}
	return elements, nil
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	if len(fields) >= 5 && fields[1] == "list" {
		if plyTypeSize(fields[2]) == 0 || plyTypeSize(fields[3]) == 0 {
			return plyProperty{}, fmt.Errorf("%w: list types %s %s", ErrInvalidPLYHeader, fields[2], fields[3])
		}
		return plyProperty{name: fields[4], list: true, countTyp: fields[2], typ: fields[3]}, nil
	}
	if len(fields) != 3 || plyTypeSize(fields[1]) == 0 {
		return plyProperty{}, fmt.Errorf("%w: property %q", ErrInvalidPLYHeader, strings.Join(fields, " "))
	}
	return plyProperty{name: fields[2], typ: fields[1]}, nil
}

// plyTypeSize returns the byte size of a PLY scalar type, or 0 if unknown.
func plyTypeSize(typ string) int {
	switch typ {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

func readPLYElement(src plyValueSource, el *plyElement, ply *PLY) error {
	xi, yi, zi := -1, -1, -1
	faceProp := -1
	for i, p := range el.props {
		switch {
		case el.name == "vertex" && p.name == "x":
			xi = i
		case el.name == "vertex" && p.name == "y":
			yi = i
		case el.name == "vertex" && p.name == "z":
			zi = i
		case el.name == "face" && p.list && (p.name == "vertex_indices" || p.name == "vertex_index"):
			faceProp = i
		}
	}
	if el.name == "vertex" && (xi < 0 || yi < 0 || zi < 0) {
		return ErrMissingPLYVertex
	}

	if len(el.props) == 0 {
		return nil
	}

	// Every record needs at least one value per property; reject counts the
	// body cannot hold before allocating for them.
	minRecord := 0
	for _, p := range el.props {
		if p.list {
			minRecord += src.cost(p.countTyp)
		} else {
			minRecord += src.cost(p.typ)
		}
	}
	if el.count > src.left()/minRecord {
		return fmt.Errorf("%w: %d records declared, body holds at most %d", ErrTruncatedPLYData, el.count, src.left()/minRecord)
	}

	if el.name == "vertex" {
		ply.Vertices = make([][3]float32, 0, el.count)
	}
	if el.name == "face" {
		ply.Faces = make([][]uint32, 0, el.count)
	}

	for n := 0; n < el.count; n++ {
		var pos [3]float32
		var face []uint32
		for i, p := range el.props {
			if p.list {
				cnt, err := src.next(p.countTyp)
				if err != nil {
					return err
				}
				if cnt < 0 || cnt > float64(src.left()/src.cost(p.typ)) {
					return fmt.Errorf("%w: list length %v", ErrTruncatedPLYData, cnt)
				}
				items := make([]uint32, int(cnt))
				for k := range items {
					v, err := src.next(p.typ)
					if err != nil {
						return err
					}
					items[k] = uint32(v)
				}
				if i == faceProp {
					face = items
				}
				continue
			}
			v, err := src.next(p.typ)
			if err != nil {
				return err
			}
			switch i {
			case xi:
				pos[0] = float32(v)
			case yi:
				pos[1] = float32(v)
			case zi:
				pos[2] = float32(v)
			}
		}
		switch el.name {
		case "vertex":
			ply.Vertices = append(ply.Vertices, pos)
		case "face":
			if faceProp >= 0 {
				ply.Faces = append(ply.Faces, face)
			}
		}
	}
	return nil
}

// plyValueSource yields successive scalar values from a PLY body.
type plyValueSource interface {
	next(typ string) (float64, error)
	// cost is the body units one value of typ takes; left is the units remaining.
	cost(typ string) int
	left() int
}

type plyASCIISource struct {
	fields []string
	pos    int
}

func (s *plyASCIISource) next(typ string) (float64, error) {
	if s.pos >= len(s.fields) {
		return 0, ErrTruncatedPLYData
	}
	tok := s.fields[s.pos]
	s.pos++
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s value %q: %w", typ, tok, err)
	}
	return v, nil
}

func (s *plyASCIISource) cost(string) int { return 1 }
func (s *plyASCIISource) left() int        { return len(s.fields) - s.pos }

type plyBinarySource struct {
	r     *bytes.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (s *plyBinarySource) cost(typ string) int { return plyTypeSize(typ) }
func (s *plyBinarySource) left() int            { return s.r.Len() }

func (s *plyBinarySource) next(typ string) (float64, error) {
	size := plyTypeSize(typ)
	b := s.buf[:size]
	if _, err := io.ReadFull(s.r, b); err != nil {
		return 0, ErrTruncatedPLYData
	}
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(s.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(s.order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(s.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(s.order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(s.order.Uint32(b))), nil
	default:
		return math.Float64frombits(s.order.Uint64(b)), nil
	}
}
