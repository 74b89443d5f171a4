// Package formats provides parsers for polygon model file formats.
package formats

// Note: PLY (ascii and binary) is implemented in ply.go
// Note: OBJ and extension dispatch are implemented in obj.go
