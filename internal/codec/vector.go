package codec

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// EncodeVectorFloat32Hash packs a float32 vector into little-endian bytes
// for a Hash field, mirroring RediSearch's own VECTOR blob layout.
func EncodeVectorFloat32Hash(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVectorFloat32Hash is the inverse of EncodeVectorFloat32Hash.
func DecodeVectorFloat32Hash(s string) ([]float32, error) {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil, ErrMalformedVector
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// EncodeVectorFloat64Hash packs a float64 vector into little-endian bytes.
func EncodeVectorFloat64Hash(v []float64) string {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return string(buf)
}

// DecodeVectorFloat64Hash is the inverse of EncodeVectorFloat64Hash.
func DecodeVectorFloat64Hash(s string) ([]float64, error) {
	b := []byte(s)
	if len(b)%8 != 0 {
		return nil, ErrMalformedVector
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}

// EncodeVectorFloat32JSON renders a float32 vector as base64 over its
// packed bytes, the document-layout form (spec.md §4.2: "byte-sequence
// vectors serialize as base64 inside JSON").
func EncodeVectorFloat32JSON(v []float32) string {
	return base64.StdEncoding.EncodeToString([]byte(EncodeVectorFloat32Hash(v)))
}

// DecodeVectorFloat32JSON is the inverse of EncodeVectorFloat32JSON.
func DecodeVectorFloat32JSON(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedVector
	}
	return DecodeVectorFloat32Hash(string(raw))
}

// EncodeVectorFloat64JSON renders a float64 vector as base64 over its
// packed bytes.
func EncodeVectorFloat64JSON(v []float64) string {
	return base64.StdEncoding.EncodeToString([]byte(EncodeVectorFloat64Hash(v)))
}

// DecodeVectorFloat64JSON is the inverse of EncodeVectorFloat64JSON.
func DecodeVectorFloat64JSON(s string) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedVector
	}
	return DecodeVectorFloat64Hash(string(raw))
}
