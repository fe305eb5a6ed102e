package protocol

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// reader walks a payload without panicking on truncated data. Every read past
// the end sets failed and returns zero values; the caller checks failed once
// after decoding.
type reader struct {
	data   []byte
	off    int
	failed bool
}

func (r *reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.failed = true
		return make([]byte, n)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8() uint8 {
	return r.take(1)[0]
}

func (r *reader) uint32() uint32 {
	return binary.LittleEndian.Uint32(r.take(4))
}

func (r *reader) uint64() uint64 {
	return binary.LittleEndian.Uint64(r.take(8))
}

func (r *reader) int64() int64 {
	return int64(r.uint64())
}

func (r *reader) float32() float32 {
	return math.Float32frombits(r.uint32())
}

func (r *reader) bool() bool {
	return r.uint8() != 0
}

func (r *reader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.float32(), r.float32(), r.float32()}
}

func (r *reader) vec2() mgl32.Vec2 {
	return mgl32.Vec2{r.float32(), r.float32()}
}

func (r *reader) quat() mgl32.Quat {
	w := r.float32()
	return mgl32.Quat{W: w, V: r.vec3()}
}

func (r *reader) string() string {
	n := int(r.uint32())
	if n > len(r.data)-r.off {
		r.failed = true
		return ""
	}
	return string(r.take(n))
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	writeUint64(buf, uint64(v))
}

func writeFloat32(buf *bytes.Buffer, v float32) {
	writeUint32(buf, math.Float32bits(v))
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeVec3(buf *bytes.Buffer, v mgl32.Vec3) {
	writeFloat32(buf, v.X())
	writeFloat32(buf, v.Y())
	writeFloat32(buf, v.Z())
}

func writeVec2(buf *bytes.Buffer, v mgl32.Vec2) {
	writeFloat32(buf, v.X())
	writeFloat32(buf, v.Y())
}

func writeQuat(buf *bytes.Buffer, q mgl32.Quat) {
	writeFloat32(buf, q.W)
	writeVec3(buf, q.V)
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}
