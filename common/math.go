package common

import (
	"math"
	"unsafe"
)

// Matrices are column-major [16]float32 values: row r, column c lives at index c*4+r.
// Projections target WebGPU clip space, with depth in [0, 1].

// Identity returns the 4x4 identity matrix.
func Identity() [16]float32 {
	return [16]float32{0: 1, 5: 1, 10: 1, 15: 1}
}

// Mul4 returns the product a*b, so b is applied first.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - [16]float32: the product
func Mul4(a, b [16]float32) [16]float32 {
	var out [16]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+r] * b[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// Perspective returns a right-handed perspective projection mapping view depth
// [-near, -far] to clip depth [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width / height
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - [16]float32: the projection matrix
func Perspective(fovY, aspect, near, far float32) [16]float32 {
	f := float32(1 / math.Tan(float64(fovY)/2))
	depth := 1 / (near - far)
	return [16]float32{
		0:  f / aspect,
		5:  f,
		10: far * depth,
		11: -1,
		14: near * far * depth,
	}
}

// LookAt returns the view matrix of an eye looking at center.
//
// Parameters:
//   - eye: camera position in world space
//   - center: point the camera looks at
//   - up: approximate up direction, usually +Y
//
// Returns:
//   - [16]float32: the world-to-view matrix
func LookAt(eye, center, up [3]float32) [16]float32 {
	back := normalize3(sub3(eye, center))
	right := normalize3(cross3(up, back))
	camUp := cross3(back, right)
	return [16]float32{
		right[0], camUp[0], back[0], 0,
		right[1], camUp[1], back[1], 0,
		right[2], camUp[2], back[2], 0,
		-dot3(right, eye), -dot3(camUp, eye), -dot3(back, eye), 1,
	}
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// normalize3 returns v scaled to unit length; a zero vector is returned unchanged.
func normalize3(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(dot3(v, v))))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// BytesToSlice reinterprets bytes read back from a GPU buffer as a slice of T.
// Trailing bytes that do not fill a whole element are ignored.
// WARNING: The returned slice shares memory with the input.
//
// Parameters:
//   - data: source bytes, aligned for T
//
// Returns:
//   - []T: slice view of the input, or nil if it holds no whole element
func BytesToSlice[T any](data []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 || len(data) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/size)
}
