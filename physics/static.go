package physics

import (
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is a static spherical collider, typically a planet or moon surface.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// StaticWorld is a trivial RayCaster over static sphere and box colliders.
// The examples and tests use it in place of a full physics engine; it has no
// bodies and produces no contact events.
type StaticWorld struct {
	Spheres []Sphere
	Boxes   []cube.BBox
}

// AddSphere appends a spherical collider.
func (w *StaticWorld) AddSphere(center mgl32.Vec3, radius float32) {
	w.Spheres = append(w.Spheres, Sphere{Center: center, Radius: radius})
}

// AddBox appends a box collider.
func (w *StaticWorld) AddBox(box cube.BBox) {
	w.Boxes = append(w.Boxes, box)
}

// CastRay returns the nearest intersection along the ray, if any. dir must be
// a unit vector.
func (w *StaticWorld) CastRay(origin, dir mgl32.Vec3, maxDist float32, _ Handle) (RayHit, bool) {
	best := RayHit{TimeOfImpact: maxDist}
	found := false

	for _, s := range w.Spheres {
		if hit, ok := raySphere(origin, dir, s, best.TimeOfImpact); ok {
			best = hit
			found = true
		}
	}
	for _, b := range w.Boxes {
		if hit, ok := rayBox(origin, dir, b, best.TimeOfImpact); ok {
			best = hit
			found = true
		}
	}
	return best, found
}

func raySphere(origin, dir mgl32.Vec3, s Sphere, maxDist float32) (RayHit, bool) {
	oc := origin.Sub(s.Center)
	b := oc.Dot(dir)
	c := oc.LenSqr() - s.Radius*s.Radius
	disc := b*b - c
	if disc < 0 {
		return RayHit{}, false
	}
	t := -b - math32.Sqrt(disc)
	if t < 0 || t > maxDist {
		return RayHit{}, false
	}
	point := origin.Add(dir.Mul(t))
	return RayHit{
		Point:        point,
		Normal:       point.Sub(s.Center).Normalize(),
		TimeOfImpact: t,
	}, true
}

func rayBox(origin, dir mgl32.Vec3, box cube.BBox, maxDist float32) (RayHit, bool) {
	min, max := box.Min(), box.Max()
	tNear, tFar := float32(0), maxDist
	axis := -1

	for i := 0; i < 3; i++ {
		if math32.Abs(dir[i]) < 1e-8 {
			if origin[i] < min[i] || origin[i] > max[i] {
				return RayHit{}, false
			}
			continue
		}
		inv := 1 / dir[i]
		t0 := (min[i] - origin[i]) * inv
		t1 := (max[i] - origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
			axis = i
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return RayHit{}, false
		}
	}
	if axis == -1 {
		// Ray started inside the box.
		return RayHit{}, false
	}

	normal := mgl32.Vec3{}
	if dir[axis] > 0 {
		normal[axis] = -1
	} else {
		normal[axis] = 1
	}
	return RayHit{
		Point:        origin.Add(dir.Mul(tNear)),
		Normal:       normal,
		TimeOfImpact: tNear,
	}, true
}
