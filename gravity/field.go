package gravity

import (
	"github.com/apogee-mp/apogee/aerror"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/zeebo/xxh3"
)

// Field is one gravity source in a tree of nested sources. A moon field is a
// child of its planet field, the planet a child of the system root. The tree
// is read-only during a simulation tick; actors move between fields only
// through the dominant-field transition in the simulation package.
type Field struct {
	id   uint64
	name string

	// Center is the world position of the source.
	Center mgl32.Vec3
	// Strength is the gravitational acceleration magnitude. When
	// FalloffRadius is zero the strength is uniform everywhere; otherwise it
	// is the magnitude at FalloffRadius and falls off with inverse-square
	// distance beyond it.
	Strength      float32
	FalloffRadius float32
	// CaptureRadius is the sphere-of-influence size. Positions within it are
	// dominated by this field rather than its parent.
	CaptureRadius float32

	// Orientation is the world-frame orientation of the field's rest frame.
	Orientation mgl32.Quat
	// Velocity is the linear velocity of the rest frame in world coordinates,
	// e.g. a moon's orbital velocity.
	Velocity mgl32.Vec3
	// AngularVelocity is the spin of the rest frame about Center, in radians
	// per second around world axes.
	AngularVelocity mgl32.Vec3

	parent   *Field
	children []*Field
}

// NewField creates a detached field. The field ID is a stable hash of the
// name so that both ends of a connection derive the same wire identity.
func NewField(name string, center mgl32.Vec3, strength, captureRadius float32) *Field {
	return &Field{
		id:            xxh3.HashString(name),
		name:          name,
		Center:        center,
		Strength:      strength,
		CaptureRadius: captureRadius,
		Orientation:   mgl32.QuatIdent(),
	}
}

// ID returns the stable wire identity of the field.
func (f *Field) ID() uint64 {
	return f.id
}

// Name returns the name the field was created with.
func (f *Field) Name() string {
	return f.name
}

// Parent returns the parent field, or nil for the tree root.
func (f *Field) Parent() *Field {
	return f.parent
}

// Children returns the child fields in declaration order. The order is part
// of the dominance contract: when two children's capture radii overlap, the
// first attached child wins.
func (f *Field) Children() []*Field {
	return f.children
}

// AttachChild adds child to the field's children. It returns an error if the
// attachment would make a field its own ancestor.
func (f *Field) AttachChild(child *Field) error {
	for anc := f; anc != nil; anc = anc.parent {
		if anc == child {
			return aerror.New("gravity: attaching %q to %q would create a cycle", child.name, f.name)
		}
	}
	if child.parent != nil {
		return aerror.New("gravity: field %q already has a parent", child.name)
	}
	child.parent = f
	f.children = append(f.children, child)
	return nil
}

// DownDirection returns the unit vector from pos toward the field center.
// At the exact center there is no defined down; world -Y is returned so
// callers never observe a zero basis.
func (f *Field) DownDirection(pos mgl32.Vec3) mgl32.Vec3 {
	diff := f.Center.Sub(pos)
	if diff.LenSqr() < 1e-12 {
		return mgl32.Vec3{0, -1, 0}
	}
	return diff.Normalize()
}

// StrengthAt returns the gravitational acceleration magnitude at pos.
func (f *Field) StrengthAt(pos mgl32.Vec3) float32 {
	if f.FalloffRadius <= 0 {
		return f.Strength
	}
	dist := f.Center.Sub(pos).Len()
	if dist <= f.FalloffRadius {
		return f.Strength
	}
	ratio := f.FalloffRadius / dist
	return f.Strength * ratio * ratio
}

// AccelerationAt returns the gravity acceleration vector at pos.
func (f *Field) AccelerationAt(pos mgl32.Vec3) mgl32.Vec3 {
	return f.DownDirection(pos).Mul(f.StrengthAt(pos))
}

// Contains reports whether pos lies inside the field's capture radius.
func (f *Field) Contains(pos mgl32.Vec3) bool {
	return f.Center.Sub(pos).LenSqr() <= f.CaptureRadius*f.CaptureRadius
}

// Dominant resolves the field that owns pos, starting the search from f as
// the current field. Leaving the capture radius hands dominance to the
// parent; entering a child's capture radius hands it to that child
// (big-to-small capture). The walk recurses so that a position can fall
// through several shells in one query. A valid field is always returned;
// the root never relinquishes dominance.
func (f *Field) Dominant(pos mgl32.Vec3) *Field {
	if f.parent != nil && !f.Contains(pos) {
		return f.parent.Dominant(pos)
	}
	for _, child := range f.children {
		if child.Contains(pos) {
			return child.Dominant(pos)
		}
	}
	return f
}

// RestFrameVelocity returns the velocity of the field's rest frame at pos in
// world coordinates: the frame's linear velocity plus the tangential
// contribution of its spin.
func (f *Field) RestFrameVelocity(pos mgl32.Vec3) mgl32.Vec3 {
	return f.Velocity.Add(f.AngularVelocity.Cross(pos.Sub(f.Center)))
}

// RelativeRotation returns the quaternion that re-expresses a vector given in
// the from field's rest frame in the to field's rest frame.
func RelativeRotation(from, to *Field) mgl32.Quat {
	return to.Orientation.Inverse().Mul(from.Orientation)
}

// Distance returns the distance from pos to the field center.
func (f *Field) Distance(pos mgl32.Vec3) float32 {
	return math32.Sqrt(f.Center.Sub(pos).LenSqr())
}
