package coil

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultLandmarks_Complete(t *testing.T) {
	s := DefaultLandmarks(0.095)

	for _, name := range []string{
		LandmarkVertex, LandmarkNasion, LandmarkInion,
		LandmarkLeftEar, LandmarkRightEar,
		LandmarkMotorLeft, LandmarkDLPFCLeft,
	} {
		if _, ok := s.Get(name); !ok {
			t.Errorf("default table missing %q", name)
		}
	}

	if _, err := s.Cardinal(); err != nil {
		t.Errorf("default table should provide cardinals: %v", err)
	}

	dlpfc, _ := s.Get(LandmarkDLPFCLeft)
	if !dlpfc.Flip180 {
		t.Error("the DLPFC target must carry the orientation override")
	}
	motor, _ := s.Get(LandmarkMotorLeft)
	if motor.Flip180 {
		t.Error("the motor target must not carry the override")
	}
}

func TestNewLandmarkSet_RejectsDuplicates(t *testing.T) {
	_, err := NewLandmarkSet([]Landmark{
		{Name: "a", Pos: mgl64.Vec3{0, 1, 0}},
		{Name: "a", Pos: mgl64.Vec3{0, 2, 0}},
	})
	if err == nil {
		t.Error("duplicate names must be rejected")
	}
}

func TestValidateConventions_FailsFastOnMirroredData(t *testing.T) {
	// A left/right swap is exactly the silent convention violation the
	// validation exists to catch.
	_, err := NewLandmarkSet([]Landmark{
		{Name: LandmarkLeftEar, Pos: mgl64.Vec3{-1, 0, 0}},
		{Name: LandmarkRightEar, Pos: mgl64.Vec3{1, 0, 0}},
	})
	if err == nil {
		t.Error("mirrored ears must be rejected at load time")
	}

	_, err = NewLandmarkSet([]Landmark{
		{Name: LandmarkNasion, Pos: mgl64.Vec3{0, 0, -1}},
	})
	if err == nil {
		t.Error("posterior nasion must be rejected at load time")
	}
}

func TestValidateConventions_TargetOnlyTablesPass(t *testing.T) {
	_, err := NewLandmarkSet([]Landmark{
		{Name: "custom-target", Pos: mgl64.Vec3{0.2, 0.9, 0.3}},
	})
	if err != nil {
		t.Errorf("target-only table should pass: %v", err)
	}
}

func TestLandmarkSet_OrderPreserved(t *testing.T) {
	s := DefaultLandmarks(1)
	names := s.Names()
	if len(names) == 0 || names[0] != LandmarkVertex {
		t.Errorf("declaration order lost: %v", names)
	}
	all := s.All()
	if len(all) != len(names) {
		t.Errorf("All/Names mismatch: %d vs %d", len(all), len(names))
	}
}
