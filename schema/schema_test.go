package schema

import "testing"

func TestIdentityAcceptsMatchingType(t *testing.T) {
	s := Identity[int]()
	v, err := s.Parse(42)
	if err != nil || v != 42 {
		t.Fatalf("expected (42, nil), got (%d, %v)", v, err)
	}
}

func TestIdentityRejectsMismatch(t *testing.T) {
	s := Identity[int]()
	if _, err := s.Parse("not an int"); err == nil {
		t.Fatal("expected an error for a mismatched type")
	}
}

func TestIdentityAcceptsNilAsZero(t *testing.T) {
	s := Identity[string]()
	v, err := s.Parse(nil)
	if err != nil || v != "" {
		t.Fatalf("expected (\"\", nil), got (%q, %v)", v, err)
	}
}

func TestStringLengthBounds(t *testing.T) {
	s := String{MinLength: 2, MaxLength: 4}

	if _, err := s.Parse("a"); err == nil {
		t.Fatal("expected an error for a string shorter than MinLength")
	}
	if _, err := s.Parse("abcde"); err == nil {
		t.Fatal("expected an error for a string longer than MaxLength")
	}
	if v, err := s.Parse("abc"); err != nil || v != "abc" {
		t.Fatalf("expected (abc, nil), got (%q, %v)", v, err)
	}
}

func TestStringRejectsNonString(t *testing.T) {
	if _, err := (String{}).Parse(5); err == nil {
		t.Fatal("expected an error for a non-string value")
	}
}

func TestNumberRangeAndIntegerConstraints(t *testing.T) {
	n := Number{HasMin: true, Min: 0, HasMax: true, Max: 10, Integer: true}

	if _, err := n.Parse(-1); err == nil {
		t.Fatal("expected an error below the minimum")
	}
	if _, err := n.Parse(11); err == nil {
		t.Fatal("expected an error above the maximum")
	}
	if _, err := n.Parse(3.5); err == nil {
		t.Fatal("expected an error for a non-integer value")
	}
	v, err := n.Parse(5)
	if err != nil || v != 5 {
		t.Fatalf("expected (5, nil), got (%v, %v)", v, err)
	}
}

func TestNumberAcceptsVariousNumericKinds(t *testing.T) {
	n := Number{}
	for _, in := range []any{int32(3), int64(3), float32(3), float64(3)} {
		v, err := n.Parse(in)
		if err != nil || v != 3 {
			t.Fatalf("Parse(%v) = (%v, %v), want (3, nil)", in, v, err)
		}
	}
}

func TestFuncAdaptsPlainFunction(t *testing.T) {
	var s Schema[int] = Func[int](func(input any) (int, error) {
		return 99, nil
	})
	v, err := s.Parse(nil)
	if err != nil || v != 99 {
		t.Fatalf("expected (99, nil), got (%d, %v)", v, err)
	}
}
