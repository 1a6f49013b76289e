package constraint

import "testing"

func TestEvaluateModes(t *testing.T) {
	cases := []struct {
		name    string
		level   ValidationLevel[int]
		present bool
		value   int
		want    bool
	}{
		{"strict match", Strict(5), true, 5, true},
		{"strict mismatch", Strict(5), true, 6, false},
		{"strict absent", Strict(5), false, 0, false},
		{"not null present", NotNull[int](), true, 0, true},
		{"not null absent", NotNull[int](), false, 0, false},
		{"ignore present", IgnoreLevel[int](), true, 9, true},
		{"ignore absent", IgnoreLevel[int](), false, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluate(tc.level, tc.present, tc.value)
			if got != tc.want {
				t.Errorf("evaluate(%+v, %v, %v) = %v, want %v", tc.level, tc.present, tc.value, got, tc.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	if ModeStrict.String() != "STRICT" {
		t.Errorf("ModeStrict.String() = %q", ModeStrict.String())
	}
	if ModeNotNull.String() != "NOT_NULL" {
		t.Errorf("ModeNotNull.String() = %q", ModeNotNull.String())
	}
	if ModeIgnore.String() != "IGNORE" {
		t.Errorf("ModeIgnore.String() = %q", ModeIgnore.String())
	}
}
