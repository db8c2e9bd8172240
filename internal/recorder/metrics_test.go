package recorder

import "testing"

func TestParseNumericState(t *testing.T) {
	tests := []struct {
		state  string
		want   float64
		wantOk bool
	}{
		{"21.5", 21.5, true},
		{"-3", -3, true},
		{" 7 ", 7, true},
		{"on", 0, false},
		{"", 0, false},
		{"21.5C", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, ok := parseNumericState(tt.state)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumericAttribute(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   float64
		wantOk bool
	}{
		{"float64", float64(12.25), 12.25, true},
		{"float32", float32(2), 2, true},
		{"int", int(180), 180, true},
		{"int64", int64(-9), -9, true},
		{"string", "180", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numericAttribute(tt.raw)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}
