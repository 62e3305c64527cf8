package config

import "testing"

// Contract: New applies the documented defaults.
func TestNew_Defaults(t *testing.T) {
	c := New()
	if c.Iterations != DefaultIterations {
		t.Errorf("Iterations = %d, want %d", c.Iterations, DefaultIterations)
	}
	if c.MaxWorkers != DefaultMaxWorkers {
		t.Errorf("MaxWorkers = %d, want %d", c.MaxWorkers, DefaultMaxWorkers)
	}
}

// Contract: Validate rejects missing required fields.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing scratch dir", Config{TracePaths: []string{"a"}, Iterations: 1, MaxWorkers: 1}, true},
		{"missing trace paths", Config{ScratchDir: "/tmp/x", Iterations: 1, MaxWorkers: 1}, true},
		{"zero iterations", Config{ScratchDir: "/tmp/x", TracePaths: []string{"a"}, MaxWorkers: 1}, true},
		{"zero max workers", Config{ScratchDir: "/tmp/x", TracePaths: []string{"a"}, Iterations: 1}, true},
		{"valid", Config{ScratchDir: "/tmp/x", TracePaths: []string{"a"}, Iterations: 1, MaxWorkers: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
