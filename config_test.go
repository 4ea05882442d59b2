package a2ui

import (
	"testing"

	"github.com/pthm/a2ui/lib/config"
	"github.com/pthm/a2ui/lib/encoding"
)

func TestOptionsFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.SessionConfig
		wantPolicy PathPolicy
		wantGap    int
		wantErr    bool
	}{
		{"defaults", config.SessionConfig{PathPolicy: "create", MaxSequenceGap: DefaultMaxSequenceGap}, PathPolicyCreate, DefaultMaxSequenceGap, false},
		{"strict", config.SessionConfig{PathPolicy: "Strict", MaxSequenceGap: 8}, PathPolicyStrict, 8, false},
		{"unknown policy", config.SessionConfig{PathPolicy: "lenient"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := OptionsFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			o := buildOptions(opts)
			if o.policy != tt.wantPolicy || o.maxGap != tt.wantGap {
				t.Errorf("policy = %s, gap = %d; want %s, %d", o.policy, o.maxGap, tt.wantPolicy, tt.wantGap)
			}
		})
	}
}

func TestCodecFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.CodecConfig
		wantFormat encoding.Format
		wantSigned bool
		wantErr    bool
	}{
		{"json", config.CodecConfig{Format: "json"}, encoding.FormatJSON, false, false},
		{"signed msgpack", config.CodecConfig{Format: "msgpack", SigningKey: "k"}, encoding.FormatMsgpack, true, false},
		{"unknown", config.CodecConfig{Format: "xml"}, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CodecFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c.Format() != tt.wantFormat || c.Signed() != tt.wantSigned {
				t.Errorf("codec = %s signed=%v", c.Format(), c.Signed())
			}
		})
	}
}

func TestParsePathPolicy(t *testing.T) {
	for in, want := range map[string]PathPolicy{"": PathPolicyCreate, "create": PathPolicyCreate, " STRICT ": PathPolicyStrict} {
		got, err := ParsePathPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePathPolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if PathPolicy(7).String() != "PathPolicy(7)" {
		t.Errorf("String() = %q", PathPolicy(7).String())
	}
}
