package encoding

import (
	"errors"
	"strings"
	"testing"
)

// testMessage stands in for a protocol message: json tags drive both formats.
type testMessage struct {
	SurfaceID string         `json:"surfaceId"`
	Count     int64          `json:"count"`
	Flag      bool           `json:"flag"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{" MsgPack ", FormatMsgpack, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFormat) {
					t.Fatalf("ParseFormat(%q) error = %v, want ErrInvalidFormat", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNewCodec(t *testing.T) {
	if _, err := NewCodec("yaml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewCodec(yaml) error = %v, want ErrInvalidFormat", err)
	}

	c, err := NewCodec(FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if c.Signed() {
		t.Error("codec without key should not sign")
	}

	// Should work with any key length (derives 32-byte key)
	for _, key := range []string{"short", "this-is-a-32-byte-key-for-hmac!!", ""} {
		c, err := NewCodec(FormatMsgpack, WithSigningKey([]byte(key)))
		if err != nil {
			t.Fatalf("NewCodec with key %q failed: %v", key, err)
		}
		if c.Signed() != (key != "") {
			t.Errorf("Signed() = %v for key %q", c.Signed(), key)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	original := testMessage{
		SurfaceID: "form",
		Count:     12345,
		Flag:      true,
		Extra:     map[string]any{"name": "Ada"},
	}

	tests := []struct {
		name   string
		format Format
		key    string
	}{
		{"json", FormatJSON, ""},
		{"msgpack", FormatMsgpack, ""},
		{"signed json", FormatJSON, "test-key"},
		{"signed msgpack", FormatMsgpack, "test-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.format, WithSigningKey([]byte(tt.key)))
			if err != nil {
				t.Fatal(err)
			}

			encoded, err := c.Marshal(original)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(encoded) == 0 {
				t.Fatal("Encoded frame is empty")
			}
			if c.Signed() && strings.Count(string(encoded), ".") != 1 {
				t.Errorf("signed frame should be payload.signature: %s", encoded)
			}

			var decoded testMessage
			if err := c.Unmarshal(encoded, &decoded); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if decoded.SurfaceID != original.SurfaceID || decoded.Count != original.Count || decoded.Flag != original.Flag {
				t.Errorf("Round-trip mismatch: got %+v, want %+v", decoded, original)
			}
			if decoded.Extra["name"] != "Ada" {
				t.Errorf("Extra = %v", decoded.Extra)
			}
		})
	}
}

func TestMsgpackUsesJSONTags(t *testing.T) {
	c, _ := NewCodec(FormatMsgpack)
	data, err := c.Marshal(testMessage{SurfaceID: "form"})
	if err != nil {
		t.Fatal(err)
	}

	var generic map[string]any
	if err := c.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	if generic["surfaceId"] != "form" {
		t.Errorf("msgpack keys = %v, want json tag names", generic)
	}
	if _, ok := generic["extra"]; ok {
		t.Error("omitempty should apply to msgpack too")
	}
}

func TestTamperedFrame(t *testing.T) {
	c, _ := NewCodec(FormatJSON, WithSigningKey([]byte("test-key")))
	encoded, err := c.Marshal(testMessage{SurfaceID: "form", Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	frame := string(encoded)
	dot := strings.IndexByte(frame, '.')

	other, _ := NewCodec(FormatJSON, WithSigningKey([]byte("other-key")))
	forged, _ := other.Marshal(testMessage{SurfaceID: "form", Count: 999})
	forgedPayload := string(forged)[:strings.IndexByte(string(forged), '.')]

	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"swapped payload", forgedPayload + frame[dot:], ErrSignatureInvalid},
		{"truncated signature", frame[:len(frame)-2], ErrSignatureInvalid},
		{"missing signature", frame[:dot], ErrInvalidFormat},
		{"bad base64", "!!!" + frame[dot:], ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded testMessage
			err := c.Unmarshal([]byte(tt.frame), &decoded)
			if !errors.Is(err, tt.want) {
				t.Errorf("Unmarshal error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatMsgpack} {
		c, _ := NewCodec(f)
		var m testMessage
		if err := c.Unmarshal([]byte{0xc1, 0x00}, &m); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("%s: Unmarshal error = %v, want ErrInvalidFormat", f, err)
		}
	}
}
