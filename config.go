package a2ui

import (
	"github.com/pthm/a2ui/lib/config"
	"github.com/pthm/a2ui/lib/encoding"
)

// OptionsFromConfig converts loaded session settings into Options.
func OptionsFromConfig(c config.SessionConfig) ([]Option, error) {
	policy, err := ParsePathPolicy(c.PathPolicy)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithPathPolicy(policy),
		WithMaxSequenceGap(c.MaxSequenceGap),
	}, nil
}

// CodecFromConfig builds the wire codec described by c.
func CodecFromConfig(c config.CodecConfig) (*Codec, error) {
	format, err := encoding.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	var opts []encoding.Option
	if c.SigningKey != "" {
		opts = append(opts, encoding.WithSigningKey([]byte(c.SigningKey)))
	}
	return encoding.NewCodec(format, opts...)
}
