package codec

// Raw is the identity codec.
type Raw struct{}

func (Raw) Type() string { return TypeRaw }

func (Raw) Encode(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (Raw) Decode(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}
