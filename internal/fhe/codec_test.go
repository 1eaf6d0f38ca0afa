package fhe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := FieldCodec{}

	for _, tc := range []struct {
		plaintext string
		context   string
	}{
		{"1000.00", "amount"},
		{"0", "fee"},
		{"5", "fee"},
		{"settlement-42-1700000000000", "settlement-proof"},
		{"päyment mémo ünïcode", "memo"},
		{"", "amount"},
	} {
		field := codec.Encode(tc.plaintext, tc.context)
		got, err := codec.Decode(field.Ciphertext)
		require.NoError(t, err, "decode %q/%q", tc.plaintext, tc.context)
		assert.Equal(t, tc.plaintext, got)
	}
}

func TestContextSeparation(t *testing.T) {
	codec := FieldCodec{}

	amount := codec.Encode("1000", "amount")
	fee := codec.Encode("1000", "fee")

	assert.NotEqual(t, amount.Ciphertext, fee.Ciphertext)
	assert.NotEqual(t, amount.Proof, fee.Proof)
}

func TestEncodeIsDeterministic(t *testing.T) {
	codec := FieldCodec{}

	first := codec.Encode("500", "amount")
	second := codec.Encode("500", "amount")

	assert.Equal(t, first.Ciphertext, second.Ciphertext)
	assert.Equal(t, first.Proof, second.Proof)
}

func TestEmptyPlaintextSentinel(t *testing.T) {
	codec := FieldCodec{}

	field := codec.Encode("", "amount")
	require.NotEmpty(t, field.Ciphertext)

	got, err := codec.Decode(field.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSubmissionProofBinding(t *testing.T) {
	codec := FieldCodec{}
	at := time.UnixMilli(1700000000000)

	proof := codec.SubmissionProof("500", at)
	assert.Equal(t, proof, codec.SubmissionProof("500", at), "deterministic for same plaintext and timestamp")
	assert.NotEqual(t, proof, codec.SubmissionProof("500", at.Add(time.Millisecond)))
	assert.NotEqual(t, proof, codec.SubmissionProof("501", at))
}

func TestDecodeRejectsMalformedCiphertext(t *testing.T) {
	codec := FieldCodec{}

	_, err := codec.Decode(nil)
	assert.ErrorIs(t, err, ErrShortCiphertext)

	_, err = codec.Decode([]byte{0x7f, 0x00})
	assert.ErrorIs(t, err, ErrUnknownVersion)

	_, err = codec.Decode([]byte{codecVersion, 0x10, 'a'})
	assert.ErrorIs(t, err, ErrTruncatedContext)
}
