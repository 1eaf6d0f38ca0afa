package fhe

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// EncryptedField is the wire form of one confidential scalar: an opaque
// ciphertext plus the proof the contract checks against it.
type EncryptedField struct {
	Ciphertext []byte
	Proof      []byte
}

// Codec turns plaintext scalars into EncryptedFields. The reference
// implementation below is reversible and NOT confidentiality-preserving; it
// exists so a real FHE encoder can be dropped in behind the same seam without
// touching the submitter or the workflow.
type Codec interface {
	Encode(plaintext, context string) EncryptedField
	Decode(ciphertext []byte) (string, error)

	// SubmissionProof binds a plaintext to the moment of submission. It is
	// deterministic given (plaintext, at) and opaque otherwise, which is the
	// contract a real FHE input proof must satisfy.
	SubmissionProof(plaintext string, at time.Time) []byte
}

const codecVersion = 0x01

var (
	ErrShortCiphertext  = errors.New("fhe: ciphertext too short")
	ErrUnknownVersion   = errors.New("fhe: unknown ciphertext version")
	ErrTruncatedContext = errors.New("fhe: truncated context tag")
)

var (
	proofDomain      = []byte("atlas-cipher/proof")
	inputProofDomain = []byte("atlas-cipher/input-proof")
	keystreamDomain  = []byte("atlas-cipher/keystream")
)

// FieldCodec is the placeholder codec. Encoding never fails: any plaintext,
// including the empty string, maps to a decodable payload.
type FieldCodec struct{}

func (FieldCodec) Encode(plaintext, context string) EncryptedField {
	tag := []byte(context)
	if len(tag) > 255 {
		tag = tag[:255]
	}

	out := make([]byte, 0, 2+len(tag)+len(plaintext))
	out = append(out, codecVersion, byte(len(tag)))
	out = append(out, tag...)
	out = append(out, xorKeystream([]byte(plaintext), tag)...)

	return EncryptedField{
		Ciphertext: out,
		Proof:      crypto.Keccak256(proofDomain, tag, []byte(plaintext)),
	}
}

func (FieldCodec) Decode(ciphertext []byte) (string, error) {
	if len(ciphertext) < 2 {
		return "", ErrShortCiphertext
	}
	if ciphertext[0] != codecVersion {
		return "", ErrUnknownVersion
	}
	tagLen := int(ciphertext[1])
	if len(ciphertext) < 2+tagLen {
		return "", ErrTruncatedContext
	}
	tag := ciphertext[2 : 2+tagLen]
	return string(xorKeystream(ciphertext[2+tagLen:], tag)), nil
}

func (FieldCodec) SubmissionProof(plaintext string, at time.Time) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.UnixMilli()))
	return crypto.Keccak256(inputProofDomain, []byte(plaintext), ts[:])
}

// xorKeystream is its own inverse: the keystream depends only on the context
// tag, so applying it twice restores the input.
func xorKeystream(data, tag []byte) []byte {
	out := make([]byte, len(data))
	var block []byte
	var counter [4]byte
	for i := range data {
		if i%32 == 0 {
			binary.BigEndian.PutUint32(counter[:], uint32(i/32))
			block = crypto.Keccak256(keystreamDomain, tag, counter[:])
		}
		out[i] = data[i] ^ block[i%32]
	}
	return out
}
