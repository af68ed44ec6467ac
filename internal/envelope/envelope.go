// Package envelope implements the hybrid encryption spec.md §4.8 uses for
// out-of-band note delivery: an EdDSA-ECDH shared secret feeding AES-128-CBC
// with PKCS#7 padding. Integrity of the payload is not this layer's job —
// "authenticated integrity is provided by the proof chain inside, not by
// the cipher" (spec.md §4.8); a corrupted envelope just decodes to a
// history that pkg/history.Verify then rejects. Grounded on the AES
// cipher-setup idiom in other_examples/.../Hikari-Chain.../crypto.go
// (derive a symmetric key from a hashed shared secret, build a
// crypto/cipher.Block, encrypt), adapted from that file's AES-GCM mode to
// the spec-mandated AES-CBC/PKCS7.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ivcnotes/core/internal/eddsa"
	"github.com/ivcnotes/core/pkg/history"
)

// ErrDecryptFailed covers every terminal-for-the-envelope failure: bad
// padding, truncated ciphertext, or a payload that fails to parse as a
// NoteHistory once decrypted.
var ErrDecryptFailed = errors.New("envelope: decryption failed")

const (
	aesKeySize = 16
	aesIVSize  = 16
)

// deriveKeyIV computes the AES-128-CBC key/IV pair from an EdDSA-ECDH
// shared secret: key = SHA-256(shared)[0:16], IV = SHA-256(shared)[16:32].
func deriveKeyIV(sharedSecret []byte) (key, iv []byte) {
	digest := sha256.Sum256(sharedSecret)
	return digest[:aesKeySize], digest[aesKeySize : aesKeySize+aesIVSize]
}

// Encrypt serializes history and encrypts it for receiverPub using
// senderKey's EdDSA-ECDH shared secret.
func Encrypt(h *history.NoteHistory, senderKey *eddsa.PrivateKey, receiverPub eddsa.PublicKey) ([]byte, error) {
	payload, err := h.Marshal()
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal history: %w", err)
	}

	shared := eddsa.SharedSecret(senderKey, receiverPub)
	key, iv := deriveKeyIV(shared)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: new cipher: %w", err)
	}

	padded := pkcs7Pad(payload, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

// Decrypt reverses Encrypt: receiverKey's shared secret with senderPub must
// match the one Encrypt used, or the padding/JSON parse will fail.
func Decrypt(ciphertext []byte, receiverKey *eddsa.PrivateKey, senderPub eddsa.PublicKey) (*history.NoteHistory, error) {
	shared := eddsa.SharedSecret(receiverKey, senderPub)
	key, iv := deriveKeyIV(shared)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: new cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: truncated ciphertext", ErrDecryptFailed)
	}

	padded := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(padded, ciphertext)

	payload, err := pkcs7Unpad(padded, block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	h, err := history.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return h, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
