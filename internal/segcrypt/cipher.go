// Package segcrypt decrypts AES-CBC encrypted stream segments. A single
// CipherContext is derived once per job from the manifest's key material and
// shared read-only across segment workers; every Decrypt call constructs its
// own CBC block mode, so no chaining state crosses goroutines.
package segcrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

type CipherContext struct {
	block cipher.Block
	iv    []byte
}

// New derives a cipher context from raw key bytes and the manifest's
// optional hex IV attribute. Without a declared IV every decrypt call
// starts from a zero IV, matching streams that expect one implicit IV for
// all independent segment decrypts.
func New(key []byte, ivHex string) (*CipherContext, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid decryption key: %w", err)
	}

	iv := make([]byte, block.BlockSize())
	if ivHex != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(ivHex, "0x"), "0X"))
		if err != nil {
			return nil, fmt.Errorf("invalid key IV: %w", err)
		}
		if len(raw) != block.BlockSize() {
			return nil, fmt.Errorf("key IV is %d bytes, want %d", len(raw), block.BlockSize())
		}
		copy(iv, raw)
	}

	return &CipherContext{block: block, iv: iv}, nil
}

func (c *CipherContext) BlockSize() int {
	return c.block.BlockSize()
}

// Decrypt decrypts one segment body. Ciphertext that is not an exact
// multiple of the block size goes through a pad-then-unpad recovery: the
// input is PKCS#7-padded so CBC can run at all, and when the unpad of the
// result fails the raw decrypted bytes are returned anyway with degraded
// set. Discarding the segment would cost more frames than keeping the
// partially garbled data.
func (c *CipherContext) Decrypt(data []byte) (plaintext []byte, degraded bool) {
	bs := c.block.BlockSize()

	if len(data)%bs != 0 {
		return c.decryptWithPadding(data)
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
	return out, false
}

func (c *CipherContext) decryptWithPadding(data []byte) ([]byte, bool) {
	bs := c.block.BlockSize()
	padded := pad(data, bs)

	out := make([]byte, len(padded))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, padded)

	unpadded, err := unpad(out, bs)
	if err != nil {
		return out, true
	}
	return unpadded, false
}

// pad appends PKCS#7 padding up to the next block boundary.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, rejecting malformed trailers.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("data is not block aligned")
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding length")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
