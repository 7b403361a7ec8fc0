// Package crypter provides the AES-CBC cipher the session layer uses to
// seal cookie payloads.
package crypter

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

type Crypter interface {
	EnCrypt(plainText []byte) ([]byte, error)
	DeCrypt(cipherText []byte) ([]byte, error)
}

type Aes struct {
	aesKey []byte
	aesIv  []byte
}

// NewAes validates the key (16, 24 or 32 bytes) and IV (one block) and
// returns a CBC-mode Crypter with PKCS7 padding.
func NewAes(aesKey string, aesIv string) (Crypter, error) {
	if aesKey == "" || aesIv == "" {
		return nil, errors.New("key and IV must not be empty")
	}

	key := []byte(aesKey)
	iv := []byte(aesIv)

	validKeyLengths := map[int]bool{16: true, 24: true, 32: true}
	if !validKeyLengths[len(key)] {
		return nil, fmt.Errorf("invalid key length: %d bytes; must be 16, 24, or 32 bytes", len(key))
	}

	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid IV length: %d bytes; must be %d bytes", len(iv), aes.BlockSize)
	}

	return &Aes{
		aesKey: key,
		aesIv:  iv,
	}, nil
}

func (ae *Aes) pkcs7Pad(plainText []byte) []byte {
	remain := len(plainText) % aes.BlockSize
	length := aes.BlockSize - remain

	trailing := bytes.Repeat([]byte{byte(length)}, length)
	return append(plainText, trailing...)
}

func (ae *Aes) pkcs7RemovePad(src []byte) ([]byte, error) {
	length := len(src)
	if length == 0 {
		return nil, errors.New("empty plaintext")
	}

	paddingLen := int(src[length-1])
	if paddingLen == 0 || paddingLen > aes.BlockSize {
		return nil, errors.New("invalid padding length")
	}

	// Every padding byte must carry the padding length.
	for i := length - paddingLen; i < length; i++ {
		if src[i] != byte(paddingLen) {
			return nil, errors.New("invalid padding")
		}
	}

	end := length - paddingLen
	if end < 0 {
		return nil, errors.New("padding longer than input")
	}

	return src[:end], nil
}

func (ae *Aes) EnCrypt(plainText []byte) ([]byte, error) {
	if len(plainText) < 1 {
		return nil, errors.New("encrypt input is empty")
	}

	pkPlainText := ae.pkcs7Pad(plainText)

	block, err := aes.NewCipher(ae.aesKey)
	if err != nil {
		return nil, err
	}

	cipherText := make([]byte, len(pkPlainText))

	cbc := cipher.NewCBCEncrypter(block, ae.aesIv)
	cbc.CryptBlocks(cipherText, pkPlainText)
	return cipherText, nil
}

func (ae *Aes) DeCrypt(cipherText []byte) ([]byte, error) {
	if len(cipherText) < 1 {
		return nil, errors.New("decrypt input is empty")
	}

	if len(cipherText)%aes.BlockSize != 0 {
		return nil, errors.New("input is not block-aligned")
	}

	block, err := aes.NewCipher(ae.aesKey)
	if err != nil {
		return nil, err
	}

	plainText := make([]byte, len(cipherText))

	cbc := cipher.NewCBCDecrypter(block, ae.aesIv)
	cbc.CryptBlocks(plainText, cipherText)
	return ae.pkcs7RemovePad(plainText)
}
