package ports

import "context"

// Messenger is the external delivery channel. Any failure is treated the
// same for retry purposes; success is defined by a returned message id.
type Messenger interface {
	SendDirectMessage(ctx context.Context, recipient string, text string) (messageID string, err error)
}

// GiftCodec encrypts gift code payloads at rest and decrypts them at
// notification time.
type GiftCodec interface {
	// GenerateCode mints a fresh random code in the codec's plaintext format.
	GenerateCode() (string, error)
	Encrypt(plaintext string) (string, error)
	Decrypt(encrypted string) (string, error)
}
