package giveaway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

type CreateGiftCodeInput struct {
	// Code is optional; when empty a random one is generated.
	Code      string
	Amount    int
	ExpiresAt *time.Time
	Note      string
}

// CreateGiftCode adds one code to the inventory. The plaintext never hits
// the store; only the encrypted payload is persisted alongside the code's
// lookup value.
func (s *Service) CreateGiftCode(ctx context.Context, input CreateGiftCodeInput) (ports.GiftCode, error) {
	if ctx == nil {
		return ports.GiftCode{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.GiftCode{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.GiftCode{}, errors.New("giveaway repository is required")
	}
	if s.codec == nil {
		return ports.GiftCode{}, errors.New("gift codec is required")
	}
	if input.Amount <= 0 {
		return ports.GiftCode{}, errors.New("amount must be positive")
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		generated, err := s.codec.GenerateCode()
		if err != nil {
			return ports.GiftCode{}, errs.Wrap(err, "generate gift code")
		}
		code = generated
	}

	encrypted, err := s.codec.Encrypt(code)
	if err != nil {
		return ports.GiftCode{}, errs.Wrap(err, "encrypt gift code")
	}

	created, err := s.repo.CreateGiftCode(ctx, ports.GiftCodeCreate{
		Code:          code,
		EncryptedCode: encrypted,
		Amount:        input.Amount,
		ExpiresAt:     input.ExpiresAt,
		Note:          input.Note,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return ports.GiftCode{}, err
	}

	logging.Info(ctx, "gift code created",
		slog.String("component", "usecase.giftcode"),
		slog.Uint64("gift_code_id", created.GiftCodeID),
		slog.Int("amount", created.Amount),
	)
	return created, nil
}

// ImportGiftCodes loads a batch of pre-existing codes, skipping blanks.
func (s *Service) ImportGiftCodes(ctx context.Context, codes []string, amount int, expiresAt *time.Time) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}

	imported := 0
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, err := s.CreateGiftCode(ctx, CreateGiftCodeInput{Code: code, Amount: amount, ExpiresAt: expiresAt}); err != nil {
			return imported, errs.Wrapf(err, "import code %d of %d", imported+1, len(codes))
		}
		imported++
	}
	return imported, nil
}

// UseGiftCode consumes a code by its lookup value, outside the draw flow.
// Unknown, already used and expired codes all come back as not found; the
// caller learns nothing about which it was.
func (s *Service) UseGiftCode(ctx context.Context, code, note string) (ports.GiftCode, error) {
	if ctx == nil {
		return ports.GiftCode{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.GiftCode{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.GiftCode{}, errors.New("giveaway repository is required")
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return ports.GiftCode{}, domaingiveaway.ErrGiftCodeNotFound
	}

	found, err := s.repo.GetGiftCodeByCode(ctx, code)
	if err != nil {
		return ports.GiftCode{}, err
	}
	now := s.now()
	if found.IsUsed || (found.ExpiresAt != nil && !found.ExpiresAt.After(now)) {
		return ports.GiftCode{}, domaingiveaway.ErrGiftCodeNotFound
	}

	if err := s.repo.MarkGiftCodeUsed(ctx, found.GiftCodeID, now, note); err != nil {
		return ports.GiftCode{}, err
	}

	logging.Info(ctx, "gift code used",
		slog.String("component", "usecase.giftcode"),
		slog.Uint64("gift_code_id", found.GiftCodeID),
	)
	return s.repo.GetGiftCodeByID(ctx, found.GiftCodeID)
}

func (s *Service) GetGiftCode(ctx context.Context, giftCodeID uint64) (ports.GiftCode, error) {
	if ctx == nil {
		return ports.GiftCode{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.GiftCode{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.GiftCode{}, errors.New("giveaway repository is required")
	}
	return s.repo.GetGiftCodeByID(ctx, giftCodeID)
}

// ListUnusedGiftCodes returns the remaining unexpired inventory.
func (s *Service) ListUnusedGiftCodes(ctx context.Context) ([]ports.GiftCode, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("giveaway repository is required")
	}
	return s.repo.ListUnusedGiftCodes(ctx, s.now())
}

// RevealGiftCode decrypts the stored payload for operator inspection.
func (s *Service) RevealGiftCode(ctx context.Context, giftCodeID uint64) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return "", errors.New("giveaway repository is required")
	}
	if s.codec == nil {
		return "", errors.New("gift codec is required")
	}

	code, err := s.repo.GetGiftCodeByID(ctx, giftCodeID)
	if err != nil {
		return "", err
	}
	if code.EncryptedCode == "" {
		return code.Code, nil
	}
	plaintext, err := s.codec.Decrypt(code.EncryptedCode)
	if err != nil {
		return "", errs.Wrap(err, "decrypt gift code")
	}
	return plaintext, nil
}
