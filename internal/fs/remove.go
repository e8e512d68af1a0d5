package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
)

// wraps os.Remove with retry logic. A file that disappeared under us
// reports ErrVanished instead of a failure.

func removeWithRetry(ctx context.Context, path string) error {
	err := retry(ctx, "remove", func() error {
		return os.Remove(path)
	})
	if errors.Is(err, iofs.ErrNotExist) {
		return ErrVanished
	}
	return err
}
