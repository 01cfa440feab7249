package tiering

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// atimeOf returns the last-access time of fi as unix seconds. Falls back
// to ModTime on platforms where the Sys() syscall stat type isn't
// recognized, so atime-delta counting works on the common case and
// degrades gracefully elsewhere.
func atimeOf(fi os.FileInfo) int64 {
	if ts, ok := atimeFromSys(fi); ok {
		return ts
	}
	return fi.ModTime().Unix()
}

// walkTier walks every regular file under root, invoking fn with the path
// relative to root. Per-file stat errors are logged at debug level and
// skipped rather than aborting the whole walk; a single unreadable file
// never interrupts a pass.
func walkTier(root string, logger *zap.Logger, fn func(relPath string, fi os.FileInfo) error) error {
	return filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			logger.Debug("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			logger.Debug("relpath error", zap.String("path", path), zap.Error(relErr))
			return nil
		}

		if err := fn(rel, fi); err != nil {
			logger.Debug("walk callback error", zap.String("path", rel), zap.Error(err))
		}
		return nil
	})
}
