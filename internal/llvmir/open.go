package llvmir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	bitcodeMagic        = []byte{'B', 'C', 0xC0, 0xDE}
	bitcodeWrapperMagic = []byte{0xDE, 0xC0, 0x17, 0x0B}
)

// IsBitcode reports whether the header starts with a bitcode magic number.
func IsBitcode(header []byte) bool {
	return bytes.HasPrefix(header, bitcodeMagic) || bytes.HasPrefix(header, bitcodeWrapperMagic)
}

// Open loads a module from a .ll or .bc file. Bitcode goes through tc.
func Open(ctx context.Context, path string, tc Toolchain) (*Module, error) {
	// #nosec G304 -- path is the artifact selected by the user
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer func() {
		// Игнорируем ошибку закрытия: файл открыт только на чтение
		_ = f.Close()
	}()

	header := make([]byte, 4)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	header = header[:n]

	if !IsBitcode(header) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return ParseReader(path, f)
	}

	if tc == nil {
		return nil, fmt.Errorf("%w: %s is bitcode and no LLVM toolchain is configured", ErrParse, path)
	}
	rc, err := tc.Disassemble(ctx, path)
	if err != nil {
		return nil, err
	}
	mod, parseErr := ParseReader(path, rc)
	closeErr := rc.Close()
	if closeErr != nil {
		// the tool's own diagnostic explains a truncated stream better
		if mod != nil {
			_ = mod.Close()
		}
		return nil, closeErr
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return mod, nil
}
