package producer

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/raoulx24/dir-archiver/internal/config"
)

func newContainer(format string, w io.Writer) (container, error) {
	switch format {
	case config.FormatZip:
		return &zipContainer{zw: zip.NewWriter(w)}, nil
	case config.FormatTarZst:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return &tarZstContainer{enc: enc, tw: tar.NewWriter(enc)}, nil
	default:
		return nil, fmt.Errorf("unknown archive format %q", format)
	}
}

type zipContainer struct {
	zw *zip.Writer
}

func (z *zipContainer) Add(name string, info os.FileInfo, r io.Reader) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func (z *zipContainer) Close() error {
	return z.zw.Close()
}

type tarZstContainer struct {
	enc *zstd.Encoder
	tw  *tar.Writer
}

func (t *tarZstContainer) Add(name string, info os.FileInfo, r io.Reader) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name

	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	// the header carries the size seen at stat time; a growing file is cut
	// there and a shrinking one is padded with zeros up to it
	n, err := io.CopyN(t.tw, r, hdr.Size)
	if errors.Is(err, io.EOF) {
		_, err = io.CopyN(t.tw, zeros{}, hdr.Size-n)
	}
	return err
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func (t *tarZstContainer) Close() error {
	if err := t.tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}
	if err := t.enc.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}
