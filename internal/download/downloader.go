package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alvmarrod/wall-weaver/internal/gallery"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// ErrExists means the output file is already on disk and was left untouched
var ErrExists = errors.New("output file already exists")

// linkFile is swapped in tests to emulate filesystems without hard links
var linkFile = os.Link

// ErrUnsafeName means the descriptor would produce a path outside the output directory
var ErrUnsafeName = errors.New("image id or type is not a plain file name")

// ItemError describes a failed download of a single image
type ItemError struct {
	Item gallery.ImageDescriptor
	Path string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("image %s (server %s, type %s) -> %s: %v", e.Item.ID, e.Item.Server, e.Item.Type, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Streamer copies the body of a remote resource into w
type Streamer interface {
	Stream(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Result describes a published image
type Result struct {
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Downloader fetches images and publishes them without overwriting
type Downloader struct {
	client  Streamer
	adapter gallery.Adapter
	verify  bool
	log     *logrus.Logger
}

// NewDownloader creates a downloader. When verify is set, content that does
// not decode as an image is rejected.
func NewDownloader(client Streamer, adapter gallery.Adapter, verify bool, log *logrus.Logger) *Downloader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Downloader{
		client:  client,
		adapter: adapter,
		verify:  verify,
		log:     log,
	}
}

// Download stores item as <dir>/<id>.<type>. The body is streamed into a
// temporary file that is only linked to the final name once complete, so a
// failed transfer never leaves a partial image behind and an existing file is
// never replaced.
func (d *Downloader) Download(ctx context.Context, item gallery.ImageDescriptor, dir string) (*Result, error) {
	path := filepath.Join(dir, item.Filename())
	fail := func(err error) (*Result, error) {
		return nil, &ItemError{Item: item, Path: path, Err: err}
	}

	if name := item.Filename(); strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fail(ErrUnsafeName)
	}

	if _, err := os.Lstat(path); err == nil {
		return fail(ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fail(fmt.Errorf("failed to stat output file: %w", err))
	}

	tmp, err := os.CreateTemp(dir, item.Filename()+".*.part")
	if err != nil {
		return fail(fmt.Errorf("failed to create temporary file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	d.log.Infof("Downloading image to %s", path)

	start := time.Now()
	written, err := d.client.Stream(ctx, d.adapter.DownloadURL(item), tmp)
	closeErr := tmp.Close()
	if err != nil {
		return fail(fmt.Errorf("failed to download image: %w", err))
	}
	if closeErr != nil {
		return fail(fmt.Errorf("failed to close file: %w", closeErr))
	}

	if d.verify {
		if err := verifyImage(tmpPath); err != nil {
			return fail(err)
		}
	}

	if err := publish(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fail(ErrExists)
		}
		return fail(fmt.Errorf("failed to publish image: %w", err))
	}

	return &Result{
		Path:     path,
		Bytes:    written,
		Duration: time.Since(start),
	}, nil
}

// publish moves tmpPath to path, failing with os.ErrExist if path is taken.
// Link fails when path exists, unlike Rename. Filesystems without hard links
// (FAT, some network mounts) fall back to claiming path with O_EXCL and
// renaming over the claim.
func publish(tmpPath, path string) error {
	err := linkFile(tmpPath, path)
	if err == nil || errors.Is(err, os.ErrExist) {
		return err
	}

	claim, claimErr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if claimErr != nil {
		if errors.Is(claimErr, os.ErrExist) {
			return claimErr
		}
		return fmt.Errorf("link: %v; exclusive create: %w", err, claimErr)
	}
	claim.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func verifyImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen image: %w", err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("downloaded content is not an image: %w", err)
	}
	return nil
}
